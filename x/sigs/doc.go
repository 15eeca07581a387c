/*
Package sigs verifies ed25519 signatures of incoming transactions and
exposes the signers through an Authenticator.

Every public key has a sequence number stored in the "sigs" bucket. A
signature is only valid for the current sequence, which is incremented
afterwards, so a signed transaction cannot be replayed. The signed
bytes are bound to a domain (the wallet name) so a signature for one
wallet is never valid for another.
*/
package sigs
