/*
Package wallet implements a threshold-authorization wallet.

A fixed set of members shares control over a pool of value and an
execution channel. Any member may propose a request: an ordered list of
actions sent to a receiver. The request executes automatically once the
number of confirming members reaches the threshold. Actions can move
value, call a method on the receiver, or change the membership and
threshold of the wallet itself. Membership changes are applied in order
against the live state, so a request can observe the effects of its own
earlier actions.

State is kept in three buckets: the membership record, the pending
requests and their confirmations. A request and its confirmations are
always created and removed together.
*/
package wallet
