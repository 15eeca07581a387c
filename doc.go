/*
Package quorum defines the interfaces used throughout the threshold wallet,
such as storage, identities, authentication, messages and context helpers.

We pass context through context.Context between the transport layer,
authentication and the wallet engine. There should exist two functions for
every XYZ of type T that we want to support in Context:

	WithXYZ(Context, T) Context
	GetXYZ(Context) (val T, ok bool)

WithXYZ may panic if the value was previously set to avoid lower-level
modules overwriting the value (eg. wallet id).

Extensions live in the x/ directory. The wallet state machine is x/wallet.
*/
package quorum
