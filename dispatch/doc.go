/*
Package dispatch delivers the effects of executed wallet requests.

A Queue implements wallet.Dispatcher. Effects are appended to an
unbounded FIFO queue without blocking the wallet and are handed to an
Executor by a pool of workers started with Run. The wallet never learns
about the outcome of a delivery: failures are logged and dropped.
*/
package dispatch
