// Package mutation performs ownership-checked writes and keeps the read cache
// coherent with them.
//
// A Coordinator resolves each request to one of a small set of outcomes. The
// caller-visible ones are typed (see Kind) so handlers can tell "you may not do
// this" apart from "this failed". On success, every invalidation tag is
// published before the call returns, so a read issued afterwards never sees the
// pre-mutation cached value.
package mutation
