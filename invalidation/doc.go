// Package invalidation fans out "tag invalidated" events within the process.
//
// Publish is synchronous: every handler subscribed when Publish is called has
// run before it returns. The mutation coordinator relies on this to guarantee
// that the cache reflects a write by the time the write call returns.
package invalidation
