// Package resources holds the cached read paths and the writes for ideas,
// user profiles, owner posts, idea comments and the want, like and save
// toggles.
//
// Every cached value is principal-independent: ideas are public, profiles
// expose public columns only and the owner post listing is filtered to public
// posts. Reads that depend on who is asking, such as a private owner post,
// bypass the cache.
package resources
