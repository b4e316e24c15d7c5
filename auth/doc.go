// Package auth resolves request principals and decides who may mutate a
// resource.
//
// A Resolver turns an opaque session handle into a Principal. It never fails:
// a missing, malformed or expired handle resolves to the anonymous Principal,
// and the admin flag is looked up fresh on every resolution and fails closed.
//
// CanMutate, IsOwner and IsAdmin form the authorization gate. They are pure
// functions of the Principal and the existing owner of a resource.
package auth
