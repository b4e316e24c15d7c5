package auth

// CanMutate reports whether p may write a resource.
//
// With existingOwnerID nil the resource is being created, which any
// authenticated principal may do. Otherwise p must own the resource or be an
// admin. The anonymous principal may never mutate.
func CanMutate(p Principal, existingOwnerID *string) bool {
	if p.IsAnonymous() {
		return false
	}
	if existingOwnerID == nil {
		return true
	}
	return p.IsAdmin || IsOwner(p, *existingOwnerID)
}

// IsOwner reports whether p is the non-empty ownerID.
func IsOwner(p Principal, ownerID string) bool {
	return !p.IsAnonymous() && p.ID == ownerID
}

// IsAdmin reports whether p is an authenticated admin.
func IsAdmin(p Principal) bool {
	return !p.IsAnonymous() && p.IsAdmin
}
