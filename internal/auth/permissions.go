package auth

import "reviewhub/pkg/models"

// Access rules, expressed as plain predicates over the requester's role and,
// where it matters, ownership. Reads are public and never consult these.

// CanManageCatalog reports whether the role may create, change or delete
// categories, genres and titles.
func CanManageCatalog(role string) bool {
	return role == models.RoleAdmin
}

// CanManageUsers reports whether the role may administer other user accounts.
func CanManageUsers(role string) bool {
	return role == models.RoleAdmin
}

// CanModifyContent reports whether the requester may update or delete a
// review or comment owned by authorID: the author themselves, a moderator,
// or an admin.
func CanModifyContent(role, requesterID, authorID string) bool {
	if requesterID != "" && requesterID == authorID {
		return true
	}
	return role == models.RoleModerator || role == models.RoleAdmin
}
