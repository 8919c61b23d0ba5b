// internal/permissions/permissions.go
package permissions

import (
	"github.com/marketua/marketplace-backend/internal/apperror"
	"github.com/marketua/marketplace-backend/internal/models"
)

// IsAuthenticated reports whether user is present and active.
func IsAuthenticated(user *models.User) bool {
	return user != nil && user.IsActive
}

// IsUnauthenticated is the inverse of IsAuthenticated.
func IsUnauthenticated(user *models.User) bool {
	return !IsAuthenticated(user)
}

func IsStaff(user *models.User) bool {
	return IsAuthenticated(user) && user.IsStaff
}

// IsOwner allows caller to act on an object owned by ownerID.
func IsOwner(caller *models.User, ownerID uint) error {
	if !IsAuthenticated(caller) {
		return apperror.NotAuthenticated()
	}
	if caller.ID != ownerID {
		return apperror.PermissionDenied()
	}
	return nil
}

// IsCurrentUser allows caller to act on the user identified by subjectID.
func IsCurrentUser(caller *models.User, subjectID uint) error {
	return IsOwner(caller, subjectID)
}

// IsOwnerOrStaff lets staff through in addition to the owner.
func IsOwnerOrStaff(caller *models.User, ownerID uint) error {
	if IsStaff(caller) {
		return nil
	}
	return IsOwner(caller, ownerID)
}
