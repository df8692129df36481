package service

import (
	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
)

// Can reports whether sess may change a resource owned by ownerID.
// Administrators may change anything; everyone else only their own.
func Can(sess *model.AuthorizedSession, ownerID string) error {
	if sess == nil {
		return apperror.Forbidden("sign in to make changes")
	}
	if sess.IsAdmin() || (ownerID != "" && sess.AccountID() == ownerID) {
		return nil
	}
	return apperror.Forbidden("you can only change records you created")
}

// RequireAdmin allows administrators only.
func RequireAdmin(sess *model.AuthorizedSession) error {
	if !sess.IsAdmin() {
		return apperror.Forbidden("administrator access required")
	}
	return nil
}
