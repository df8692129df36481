package service

import (
	"errors"
	"testing"

	"github.com/sakif/family-catalog/internal/apperror"
	"github.com/sakif/family-catalog/internal/model"
)

func sessionFor(id string, role model.UserType) *model.AuthorizedSession {
	return &model.AuthorizedSession{
		Identity:      model.Identity{AccountID: id, Email: id + "@x.com", EmailVerified: true},
		EmailVerified: true,
		UserType:      role,
	}
}

func TestCan(t *testing.T) {
	tests := []struct {
		name    string
		sess    *model.AuthorizedSession
		owner   string
		allowed bool
	}{
		{name: "anonymous", sess: nil, owner: "u1", allowed: false},
		{name: "owner", sess: sessionFor("u1", model.UserTypeRegular), owner: "u1", allowed: true},
		{name: "someone else", sess: sessionFor("u2", model.UserTypeRegular), owner: "u1", allowed: false},
		{name: "admin on any record", sess: sessionFor("boss", model.UserTypeAdmin), owner: "u1", allowed: true},
		{name: "regular on unowned record", sess: sessionFor("u1", model.UserTypeRegular), owner: "", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Can(tt.sess, tt.owner)
			if tt.allowed && err != nil {
				t.Fatalf("Can() = %v, want allowed", err)
			}
			if !tt.allowed && !errors.Is(err, apperror.ErrForbidden) {
				t.Fatalf("Can() = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(sessionFor("boss", model.UserTypeAdmin)); err != nil {
		t.Errorf("RequireAdmin(admin) = %v", err)
	}
	if err := RequireAdmin(sessionFor("u1", model.UserTypeRegular)); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("RequireAdmin(regular) = %v, want ErrForbidden", err)
	}
	if err := RequireAdmin(nil); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("RequireAdmin(nil) = %v, want ErrForbidden", err)
	}
}
