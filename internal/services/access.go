package services

import (
	"aula-backend/internal/models"
)

// AccessController decides view/join rights. It is pure: every input it
// needs (session, caller identity, the caller's invitation row if any) is
// passed in, and no call site repeats its own role checks.
type AccessController struct{}

func NewAccessController() *AccessController {
	return &AccessController{}
}

// CanView reports whether the caller may see the session at all.
func (a *AccessController) CanView(s *models.Session, id models.Identity, inv *models.Invitation) bool {
	return a.decide(s, id, inv)
}

// CanJoin reports whether the caller may enter the session roster.
// Lifecycle and capacity checks are the roster's job, not access control.
func (a *AccessController) CanJoin(s *models.Session, id models.Identity, inv *models.Invitation) bool {
	return a.decide(s, id, inv)
}

func (a *AccessController) decide(s *models.Session, id models.Identity, inv *models.Invitation) bool {
	if id.ID == s.HostID || id.Role == models.RoleAdmin {
		return true
	}
	if !inAudience(s.Kind, id.Role) {
		return false
	}
	if s.Privacy == models.PrivacyPrivate {
		return inv != nil && inv.Status != models.InvitationDeclined
	}
	return true
}

// CanControl reports whether the caller may issue lifecycle or
// participant control actions on the session (host or admin only).
func (a *AccessController) CanControl(s *models.Session, id models.Identity) bool {
	return id.ID == s.HostID || id.Role == models.RoleAdmin
}

func inAudience(kind models.SessionKind, role models.Role) bool {
	for _, r := range kind.AudienceRoles() {
		if r == role {
			return true
		}
	}
	return false
}
