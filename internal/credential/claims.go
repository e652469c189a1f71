package credential

import "github.com/garnizeh/hirehub/pkg/models"

// Claims is the identity carried by a token. The concrete type is one of
// SeekerClaims, RecruiterClaims or AdminClaims.
type Claims interface {
	Subject() int64
	Email() string
	FullName() string
	Role() models.Role
}

type BaseClaims struct {
	UserID    int64
	UserEmail string
	Name      string
}

func (b BaseClaims) Subject() int64   { return b.UserID }
func (b BaseClaims) Email() string    { return b.UserEmail }
func (b BaseClaims) FullName() string { return b.Name }

type SeekerClaims struct {
	BaseClaims
}

func (SeekerClaims) Role() models.Role { return models.RoleSeeker }

type RecruiterClaims struct {
	BaseClaims
	RecruiterID int64
	CompanyID   int64
}

func (RecruiterClaims) Role() models.Role { return models.RoleRecruiter }

type AdminClaims struct {
	BaseClaims
}

func (AdminClaims) Role() models.Role { return models.RoleAdmin }

// ClaimsFor builds the claims matching the account's role.
func ClaimsFor(a *models.Account, rec *models.Recruiter) Claims {
	base := BaseClaims{UserID: a.ID, UserEmail: a.Email, Name: a.FullName}
	switch a.Role {
	case models.RoleAdmin:
		return AdminClaims{BaseClaims: base}
	case models.RoleRecruiter:
		rc := RecruiterClaims{BaseClaims: base}
		if rec != nil {
			rc.RecruiterID = rec.ID
			rc.CompanyID = rec.CompanyID
		}
		return rc
	default:
		return SeekerClaims{BaseClaims: base}
	}
}
