// Package identity carries the resolved caller of a request and the
// authorization predicates every workflow operation checks against.
package identity

import "strings"

type Role string

const (
	Admin       Role = "Admin"
	Customer    Role = "Customer"
	Distributor Role = "Distributor"
)

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return Admin, true
	case "customer":
		return Customer, true
	case "distributor":
		return Distributor, true
	}
	return "", false
}

// Identity is derived once per request from the bearer token.
type Identity struct {
	UserID uint   `json:"user_id"`
	Role   Role   `json:"role"`
	Email  string `json:"email"`
}

func (i Identity) Is(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// Owns reports whether the caller is the user identified by userID.
func (i Identity) Owns(userID uint) bool {
	return i.UserID != 0 && i.UserID == userID
}

// AssignedTo reports whether the caller is the distributor recorded on a record.
func (i Identity) AssignedTo(distributorID *uint) bool {
	return i.Role == Distributor && distributorID != nil && *distributorID == i.UserID
}

// CanReadApplication: admins see everything, customers their own
// applications, distributors the ones assigned to them.
func CanReadApplication(i Identity, ownerID uint, distributorID *uint) bool {
	switch i.Role {
	case Admin:
		return true
	case Customer:
		return i.Owns(ownerID)
	case Distributor:
		return i.AssignedTo(distributorID)
	}
	return false
}

// CanReadErrorRequest follows the application rule, with the request's
// routed distributor standing in for the assignment.
func CanReadErrorRequest(i Identity, raisedBy uint, distributorID *uint) bool {
	return CanReadApplication(i, raisedBy, distributorID)
}

func CanManageCatalog(i Identity) bool {
	return i.Role == Admin
}

func CanSubmitApplication(i Identity) bool {
	return i.Role == Customer
}

func CanManageNotifications(i Identity) bool {
	return i.Role == Admin
}

func CanPostFeedback(i Identity) bool {
	return i.Role == Customer
}

func CanViewFeedback(i Identity) bool {
	return i.Role == Admin
}

// RequiresProfile reports whether the first-login profile gate applies to the role.
func RequiresProfile(r Role) bool {
	return r == Customer || r == Distributor
}
