package model

import "github.com/google/uuid"

// Roles carried by the auth context.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// Actor is the caller identity supplied by the auth layer. The core trusts it.
type Actor struct {
	ID              uuid.UUID `json:"id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	Role            string    `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAccess reports whether the actor may touch data of the establishment.
func (a Actor) CanAccess(establishmentID uuid.UUID) bool {
	return a.IsAdmin() || a.EstablishmentID == establishmentID
}
