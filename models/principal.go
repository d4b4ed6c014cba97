package models

const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// Principal is the authenticated caller as vouched for by the identity service.
type Principal struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanAccess reports whether p may act on a resource owned by ownerID.
func (p Principal) CanAccess(ownerID string) bool {
	return p.IsAdmin() || (p.UserID != "" && p.UserID == ownerID)
}
