package user

import "time"

type Role string

const (
	RoleConsumer   Role = "CONSUMER"
	RoleContractor Role = "CONTRACTOR"
	RoleTrader     Role = "TRADER"
	RoleMistri     Role = "MISTRI"
)

// Profile is the role-specific part of a provider account. Every variant
// reports availability the same way, so callers never need to know which
// concrete profile a user carries.
type Profile interface {
	Available() bool
}

type ContractorProfile struct {
	CompanyName string `json:"company_name"`
	IsAvailable bool   `json:"is_available"`
}

func (p ContractorProfile) Available() bool { return p.IsAvailable }

type TraderProfile struct {
	ShopName    string `json:"shop_name"`
	IsAvailable bool   `json:"is_available"`
}

func (p TraderProfile) Available() bool { return p.IsAvailable }

type MistriProfile struct {
	Skill       string `json:"skill"`
	IsAvailable bool   `json:"is_available"`
}

func (p MistriProfile) Available() bool { return p.IsAvailable }

type User struct {
	Id        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Rating    float64   `json:"rating"`
	Profile   Profile   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAvailable reports whether the user can take new work right now.
// Users without a role profile count as unavailable, not as excluded.
func (u User) IsAvailable() bool {
	return u.Profile != nil && u.Profile.Available()
}

// CanBid reports whether the role participates in the open-bid workflow.
func (r Role) CanBid() bool {
	return r == RoleContractor || r == RoleTrader
}
