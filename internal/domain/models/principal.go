package models

// Principal результат разрешения роли для аутентифицированной identity.
// Vendor заполнен только при Role == RoleVendor
type Principal struct {
	Role    Role     `json:"role"`
	Profile *Profile `json:"profile"`
	Vendor  *Vendor  `json:"vendor,omitempty"`
}

// IsAdmin удобный хелпер для проверок доступа
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
