package entity

// Roles válidos para un usuario autenticado.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// Principal identifica al usuario autenticado de la llamada actual.
type Principal struct {
	UserID    string
	CompanyID string
	Role      string
}

// Authenticated indica si la llamada trae una identidad estable.
func (p Principal) Authenticated() bool {
	return p.UserID != "" && p.CompanyID != ""
}
