package role

type Capability string

// Capabilities
const (
	ViewAdherents   Capability = "canViewAdherents"
	ManageAdherents Capability = "canManageAdherents"
	ManageFinances  Capability = "canManageFinances"
	ViewFinances    Capability = "canViewFinances"
	ManageUsers     Capability = "canManageUsers"
	IsAdmin         Capability = "isAdmin"
	IsResponsable   Capability = "isResponsable"
)

var AllCapabilities = []Capability{
	ViewAdherents, ManageAdherents, ManageFinances, ViewFinances, ManageUsers, IsAdmin, IsResponsable,
}

// matrix is the whole authorization policy: role x capability -> granted.
// Roles do not inherit from each other, a new role is a new row.
var matrix = map[Role]map[Capability]bool{
	Admin: {
		ViewAdherents:   true,
		ManageAdherents: true,
		ManageFinances:  true,
		ViewFinances:    true,
		ManageUsers:     true,
		IsAdmin:         true,
	},
	Responsable: {
		ViewAdherents:   true,
		ManageAdherents: true,
		ViewFinances:    true,
		IsResponsable:   true,
	},
	Secretaire: {
		ViewAdherents:   true,
		ManageAdherents: true,
	},
	Tresorier: {
		ViewAdherents:  true,
		ManageFinances: true,
		ViewFinances:   true,
	},
	Membre: {
		ViewAdherents: true,
	},
	Utilisateur: {
		ViewAdherents: true,
	},
}

// Can reports whether `r` holds `c`. Unknown roles hold nothing.
func Can(r Role, c Capability) bool {
	return matrix[r][c]
}

// Capabilities returns the full matrix row of `r`.
func Capabilities(r Role) map[Capability]bool {
	row := make(map[Capability]bool, len(AllCapabilities))
	for _, c := range AllCapabilities {
		row[c] = Can(r, c)
	}
	return row
}

func CanManageAdherents(r Role) bool { return Can(r, ManageAdherents) }
func CanManageFinances(r Role) bool  { return Can(r, ManageFinances) }
func CanViewFinances(r Role) bool    { return Can(r, ViewFinances) }
func CanManageUsers(r Role) bool     { return Can(r, ManageUsers) }
func CanViewAdherents(r Role) bool   { return Can(r, ViewAdherents) }
func IsAdminRole(r Role) bool        { return Can(r, IsAdmin) }
func IsResponsableRole(r Role) bool  { return Can(r, IsResponsable) }
