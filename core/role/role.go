package role

import (
	"errors"
	"strings"
)

type Role string

// Roles
const (
	Admin       Role = "ADMIN"
	Responsable Role = "RESPONSABLE"
	Secretaire  Role = "SECRETAIRE"
	Tresorier   Role = "TRESORIER"
	Membre      Role = "MEMBRE"

	// Deprecated: kept for existing rows only. Same rights as Membre, never issued.
	Utilisateur Role = "UTILISATEUR"

	Default = Membre
)

var (
	All = []Role{Admin, Responsable, Secretaire, Tresorier, Membre, Utilisateur}

	ErrUnknownRole = errors.New("unknown role")
	ErrNotIssuable = errors.New("this role can no longer be assigned")

	Definitions = []Definition{
		{Role: Admin, Description: "Accès complet au système, peut gérer tous les utilisateurs et paramètres"},
		{Role: Responsable, Description: "Peut gérer les adhérents et les groupes, accès limité aux paramètres"},
		{Role: Secretaire, Description: "Gère les documents administratifs et les rapports"},
		{Role: Tresorier, Description: "Gère les finances, contributions et rapports financiers"},
		{Role: Membre, Description: "Membre de l'église avec accès à son profil personnel"},
		{Role: Utilisateur, Description: "Accès de base en lecture seule aux données des adhérents (déprécié - utilisez MEMBRE)", Deprecated: true},
	}
)

type Definition struct {
	Role        Role   `json:"role"`
	Description string `json:"description"`
	Deprecated  bool   `json:"deprecated,omitempty"`
}

// Parse maps a stored/wire role value to a Role. Unknown values are rejected.
func Parse(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := matrix[r]
	return ok
}

func (r Role) String() string { return string(r) }

// Issuable reports whether `r` may be assigned to a user.
func Issuable(r Role) bool {
	return r.Valid() && r != Utilisateur
}

// HasRole is true iff `assigned` is one of `required`.
func HasRole(assigned Role, required ...Role) bool {
	for _, r := range required {
		if assigned == r {
			return true
		}
	}
	return false
}
