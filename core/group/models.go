package group

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core"
)

type Group struct {
	ID            string      `json:"id_groupe" db:"id_groupe"`
	Nom           string      `json:"nom_groupe" db:"nom_groupe"`
	Description   null.String `json:"description" db:"description"`
	AdherentCount int         `json:"adherent_count" db:"adherent_count"` // read only
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// Membership links a member to a group. (MemberID, GroupID) is unique.
type Membership struct {
	MemberID     string    `json:"id_adherent" db:"id_adherent"`
	GroupID      string    `json:"id_groupe" db:"id_groupe"`
	DateAdhesion core.Date `json:"date_adhesion" db:"date_adhesion"`
}

type NewGroup struct {
	Nom         string      `json:"nom_groupe" validate:"required,max=100"`
	Description null.String `json:"description"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Nom = core.CleanString(ng.Nom)
	ng.Description = core.CleanNullString(ng.Description)
	return validate.Struct(ng)
}

type UpdateGroup = NewGroup
