package contribution

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mpiangona/core"
)

type Type string

// Types
const (
	Dime     Type = "dime"     // tithe
	Offrande Type = "offrande" // offering
	Don      Type = "don"      // gift
)

var Types = []Type{Dime, Offrande, Don}

func (t Type) Label() string {
	switch t {
	case Dime:
		return "Dîme"
	case Offrande:
		return "Offrande"
	case Don:
		return "Don"
	}
	return string(t)
}

type Contribution struct {
	ID        string    `json:"id" db:"id"`
	MemberID  string    `json:"adherent_id" db:"adherent_id"`
	Nom       string    `json:"nom" db:"nom"`       // read only
	Prenom    string    `json:"prenom" db:"prenom"` // read only
	Type      Type      `json:"type" db:"type"`
	Montant   int64     `json:"montant" db:"montant"`
	Date      core.Date `json:"date_contribution" db:"date_contribution"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type NewContribution struct {
	MemberID string     `json:"adherent_id" validate:"required,uuid"`
	Type     Type       `json:"type" validate:"required,contribution_type"`
	Montant  int64      `json:"montant" validate:"required,gt=0"`
	Date     *core.Date `json:"date_contribution"`
}

func (nc *NewContribution) Validate(validate *validator.Validate) error {
	nc.MemberID = core.CleanString(nc.MemberID)
	nc.Type = Type(core.CleanString(string(nc.Type), true /* lower */))
	return validate.Struct(nc)
}

// QueryFilter applies AND between its fields. From and To are inclusive.
type QueryFilter struct {
	MemberID string     `query:"adherent_id"`
	Type     Type       `query:"type"`
	From     *core.Date `query:"from"`
	To       *core.Date `query:"to"`
	Search   string     `query:"search"` // nom or prenom, case-insensitive
}

func (qf QueryFilter) Matches(c Contribution) bool {
	if qf.MemberID != "" && c.MemberID != qf.MemberID {
		return false
	}
	if qf.Type != "" && c.Type != qf.Type {
		return false
	}
	if qf.From != nil && !qf.From.IsZero() && c.Date.Before(*qf.From) {
		return false
	}
	if qf.To != nil && !qf.To.IsZero() && c.Date.After(*qf.To) {
		return false
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !strings.Contains(strings.ToLower(c.Nom), s) && !strings.Contains(strings.ToLower(c.Prenom), s) {
			return false
		}
	}
	return true
}
