package dues

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mpiangona/core"
)

// DefaultAmount is the monthly adidy in Ariary suggested when a payment is scanned.
const DefaultAmount int64 = 500

// Record is the monthly dues (adidy) of one member. There is at most one record per period.
type Record struct {
	ID           string     `json:"id" db:"id"`
	MemberID     string     `json:"adherent_id" db:"adherent_id"`
	Nom          string     `json:"nom" db:"nom"`       // read only
	Prenom       string     `json:"prenom" db:"prenom"` // read only
	Mois         int        `json:"mois" db:"mois"`
	Annee        int        `json:"annee" db:"annee"`
	Montant      int64      `json:"montant" db:"montant"`
	Paye         bool       `json:"paye" db:"paye"`
	DatePaiement *core.Date `json:"date_paiement" db:"date_paiement"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Upsert sets the dues of a member for one period.
// PaidAt is only used when Paye is true; it defaults to today.
type Upsert struct {
	MemberID string     `json:"adherent_id" validate:"required,uuid"`
	Mois     int        `json:"mois" validate:"required,min=1,max=12"`
	Annee    int        `json:"annee" validate:"required,min=1900,max=9999"`
	Montant  int64      `json:"montant" validate:"min=0"`
	Paye     bool       `json:"paye"`
	PaidAt   *core.Date `json:"date_paiement"`
}

func (u *Upsert) Validate(validate *validator.Validate) error {
	u.MemberID = core.CleanString(u.MemberID)
	return validate.Struct(u)
}

type QueryFilter struct {
	MemberID   string `query:"adherent_id"`
	Mois       int    `query:"mois"`
	Annee      int    `query:"annee"`
	UnpaidOnly bool   `query:"unpaid_only"`
	MinAmount  int64  `query:"min_amount"`
}

func (qf QueryFilter) Matches(r Record) bool {
	if qf.MemberID != "" && r.MemberID != qf.MemberID {
		return false
	}
	if qf.Mois != 0 && r.Mois != qf.Mois {
		return false
	}
	if qf.Annee != 0 && r.Annee != qf.Annee {
		return false
	}
	if qf.UnpaidOnly && r.Paye {
		return false
	}
	if qf.MinAmount > 0 && r.Montant < qf.MinAmount {
		return false
	}
	return true
}
