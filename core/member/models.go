package member

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mpiangona/core"
)

// Sexes
const (
	Male   = "M"
	Female = "F"
)

var (
	Sexes      = []string{Male, Female}
	EtatsCivil = []string{"celibataire", "marie", "veuf"}
	Faritra    = []string{"voalohany", "faharoa", "fahatelo", "fahefatra", "fahadimy"}
)

type Member struct {
	ID              string      `json:"id_adherent" db:"id_adherent"`
	Nom             string      `json:"nom" db:"nom"`
	Prenom          string      `json:"prenom" db:"prenom"`
	Sexe            string      `json:"sexe" db:"sexe"`
	DateNaissance   *core.Date  `json:"date_naissance" db:"date_naissance"`
	Adresse         null.String `json:"adresse" db:"adresse"`
	Quartier        null.String `json:"quartier" db:"quartier"`
	Telephone       null.String `json:"telephone" db:"telephone"`
	Email           null.String `json:"email" db:"email"`
	FonctionEglise  null.String `json:"fonction_eglise" db:"fonction_eglise"`
	EtatCivil       null.String `json:"etat_civil" db:"etat_civil"`
	Mpandray        bool        `json:"mpandray" db:"mpandray"`
	Faritra         null.String `json:"faritra" db:"faritra"`
	SampanaID       null.String `json:"sampana_id" db:"sampana_id"`
	SampanaName     null.String `json:"nom_sampana" db:"nom_sampana"` // read only
	DateInscription core.Date   `json:"date_inscription" db:"date_inscription"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (m Member) FullName() string {
	return strings.TrimSpace(m.Prenom + " " + m.Nom)
}

// Sampana is a ministry group a member may belong to.
type Sampana struct {
	ID          string      `json:"id_sampana" db:"id_sampana"`
	Nom         string      `json:"nom_sampana" db:"nom_sampana"`
	Description null.String `json:"description" db:"description"`
}

// NewMember contains information needed to register a new Member.
type NewMember struct {
	Nom             string      `json:"nom" validate:"required,max=100"`
	Prenom          string      `json:"prenom" validate:"required,max=100"`
	Sexe            string      `json:"sexe" validate:"required,sexe"`
	DateNaissance   *core.Date  `json:"date_naissance"`
	Adresse         null.String `json:"adresse"`
	Quartier        null.String `json:"quartier" validate:"omitempty,max=100"`
	Telephone       null.String `json:"telephone" validate:"omitempty,max=30"`
	Email           null.String `json:"email" validate:"omitempty,email"`
	FonctionEglise  null.String `json:"fonction_eglise" validate:"omitempty,max=100"`
	EtatCivil       null.String `json:"etat_civil" validate:"omitempty,etat_civil"`
	Mpandray        bool        `json:"mpandray"`
	Faritra         null.String `json:"faritra" validate:"omitempty,faritra"`
	SampanaID       null.String `json:"sampana_id" validate:"omitempty,uuid"`
	DateInscription *core.Date  `json:"date_inscription"`
	GroupIDs        []string    `json:"groupes" validate:"omitempty,dive,uuid"`
}

func (nm *NewMember) clean() {
	nm.Nom = core.CleanString(nm.Nom)
	nm.Prenom = core.CleanString(nm.Prenom)
	nm.Sexe = strings.ToUpper(core.CleanString(nm.Sexe))
	nm.Adresse = core.CleanNullString(nm.Adresse)
	nm.Quartier = core.CleanNullString(nm.Quartier)
	nm.Telephone = core.CleanNullString(nm.Telephone)
	nm.Email = lowerNull(core.CleanNullString(nm.Email))
	nm.FonctionEglise = core.CleanNullString(nm.FonctionEglise)
	nm.EtatCivil = lowerNull(core.CleanNullString(nm.EtatCivil))
	nm.Faritra = lowerNull(core.CleanNullString(nm.Faritra))
	nm.SampanaID = core.CleanNullString(nm.SampanaID)
}

func (nm *NewMember) Validate(validate *validator.Validate) error {
	nm.clean()
	return validate.Struct(nm)
}

// UpdateMember defines what information may be provided to modify an existing Member.
// Empty nom/prenom/sexe and a nil mpandray keep the current values; optional fields are replaced.
type UpdateMember struct {
	Nom            string      `json:"nom" validate:"max=100"`
	Prenom         string      `json:"prenom" validate:"max=100"`
	Sexe           string      `json:"sexe" validate:"omitempty,sexe"`
	DateNaissance  *core.Date  `json:"date_naissance"`
	Adresse        null.String `json:"adresse"`
	Quartier       null.String `json:"quartier" validate:"omitempty,max=100"`
	Telephone      null.String `json:"telephone" validate:"omitempty,max=30"`
	Email          null.String `json:"email" validate:"omitempty,email"`
	FonctionEglise null.String `json:"fonction_eglise" validate:"omitempty,max=100"`
	EtatCivil      null.String `json:"etat_civil" validate:"omitempty,etat_civil"`
	Mpandray       *bool       `json:"mpandray"`
	Faritra        null.String `json:"faritra" validate:"omitempty,faritra"`
	SampanaID      null.String `json:"sampana_id" validate:"omitempty,uuid"`
}

func (um *UpdateMember) Validate(validate *validator.Validate) error {
	um.Nom = core.CleanString(um.Nom)
	um.Prenom = core.CleanString(um.Prenom)
	um.Sexe = strings.ToUpper(core.CleanString(um.Sexe))
	um.Adresse = core.CleanNullString(um.Adresse)
	um.Quartier = core.CleanNullString(um.Quartier)
	um.Telephone = core.CleanNullString(um.Telephone)
	um.Email = lowerNull(core.CleanNullString(um.Email))
	um.FonctionEglise = core.CleanNullString(um.FonctionEglise)
	um.EtatCivil = lowerNull(core.CleanNullString(um.EtatCivil))
	um.Faritra = lowerNull(core.CleanNullString(um.Faritra))
	um.SampanaID = core.CleanNullString(um.SampanaID)
	return validate.Struct(um)
}

func (um UpdateMember) apply(m Member) Member {
	if um.Nom != "" {
		m.Nom = um.Nom
	}
	if um.Prenom != "" {
		m.Prenom = um.Prenom
	}
	if um.Sexe != "" {
		m.Sexe = um.Sexe
	}
	if um.Mpandray != nil {
		m.Mpandray = *um.Mpandray
	}
	m.DateNaissance = um.DateNaissance
	m.Adresse = um.Adresse
	m.Quartier = um.Quartier
	m.Telephone = um.Telephone
	m.Email = um.Email
	m.FonctionEglise = um.FonctionEglise
	m.EtatCivil = um.EtatCivil
	m.Faritra = um.Faritra
	m.SampanaID = um.SampanaID
	return m
}

type QueryFilter struct {
	Search    string `query:"search"`
	Sexe      string `query:"sexe"`
	Quartier  string `query:"quartier"`
	Mpandray  *bool  `query:"mpandray"`
	Faritra   string `query:"faritra"`
	SampanaID string `query:"sampana_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Sexe == "" && qf.Quartier == "" && qf.Mpandray == nil && qf.Faritra == "" && qf.SampanaID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Sexe = strings.ToUpper(core.CleanString(qf.Sexe))
	qf.Quartier = core.CleanString(qf.Quartier)
	qf.Faritra = core.CleanString(qf.Faritra, true /* lower */)
	qf.SampanaID = core.CleanString(qf.SampanaID)
}

// Matches applies the filter to one member: AND between fields,
// Search is a case-insensitive match on nom, prenom or email and a substring match on telephone.
func (qf *QueryFilter) Matches(m Member) bool {
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !(strings.Contains(strings.ToLower(m.Nom), s) ||
			strings.Contains(strings.ToLower(m.Prenom), s) ||
			(m.Email.Valid && strings.Contains(strings.ToLower(m.Email.String), s)) ||
			(m.Telephone.Valid && strings.Contains(m.Telephone.String, qf.Search))) {
			return false
		}
	}
	if qf.Sexe != "" && m.Sexe != qf.Sexe {
		return false
	}
	if qf.Quartier != "" && m.Quartier.String != qf.Quartier {
		return false
	}
	if qf.Mpandray != nil && m.Mpandray != *qf.Mpandray {
		return false
	}
	if qf.Faritra != "" && m.Faritra.String != qf.Faritra {
		return false
	}
	if qf.SampanaID != "" && m.SampanaID.String != qf.SampanaID {
		return false
	}
	return true
}

func lowerNull(s null.String) null.String {
	if s.Valid {
		s.String = strings.ToLower(s.String)
	}
	return s
}
