package member

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mpiangona/core"
)

// InitValidators registers the member enum tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnum(validate, translator, "sexe", "must be one of M, F", Sexes...)
	core.RegisterEnum(validate, translator, "etat_civil", "must be one of celibataire, marie, veuf", EtatsCivil...)
	core.RegisterEnum(validate, translator, "faritra", "unknown faritra", Faritra...)
}
