package role

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mpiangona/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"
)

// InitValidators registers the `role` tag: a known role that can still be issued.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

func roleValidation(fl validator.FieldLevel) bool {
	r, err := Parse(fl.Field().String())
	return err == nil && Issuable(r)
}
