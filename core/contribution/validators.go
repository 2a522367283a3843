package contribution

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mpiangona/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	values := make([]string, 0, len(Types))
	for _, t := range Types {
		values = append(values, string(t))
	}
	core.RegisterEnum(validate, translator, "contribution_type", "must be one of dime, offrande, don", values...)
}
