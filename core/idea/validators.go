package idea

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/innocell/innocell/core"
)

var (
	categoryTag  = "ideacategory"
	categoryText = "unknown idea category"

	statusTag  = "ideastatus"
	statusText = "status must be one of Pending, Approved, Rejected, Implemented"
)

// InitValidators registers idea validations & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, func(fl validator.FieldLevel) bool {
		return core.StringInSlice(fl.Field().String(), Categories)
	})
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)

	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}
