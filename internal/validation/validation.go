// Package validation wraps go-playground/validator with English messages
// keyed by JSON field names, for checking resolved configuration structs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"envscan/internal/pipeline"
)

// Service holds the shared validator and its translator.
type Service struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	once sync.Once
	svc  *Service
)

// Get returns the validator singleton, initializing on first use.
func Get() *Service {
	once.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerShort(v, trans, "gte", "{0} must be {1} or greater")
		registerShort(v, trans, "lte", "{0} must be {1} or less")

		svc = &Service{Validator: v, Translator: trans}
	})
	return svc
}

// Struct validates s and returns a configuration error listing every failing
// field, or nil.
func Struct(s any) error {
	service := Get()
	err := service.Validator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return pipeline.Wrap(pipeline.ErrConfiguration, "config", "validate", "invalid configuration", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(service.Translator))
	}
	return pipeline.Wrap(pipeline.ErrConfiguration, "config", "validate", strings.Join(msgs, "; "), nil)
}

func registerShort(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error {
			return t.Add(tag, text, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field(), fe.Param())
			if err != nil {
				return fmt.Sprintf("%s failed %s", fe.Field(), tag)
			}
			return msg
		},
	)
}
