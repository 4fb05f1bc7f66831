// forms — модели форм: черновик компании, логин, регистрация.
//
// Проверка полей идёт через go-playground/validator с правилами, повторяющими
// клиентские регулярки каталога; ошибки собираются по всем полям сразу и
// возвращаются как *errors.ValidationError с ключами в wire-формате.
package forms

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	apperrors "github.com/pribylovaa/waste-directory/internal/errors"

	"github.com/go-playground/validator/v10"
)

var (
	// Совпадение где угодно в строке, без якорей.
	looseEmailRe = regexp.MustCompile(`\S+@\S+\.\S+`)
	siteURLRe    = regexp.MustCompile(`^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "loose_email", func(fl validator.FieldLevel) bool {
		return looseEmailRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "site_url", func(fl validator.FieldLevel) bool {
		return siteURLRe.MatchString(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("forms: register " + tag + ": " + err.Error())
	}
}

// check валидирует структуру и переводит ошибки в сообщения по ключу "поле.тег".
// На поле — одно сообщение, первое по порядку тегов.
func check(s any, messages map[string]string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}

	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}

		msg, ok := messages[name+"."+fe.Tag()]
		if !ok {
			msg = name + " is invalid"
		}
		fields[name] = msg
	}

	if verr := apperrors.NewValidation(fields); verr != nil {
		return verr
	}

	return nil
}
