// Package validation проверяет входные данные до обращения к БД и переводит
// ошибки на арабский.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/ar"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	phoneRe = regexp.MustCompile(`^01[0125][0-9]{8}$`)
	codeRe  = regexp.MustCompile(`^[A-Za-z0-9-]{4,32}$`)
)

const (
	notBlankTag = "notblank"
	phoneTag    = "phone_eg"
	trackTag    = "track"
	planTag     = "plan"
	codeTag     = "redeem_code"
)

// тексты для встроенных тегов; {0} поле, {1} параметр
var builtinTexts = map[string]string{
	"required": "حقل {0} مطلوب",
	"email":    "{0} يجب أن يكون بريدًا إلكترونيًا صحيحًا",
	"min":      "{0} يجب ألا يقل عن {1}",
	"max":      "{0} يجب ألا يزيد عن {1}",
	"gt":       "{0} يجب أن يكون أكبر من {1}",
	"gte":      "{0} يجب أن يكون {1} أو أكثر",
	"lte":      "{0} يجب أن يكون {1} أو أقل",
	"oneof":    "{0} يجب أن يكون واحدًا من [{1}]",
	"url":      "{0} يجب أن يكون رابطًا صحيحًا",
}

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	arabic := ar.New()
	uni := ut.New(arabic, arabic)
	Translator, _ = uni.GetTranslator("ar")

	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	for tag, text := range builtinTexts {
		registerTranslation(tag, text)
	}

	_ = Validate.RegisterValidation(notBlankTag, notBlank)
	_ = Validate.RegisterValidation(phoneTag, phone)
	_ = Validate.RegisterValidation(trackTag, track)
	_ = Validate.RegisterValidation(planTag, plan)
	_ = Validate.RegisterValidation(codeTag, redeemCode)
	RegisterCustomTranslation(notBlankTag, "حقل {0} لا يمكن أن يكون فارغًا")
	RegisterCustomTranslation(phoneTag, "رقم الهاتف يجب أن يكون 11 رقمًا ويبدأ بـ 010 أو 011 أو 012 أو 015")
	RegisterCustomTranslation(trackTag, "الشعبة غير معروفة")
	RegisterCustomTranslation(planTag, "خطة الاشتراك غير معروفة")
	RegisterCustomTranslation(codeTag, "صيغة الكود غير صحيحة")
}

// RegisterCustomTranslation: сообщение для тега без параметров.
func RegisterCustomTranslation(tag, text string) {
	registerTranslation(tag, text)
}

func registerTranslation(tag, text string) {
	_ = Validate.RegisterTranslation(tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field(), fe.Param())
			if err != nil {
				return fe.Error()
			}
			return msg
		})
}

// Error: ошибки по полям, уже переведённые.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "\n")
}

// Field: ошибка с одним полем, для проверок вне тегов.
func Field(name, msg string) *Error {
	return &Error{Fields: map[string]string{name: msg}}
}

// Check валидирует структуру; ошибки валидации возвращает как *Error.
func Check(v any) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fe.Translate(Translator)
	}
	return out
}

// Var: проверка одного значения по тегам.
func Var(name string, value any, tag string) error {
	err := Validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	return Field(name, verrs[0].Translate(Translator))
}

// IsValidation: err (или его причина) является ошибкой валидации.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func phone(fl validator.FieldLevel) bool {
	return phoneRe.MatchString(NormalizePhone(fl.Field().String()))
}

func track(fl validator.FieldLevel) bool {
	_, ok := models.ParseTrack(fl.Field().String())
	return ok
}

func plan(fl validator.FieldLevel) bool {
	_, ok := models.PlanByCode(fl.Field().String())
	return ok
}

func redeemCode(fl validator.FieldLevel) bool {
	return codeRe.MatchString(strings.TrimSpace(fl.Field().String()))
}

// NormalizePhone убирает пробелы/дефисы и переводит арабские цифры в латинские.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}
