package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registration struct {
	Name  string `json:"name" validate:"required,notblank,min=3,max=100"`
	Phone string `json:"phone" validate:"required,phone_eg"`
	Email string `json:"email" validate:"omitempty,email"`
	Track string `json:"track" validate:"track"`
	Plan  string `json:"plan" validate:"omitempty,plan"`
}

func TestCheck_Valid(t *testing.T) {
	err := Check(registration{Name: "منى علي", Phone: "01012345678", Email: "m@example.com", Track: "Math", Plan: "term"})
	assert.NoError(t, err)
}

func TestCheck_FieldErrorsAreTranslated(t *testing.T) {
	err := Check(registration{Name: "  ", Phone: "0191234567", Email: "nope", Track: "Art", Plan: "weekly"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, IsValidation(err))
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields["phone"], "010")
	assert.Contains(t, verr.Fields["email"], "email")
	assert.Equal(t, "الشعبة غير معروفة", verr.Fields["track"])
	assert.Equal(t, "خطة الاشتراك غير معروفة", verr.Fields["plan"])
}

func TestPhone_ArabicDigitsAndSpaces(t *testing.T) {
	assert.Equal(t, "01112345678", NormalizePhone("٠١١ 1234-5678"))
	assert.NoError(t, Check(registration{Name: "علي", Phone: "٠١١ 1234 5678", Track: ""}))
	assert.Error(t, Check(registration{Name: "علي", Phone: "01312345678"}))
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("code", "ABCD-1234", "required,redeem_code"))
	err := Var("code", "!!", "required,redeem_code")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "صيغة الكود غير صحيحة", err.Error())
}
