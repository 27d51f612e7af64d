package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/logging"
	"github.com/Spok95/learning-platform-bot/internal/observability"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: message, Code: code}})
}

// respondErr: ошибка домена в HTTP-статус. Неизвестные ошибки логируются,
// уходят в Sentry, а клиент получает общее «попробуйте ещё раз».
func (a *API) respondErr(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{Error: APIError{
			Message: verr.Error(), Code: "validation", Fields: verr.Fields,
		}})
	case errors.Is(err, db.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", "غير موجود")
	case errors.Is(err, learning.ErrInactive):
		RespondError(c, http.StatusForbidden, "inactive", "الحساب موقوف")
	case errors.Is(err, db.ErrUnknownPlan):
		RespondError(c, http.StatusBadRequest, "unknown_plan", "خطة الاشتراك غير معروفة")
	case errors.Is(err, learning.ErrForbidden):
		RespondError(c, http.StatusForbidden, "forbidden", "غير مسموح")
	case errors.Is(err, learning.ErrLocked):
		RespondError(c, http.StatusPaymentRequired, "subscription_required", "هذا المحتوى يتطلب اشتراكًا")
	case errors.Is(err, learning.ErrNotQuiz):
		RespondError(c, http.StatusBadRequest, "not_quiz", "هذا الدرس ليس اختبارًا")
	case errors.Is(err, learning.ErrQuizCompletion):
		RespondError(c, http.StatusConflict, "quiz_not_passed", "يُسجَّل إكمال الاختبار عند النجاح فيه فقط")
	case errors.Is(err, quiz.ErrNoAcceptedAnswers):
		RespondError(c, http.StatusConflict, "quiz_misconfigured", "لا يمكن تسليم هذا الاختبار حاليًا")
	case errors.Is(err, db.ErrCodeNotFound):
		RespondError(c, http.StatusNotFound, "code_not_found", "الكود غير صحيح")
	case errors.Is(err, db.ErrCodeUsed):
		RespondError(c, http.StatusConflict, "code_used", "تم استخدام هذا الكود من قبل")
	case errors.Is(err, db.ErrCodeExpired):
		RespondError(c, http.StatusGone, "code_expired", "انتهت صلاحية هذا الكود")
	case errors.Is(err, db.ErrRequestNotPending):
		RespondError(c, http.StatusConflict, "request_not_pending", "تمت مراجعة هذا الطلب بالفعل")
	case errors.Is(err, db.ErrDeviceLimit):
		RespondError(c, http.StatusForbidden, "device_limit", "تم الوصول إلى الحد الأقصى لعدد الأجهزة")
	default:
		ctx := c.Request.Context()
		logging.FromContext(ctx, a.log).Error("api error", zap.String("route", c.FullPath()), zap.Error(err))
		observability.CaptureErrCtx(ctx, err)
		RespondError(c, http.StatusInternalServerError, "internal", "حدث خطأ، حاول مرة أخرى")
	}
}
