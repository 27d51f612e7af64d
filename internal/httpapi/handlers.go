package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/learning-platform-bot/internal/access"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "bad_id", "معرّف غير صالح")
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_json", "بيانات الطلب غير صالحة")
		return false
	}
	return true
}

func (a *API) register(c *gin.Context) {
	if _, ok := currentUser(c); ok {
		RespondError(c, http.StatusConflict, "already_registered", "الحساب مسجّل بالفعل")
		return
	}
	var in learning.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	subject := currentSubject(c)
	in.AuthSubject = &subject
	in.TelegramID = nil
	user, err := a.svc.Register(c.Request.Context(), in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUser(*user))
}

// redeemCode работает и без регистрации: аккаунт создаётся вместе с подпиской.
func (a *API) redeemCode(c *gin.Context) {
	var in learning.RedeemInput
	if !bindJSON(c, &in) {
		return
	}
	subject := currentSubject(c)
	in.AuthSubject = &subject
	in.TelegramID = nil
	sub, user, err := a.svc.RedeemCode(c.Request.Context(), in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{
		"subscription": toSubscription(*sub, time.Now()),
		"user":         toUser(*user),
	})
}

func (a *API) me(c *gin.Context) {
	user, _ := currentUser(c)
	RespondOK(c, toUser(user))
}

func (a *API) updateMe(c *gin.Context) {
	user, _ := currentUser(c)
	var in learning.ProfileInput
	if !bindJSON(c, &in) {
		return
	}
	updated, err := a.svc.UpdateProfile(c.Request.Context(), user, in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, toUser(*updated))
}

// platformAccess: есть ли доступ ко всей платформе (комплексная подписка).
func (a *API) platformAccess(c *gin.Context) {
	user, _ := currentUser(c)
	ok, err := a.svc.HasPlatformAccess(c.Request.Context(), user)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"platform": ok})
}

func (a *API) deleteMe(c *gin.Context) {
	user, _ := currentUser(c)
	if err := a.svc.DeleteAccount(c.Request.Context(), user, user.ID); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) grades(c *gin.Context) {
	user, _ := currentUser(c)
	grades, err := a.svc.Grades(c.Request.Context())
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, toGrades(grades, func(us []models.Unit) []models.Unit {
		return access.FilterUnits(user.Track, us)
	}))
}

func (a *API) units(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, _ := currentUser(c)
	units, err := a.svc.Units(c.Request.Context(), user, id)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, toUnits(units))
}

func (a *API) unit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, _ := currentUser(c)
	v, err := a.svc.UnitView(c.Request.Context(), user, id)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, toUnitView(v))
}

// lesson: закрытая часть отдаётся с locked=true и без содержимого.
func (a *API) lesson(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, _ := currentUser(c)
	v, err := a.svc.LessonView(c.Request.Context(), user, id)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	out := gin.H{
		"lesson": toLesson(v.Lesson, !v.Visible, v.Completed),
		"access": toDecision(v.Decision),
	}
	if v.Latest != nil {
		out["latest_attempt"] = toAttempt(*v.Latest)
	}
	RespondOK(c, out)
}

func (a *API) complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, _ := currentUser(c)
	newly, err := a.svc.MarkComplete(c.Request.Context(), user, id)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"completed": true, "already_completed": !newly})
}

type submitRequest struct {
	Choices   []int    `json:"choices"`
	Lines     []string `json:"lines"`
	Text      string   `json:"text"`
	TimeTaken int      `json:"time_taken" binding:"gte=0"`
}

func (a *API) submit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req submitRequest
	if !bindJSON(c, &req) {
		return
	}
	answers := quiz.Answers{Choices: req.Choices, Lines: req.Lines}
	if len(answers.Lines) == 0 && req.Text != "" {
		answers.Lines = quiz.SplitLines(req.Text)
	}
	user, _ := currentUser(c)
	attempt, err := a.svc.SubmitAnswers(c.Request.Context(), user, id, answers, time.Duration(req.TimeTaken)*time.Second)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAttempt(*attempt))
}

func (a *API) attempts(c *gin.Context) {
	var lessonID *int64
	if c.Param("id") != "" {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		lessonID = &id
	}
	user, _ := currentUser(c)
	list, err := a.svc.Attempts(c.Request.Context(), user, lessonID)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	out := make([]attemptDTO, 0, len(list))
	for _, at := range list {
		out = append(out, toAttemptWithLesson(at))
	}
	RespondOK(c, out)
}

func (a *API) subscriptions(c *gin.Context) {
	user, _ := currentUser(c)
	subs, err := a.svc.Subscriptions(c.Request.Context(), user)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	now := time.Now()
	out := make([]subscriptionDTO, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscription(s, now))
	}
	RespondOK(c, out)
}

func (a *API) requestSubscription(c *gin.Context) {
	var in learning.RequestInput
	if !bindJSON(c, &in) {
		return
	}
	user, _ := currentUser(c)
	req, err := a.svc.RequestSubscription(c.Request.Context(), user, in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRequest(*req))
}

func (a *API) courses(c *gin.Context) {
	list, err := a.svc.Courses(c.Request.Context())
	if err != nil {
		a.respondErr(c, err)
		return
	}
	out := make([]courseDTO, 0, len(list))
	for _, co := range list {
		out = append(out, toCourse(co))
	}
	RespondOK(c, out)
}

func (a *API) course(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, _ := currentUser(c)
	v, err := a.svc.CourseView(c.Request.Context(), user, id)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, toCourseView(v))
}

// --- админские ---

func (a *API) pendingRequests(c *gin.Context) {
	admin, _ := currentUser(c)
	list, err := a.svc.PendingRequests(c.Request.Context(), admin)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	out := make([]requestDTO, 0, len(list))
	for _, r := range list {
		out = append(out, toRequest(r))
	}
	RespondOK(c, out)
}

func (a *API) approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	sub, err := a.svc.ApproveRequest(c.Request.Context(), admin, id)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, toSubscription(*sub, time.Now()))
}

func (a *API) reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	req, err := a.svc.RejectRequest(c.Request.Context(), admin, id)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, toRequest(*req))
}

func (a *API) generateCodes(c *gin.Context) {
	var in learning.GenerateCodesInput
	if !bindJSON(c, &in) {
		return
	}
	admin, _ := currentUser(c)
	codes, err := a.svc.GenerateCodes(c.Request.Context(), admin, in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	out := make([]codeDTO, 0, len(codes))
	for _, cd := range codes {
		out = append(out, codeDTO{Code: cd.Code, Plan: cd.Plan, DurationDays: cd.DurationDays, ValidUntil: cd.ValidUntil})
	}
	c.JSON(http.StatusCreated, out)
}

func (a *API) createUnit(c *gin.Context) {
	var in learning.UnitInput
	if !bindJSON(c, &in) {
		return
	}
	admin, _ := currentUser(c)
	u, err := a.svc.CreateUnit(c.Request.Context(), admin, in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUnit(*u))
}

func (a *API) updateUnit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in learning.UnitInput
	if !bindJSON(c, &in) {
		return
	}
	admin, _ := currentUser(c)
	u, err := a.svc.UpdateUnit(c.Request.Context(), admin, id, in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	RespondOK(c, toUnit(*u))
}

func (a *API) deleteUnit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.DeleteUnit(c.Request.Context(), admin, id); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) createLesson(c *gin.Context) {
	var in learning.LessonInput
	if !bindJSON(c, &in) {
		return
	}
	admin, _ := currentUser(c)
	l, err := a.svc.CreateLesson(c.Request.Context(), admin, in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLesson(*l, false, false))
}

func (a *API) deleteLesson(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.DeleteLesson(c.Request.Context(), admin, id); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) deleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.DeleteAccount(c.Request.Context(), admin, id); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) resetDevices(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.ResetDevices(c.Request.Context(), admin, id); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) setRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.SetRole(c.Request.Context(), admin, id, models.Role(req.Role)); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) setActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Active == nil {
		a.respondErr(c, validation.Field("active", "القيمة مطلوبة"))
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.SetActive(c.Request.Context(), admin, id, *req.Active); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) teachers(c *gin.Context) {
	list, err := a.svc.Teachers(c.Request.Context())
	if err != nil {
		a.respondErr(c, err)
		return
	}
	out := make([]userDTO, 0, len(list))
	for _, t := range list {
		out = append(out, toUser(t))
	}
	RespondOK(c, out)
}

func (a *API) cancelSubscription(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.CancelSubscription(c.Request.Context(), admin, id); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) createCourse(c *gin.Context) {
	var in learning.CourseInput
	if !bindJSON(c, &in) {
		return
	}
	admin, _ := currentUser(c)
	course, err := a.svc.CreateCourse(c.Request.Context(), admin, in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCourse(*course))
}

func (a *API) freeVideos(c *gin.Context) {
	user, _ := currentUser(c)
	list, err := a.svc.FreeVideos(c.Request.Context(), user)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	out := make([]freeVideoDTO, 0, len(list))
	for _, v := range list {
		d := toFreeVideo(v.Video)
		dec := toDecision(v.Decision)
		d.Access = &dec
		out = append(out, d)
	}
	RespondOK(c, out)
}

func (a *API) createFreeVideo(c *gin.Context) {
	var in learning.FreeVideoInput
	if !bindJSON(c, &in) {
		return
	}
	admin, _ := currentUser(c)
	v, err := a.svc.CreateFreeVideo(c.Request.Context(), admin, in)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFreeVideo(*v))
}

func (a *API) deleteFreeVideo(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.DeleteFreeVideo(c.Request.Context(), admin, id); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) recordPurchase(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course_id")
	if !ok {
		return
	}
	admin, _ := currentUser(c)
	if err := a.svc.RecordPurchase(c.Request.Context(), admin, userID, courseID); err != nil {
		a.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// report: xlsx за период ?from=YYYY-MM-DD&to=YYYY-MM-DD (по умолчанию последние 30 дней).
func (a *API) report(c *gin.Context) {
	kind, ok := learning.ParseReportKind(c.Param("kind"))
	if !ok {
		RespondError(c, http.StatusNotFound, "unknown_report", "نوع التقرير غير معروف")
		return
	}
	to := time.Now().In(a.loc)
	from := to.AddDate(0, 0, -30)
	if v := c.Query("from"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, a.loc)
		if err != nil {
			a.respondErr(c, validation.Field("from", "تاريخ غير صالح"))
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, a.loc)
		if err != nil {
			a.respondErr(c, validation.Field("to", "تاريخ غير صالح"))
			return
		}
		to = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if to.Before(from) {
		a.respondErr(c, validation.Field("to", "نهاية الفترة قبل بدايتها"))
		return
	}
	admin, _ := currentUser(c)
	name, data, err := a.svc.Report(c.Request.Context(), admin, kind, from, to)
	if err != nil {
		a.respondErr(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+name+"\"")
	c.Data(http.StatusOK, xlsxContentType, data)
}
