// Package httpapi: JSON API для веб-клиента: те же операции, что и в боте.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
)

// Service: операции learning.Service, нужные API.
type Service interface {
	UserBySubject(ctx context.Context, subject string) (*models.User, error)
	RegisterDevice(ctx context.Context, user models.User, deviceID string) error
	Register(ctx context.Context, in learning.RegisterInput) (*models.User, error)
	DeleteAccount(ctx context.Context, actor models.User, userID int64) error
	ResetDevices(ctx context.Context, admin models.User, userID int64) error
	UpdateProfile(ctx context.Context, user models.User, in learning.ProfileInput) (*models.User, error)
	SetRole(ctx context.Context, admin models.User, userID int64, role models.Role) error
	SetActive(ctx context.Context, admin models.User, userID int64, active bool) error
	HasPlatformAccess(ctx context.Context, user models.User) (bool, error)
	Teachers(ctx context.Context) ([]models.User, error)

	Grades(ctx context.Context) ([]models.Grade, error)
	Units(ctx context.Context, user models.User, semesterID int64) ([]models.Unit, error)
	UnitView(ctx context.Context, user models.User, unitID int64) (*learning.UnitView, error)
	LessonView(ctx context.Context, user models.User, lessonID int64) (*learning.LessonView, error)
	MarkComplete(ctx context.Context, user models.User, lessonID int64) (bool, error)
	SubmitAnswers(ctx context.Context, user models.User, lessonID int64, a quiz.Answers, timeTaken time.Duration) (*models.QuizAttempt, error)
	Attempts(ctx context.Context, user models.User, lessonID *int64) ([]models.AttemptWithLesson, error)

	Subscriptions(ctx context.Context, user models.User) ([]models.Subscription, error)
	RequestSubscription(ctx context.Context, user models.User, in learning.RequestInput) (*models.SubscriptionRequest, error)
	RedeemCode(ctx context.Context, in learning.RedeemInput) (*models.Subscription, *models.User, error)
	Courses(ctx context.Context) ([]models.Course, error)
	CourseView(ctx context.Context, user models.User, courseID int64) (*learning.CourseView, error)

	PendingRequests(ctx context.Context, admin models.User) ([]models.SubscriptionRequest, error)
	ApproveRequest(ctx context.Context, admin models.User, requestID int64) (*models.Subscription, error)
	RejectRequest(ctx context.Context, admin models.User, requestID int64) (*models.SubscriptionRequest, error)
	GenerateCodes(ctx context.Context, admin models.User, in learning.GenerateCodesInput) ([]models.Code, error)
	CreateUnit(ctx context.Context, admin models.User, in learning.UnitInput) (*models.Unit, error)
	UpdateUnit(ctx context.Context, admin models.User, id int64, in learning.UnitInput) (*models.Unit, error)
	DeleteUnit(ctx context.Context, admin models.User, id int64) error
	CreateLesson(ctx context.Context, admin models.User, in learning.LessonInput) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, admin models.User, id int64) error
	RecordPurchase(ctx context.Context, admin models.User, userID, courseID int64) error
	CreateCourse(ctx context.Context, admin models.User, in learning.CourseInput) (*models.Course, error)
	FreeVideos(ctx context.Context, user models.User) ([]learning.FreeVideoView, error)
	CreateFreeVideo(ctx context.Context, admin models.User, in learning.FreeVideoInput) (*models.FreeVideo, error)
	DeleteFreeVideo(ctx context.Context, admin models.User, id int64) error
	CancelSubscription(ctx context.Context, admin models.User, subscriptionID int64) error
	Report(ctx context.Context, admin models.User, kind learning.ReportKind, from, to time.Time) (string, []byte, error)
}

type Options struct {
	JWTSecret   string
	CORSOrigins []string
	Location    *time.Location
}

type API struct {
	svc    Service
	log    *zap.Logger
	secret []byte
	loc    *time.Location
}

func New(svc Service, log *zap.Logger, opts Options) *API {
	if log == nil {
		log = zap.NewNop()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &API{svc: svc, log: log, secret: []byte(opts.JWTSecret), loc: loc}
}

// Register вешает маршруты /api/v1 на движок.
func (a *API) Register(r *gin.Engine, origins []string) {
	r.Use(RequestContext(), Metrics(), CORS(origins))

	v1 := r.Group("/api/v1", a.Authenticate())
	v1.POST("/register", a.register)
	v1.POST("/codes/redeem", a.redeemCode)

	u := v1.Group("", a.RequireUser())
	u.GET("/me", a.me)
	u.PUT("/me", a.updateMe)
	u.DELETE("/me", a.deleteMe)
	u.GET("/me/access", a.platformAccess)
	u.GET("/grades", a.grades)
	u.GET("/semesters/:id/units", a.units)
	u.GET("/units/:id", a.unit)
	u.GET("/lessons/:id", a.lesson)
	u.POST("/lessons/:id/complete", a.complete)
	u.POST("/lessons/:id/attempts", a.submit)
	u.GET("/lessons/:id/attempts", a.attempts)
	u.GET("/attempts", a.attempts)
	u.GET("/subscriptions", a.subscriptions)
	u.POST("/subscription-requests", a.requestSubscription)
	u.GET("/courses", a.courses)
	u.GET("/courses/:id", a.course)
	u.GET("/free-videos", a.freeVideos)

	adm := u.Group("/admin", a.RequireStaff())
	adm.GET("/subscription-requests", a.pendingRequests)
	adm.POST("/subscription-requests/:id/approve", a.approve)
	adm.POST("/subscription-requests/:id/reject", a.reject)
	adm.POST("/codes", a.generateCodes)
	adm.POST("/subscriptions/:id/cancel", a.cancelSubscription)
	adm.POST("/courses", a.createCourse)
	adm.POST("/free-videos", a.createFreeVideo)
	adm.DELETE("/free-videos/:id", a.deleteFreeVideo)
	adm.POST("/units", a.createUnit)
	adm.PUT("/units/:id", a.updateUnit)
	adm.DELETE("/units/:id", a.deleteUnit)
	adm.POST("/lessons", a.createLesson)
	adm.DELETE("/lessons/:id", a.deleteLesson)
	adm.DELETE("/users/:id", a.deleteUser)
	adm.POST("/users/:id/devices/reset", a.resetDevices)
	adm.PUT("/users/:id/role", a.setRole)
	adm.PUT("/users/:id/active", a.setActive)
	adm.GET("/teachers", a.teachers)
	adm.POST("/users/:id/courses/:course_id", a.recordPurchase)
	adm.GET("/reports/:kind", a.report)
}
