package httpapi

import (
	"time"

	"github.com/Spok95/learning-platform-bot/internal/access"
	"github.com/Spok95/learning-platform-bot/internal/export"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
)

type userDTO struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Phone          string   `json:"phone"`
	Email          *string  `json:"email,omitempty"`
	Role           string   `json:"role"`
	GradeID        *int64   `json:"grade_id,omitempty"`
	Track          string   `json:"track"`
	Devices        []string `json:"devices"`
	AllowedDevices int      `json:"allowed_devices"`
}

func toUser(u models.User) userDTO {
	devices := u.DeviceIDs
	if devices == nil {
		devices = []string{}
	}
	return userDTO{
		ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email, Role: string(u.Role),
		GradeID: u.GradeID, Track: string(u.Track), Devices: devices, AllowedDevices: u.AllowedDevices,
	}
}

type unitDTO struct {
	ID         int64  `json:"id"`
	SemesterID int64  `json:"semester_id"`
	TeacherID  *int64 `json:"teacher_id,omitempty"`
	Title      string `json:"title"`
	Track      string `json:"track"`
	IsFree     bool   `json:"is_free"`
}

func toUnit(u models.Unit) unitDTO {
	return unitDTO{ID: u.ID, SemesterID: u.SemesterID, TeacherID: u.TeacherID, Title: u.Title, Track: string(u.Track), IsFree: u.IsFree}
}

func toUnits(us []models.Unit) []unitDTO {
	out := make([]unitDTO, 0, len(us))
	for _, u := range us {
		out = append(out, toUnit(u))
	}
	return out
}

type semesterDTO struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Units []unitDTO `json:"units"`
}

type gradeDTO struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Semesters []semesterDTO `json:"semesters"`
}

// toGrades: дерево каталога; юниты отфильтрованы по профилю ученика.
func toGrades(gs []models.Grade, filter func([]models.Unit) []models.Unit) []gradeDTO {
	out := make([]gradeDTO, 0, len(gs))
	for _, g := range gs {
		gd := gradeDTO{ID: g.ID, Name: g.Name, Semesters: []semesterDTO{}}
		for _, s := range g.Semesters {
			gd.Semesters = append(gd.Semesters, semesterDTO{ID: s.ID, Name: s.Name, Units: toUnits(filter(s.Units))})
		}
		out = append(out, gd)
	}
	return out
}

type questionDTO struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// lessonDTO: правильные ответы наружу не отдаются.
type lessonDTO struct {
	ID           int64         `json:"id"`
	UnitID       int64         `json:"unit_id"`
	Type         string        `json:"type"`
	Title        string        `json:"title"`
	VideoURL     string        `json:"video_url,omitempty"`
	ImageURL     string        `json:"image_url,omitempty"`
	Questions    []questionDTO `json:"questions,omitempty"`
	SummaryHTML  string        `json:"summary_html,omitempty"`
	PassingScore int           `json:"passing_score,omitempty"`
	TimeLimit    int           `json:"time_limit,omitempty"`
	IsFree       bool          `json:"is_free"`
	Locked       bool          `json:"locked"`
	Completed    bool          `json:"completed"`
}

func toLesson(l models.Lesson, locked, completed bool) lessonDTO {
	d := lessonDTO{
		ID: l.ID, UnitID: l.UnitID, Type: string(l.Type), Title: l.Title,
		VideoURL: l.VideoURL, ImageURL: l.ImageURL, SummaryHTML: l.SummaryHTML,
		TimeLimit: l.TimeLimit, IsFree: l.IsFree, Locked: locked, Completed: completed,
	}
	if l.Type.IsQuiz() && !locked {
		d.PassingScore = quiz.PassingScore(l)
	}
	for _, q := range l.Questions {
		d.Questions = append(d.Questions, questionDTO{Text: q.Text, Options: q.Options})
	}
	return d
}

type groupDTO struct {
	BaseTitle        string      `json:"base_title"`
	Parts            []lessonDTO `json:"parts"`
	CompletedCount   int         `json:"completed_count"`
	TotalParts       int         `json:"total_parts"`
	ProgressPercent  int         `json:"progress_percent"`
	IsFullyCompleted bool        `json:"is_fully_completed"`
}

type decisionDTO struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
}

func toDecision(d access.Decision) decisionDTO {
	return decisionDTO{Granted: d.Granted, Reason: string(d.Reason)}
}

type progressDTO struct {
	Lessons          int `json:"lessons"`
	CompletedLessons int `json:"completed_lessons"`
	Parts            int `json:"parts"`
	CompletedParts   int `json:"completed_parts"`
	Percent          int `json:"percent"`
}

type unitViewDTO struct {
	Unit     unitDTO     `json:"unit"`
	Access   decisionDTO `json:"access"`
	Groups   []groupDTO  `json:"groups"`
	Progress progressDTO `json:"progress"`
}

func toUnitView(v *learning.UnitView) unitViewDTO {
	out := unitViewDTO{
		Unit:   toUnit(v.Unit),
		Access: toDecision(v.Decision),
		Groups: []groupDTO{},
		Progress: progressDTO{
			Lessons: v.Progress.Lessons, CompletedLessons: v.Progress.CompletedLessons,
			Parts: v.Progress.Parts, CompletedParts: v.Progress.CompletedParts, Percent: v.Progress.Percent,
		},
	}
	for _, g := range v.Groups {
		gd := groupDTO{
			BaseTitle: g.BaseTitle, CompletedCount: g.CompletedCount, TotalParts: g.TotalParts,
			ProgressPercent: g.ProgressPercent, IsFullyCompleted: g.IsFullyCompleted,
		}
		for _, l := range g.Ordered() {
			gd.Parts = append(gd.Parts, toLesson(l, !v.Visible[l.ID], v.Completed[l.ID]))
		}
		out.Groups = append(out.Groups, gd)
	}
	return out
}

type attemptDTO struct {
	ID               int64     `json:"id"`
	LessonID         int64     `json:"lesson_id"`
	LessonTitle      string    `json:"lesson_title,omitempty"`
	UnitTitle        string    `json:"unit_title,omitempty"`
	LessonDeleted    bool      `json:"lesson_deleted,omitempty"`
	Score            int       `json:"score"`
	IsPass           bool      `json:"is_pass"`
	SubmittedAnswers []string  `json:"submitted_answers"`
	TimeTaken        int       `json:"time_taken"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

func toAttempt(a models.QuizAttempt) attemptDTO {
	answers := a.SubmittedAnswers
	if answers == nil {
		answers = []string{}
	}
	return attemptDTO{
		ID: a.ID, LessonID: a.LessonID, Score: a.Score, IsPass: a.IsPass,
		SubmittedAnswers: answers, TimeTaken: a.TimeTaken, SubmittedAt: a.SubmittedAt,
	}
}

func toAttemptWithLesson(a models.AttemptWithLesson) attemptDTO {
	d := toAttempt(a.QuizAttempt)
	if a.LessonTitle == nil {
		d.LessonDeleted = true
		d.LessonTitle = export.DeletedLessonTitle
	} else {
		d.LessonTitle = *a.LessonTitle
	}
	if a.UnitTitle != nil {
		d.UnitTitle = *a.UnitTitle
	}
	return d
}

type subscriptionDTO struct {
	ID        int64     `json:"id"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	Active    bool      `json:"active"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	UnitID    *int64    `json:"unit_id,omitempty"`
	TeacherID *int64    `json:"teacher_id,omitempty"`
}

func toSubscription(s models.Subscription, now time.Time) subscriptionDTO {
	return subscriptionDTO{
		ID: s.ID, Plan: s.Plan, Status: string(s.Status), Active: s.ActiveAt(now),
		StartDate: s.StartDate, EndDate: s.EndDate, UnitID: s.UnitID, TeacherID: s.TeacherID,
	}
}

type requestDTO struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Plan       string     `json:"plan"`
	UnitID     *int64     `json:"unit_id,omitempty"`
	TeacherID  *int64     `json:"teacher_id,omitempty"`
	PaymentRef string     `json:"payment_ref"`
	Status     string     `json:"status"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toRequest(r models.SubscriptionRequest) requestDTO {
	return requestDTO{
		ID: r.ID, UserID: r.UserID, Plan: r.Plan, UnitID: r.UnitID, TeacherID: r.TeacherID,
		PaymentRef: r.PaymentRef, Status: string(r.Status), ReviewedAt: r.ReviewedAt, CreatedAt: r.CreatedAt,
	}
}

type codeDTO struct {
	Code         string    `json:"code"`
	Plan         string    `json:"plan"`
	DurationDays int       `json:"duration_days"`
	ValidUntil   time.Time `json:"valid_until"`
}

type courseDTO struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Price       int          `json:"price"`
	IsFree      bool         `json:"is_free"`
	TeacherID   *int64       `json:"teacher_id,omitempty"`
	Purchased   bool         `json:"purchased,omitempty"`
	Access      *decisionDTO `json:"access,omitempty"`
	Videos      []videoDTO   `json:"videos,omitempty"`
}

type videoDTO struct {
	ID       int64       `json:"id"`
	Title    string      `json:"title"`
	VideoURL string      `json:"video_url,omitempty"`
	IsFree   bool        `json:"is_free"`
	Access   decisionDTO `json:"access"`
}

type freeVideoDTO struct {
	ID       int64        `json:"id"`
	Title    string       `json:"title"`
	VideoURL string       `json:"video_url"`
	GradeID  *int64       `json:"grade_id,omitempty"`
	Access   *decisionDTO `json:"access,omitempty"`
}

func toFreeVideo(v models.FreeVideo) freeVideoDTO {
	return freeVideoDTO{ID: v.ID, Title: v.Title, VideoURL: v.VideoURL, GradeID: v.GradeID}
}

func toCourse(c models.Course) courseDTO {
	return courseDTO{ID: c.ID, Title: c.Title, Description: c.Description, Price: c.Price, IsFree: c.IsFree, TeacherID: c.TeacherID}
}

func toCourseView(v *learning.CourseView) courseDTO {
	d := toCourse(v.Course)
	dec := toDecision(v.Decision)
	d.Access = &dec
	d.Purchased = v.Purchased
	for _, vv := range v.Videos {
		d.Videos = append(d.Videos, videoDTO{
			ID: vv.Video.ID, Title: vv.Video.Title, VideoURL: vv.Video.VideoURL, IsFree: vv.Video.IsFree,
			Access: toDecision(vv.Decision),
		})
	}
	return d
}
