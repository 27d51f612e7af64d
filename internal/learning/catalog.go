package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/learning-platform-bot/internal/access"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/events"
	"github.com/Spok95/learning-platform-bot/internal/lessons"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

// Grades: дерево каталога из кэша.
func (s *Service) Grades(ctx context.Context) ([]models.Grade, error) {
	s.mu.RLock()
	cached := s.grades
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	grades, err := db.ListGrades(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	if grades == nil {
		grades = []models.Grade{}
	}
	s.mu.Lock()
	s.grades = grades
	s.mu.Unlock()
	return grades, nil
}

func (s *Service) invalidateCatalog() {
	s.mu.Lock()
	s.grades = nil
	s.mu.Unlock()
}

// Units: юниты семестра, совместимые с профилем пользователя.
func (s *Service) Units(ctx context.Context, user models.User, semesterID int64) ([]models.Unit, error) {
	grades, err := s.Grades(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range grades {
		for _, sem := range g.Semesters {
			if sem.ID == semesterID {
				return access.FilterUnits(user.Track, sem.Units), nil
			}
		}
	}
	return nil, db.ErrNotFound
}

// UnitView: юнит с решением доступа и сгруппированными уроками.
// У невидимых уроков содержимое (видео, вопросы, ответы) вычищено.
type UnitView struct {
	Unit      models.Unit
	Decision  access.Decision
	Groups    []lessons.GroupedLesson
	Progress  lessons.UnitProgress
	Visible   map[int64]bool
	Completed map[int64]bool
}

func (s *Service) UnitView(ctx context.Context, user models.User, unitID int64) (*UnitView, error) {
	unit, err := db.GetUnit(ctx, s.db, unitID)
	if err != nil {
		return nil, err
	}
	d, err := s.decideUnit(ctx, user, *unit)
	if err != nil {
		return nil, err
	}
	list, err := db.ListLessonsByUnit(ctx, s.db, unitID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	progress, err := db.FetchProgress(ctx, s.db, user.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}

	visible := make(map[int64]bool, len(list))
	for i := range list {
		ok := access.LessonVisible(user, *unit, list[i], d)
		visible[list[i].ID] = ok
		if !ok {
			list[i] = stripPayload(list[i])
		}
	}
	groups := lessons.Group(list, progress)
	return &UnitView{
		Unit:      *unit,
		Decision:  d,
		Groups:    groups,
		Progress:  lessons.Summarize(groups),
		Visible:   visible,
		Completed: progress,
	}, nil
}

func (s *Service) decideUnit(ctx context.Context, user models.User, unit models.Unit) (access.Decision, error) {
	subs, err := db.FetchActiveSubscriptions(ctx, s.db, user.ID, s.now())
	if err != nil {
		return access.Decision{}, fmt.Errorf("fetch subscriptions: %w", err)
	}
	d := access.Decide(user, access.UnitTarget(unit), subs, s.now())
	metrics.ObserveAccess(string(d.Reason))
	return d, nil
}

// LessonView: одна часть урока для показа.
type LessonView struct {
	Lesson    models.Lesson
	Unit      models.Unit
	Decision  access.Decision
	Visible   bool
	Completed bool
	Latest    *models.QuizAttempt
}

func (s *Service) LessonView(ctx context.Context, user models.User, lessonID int64) (*LessonView, error) {
	v, err := s.gate(ctx, user, lessonID)
	if err != nil {
		return nil, err
	}
	progress, err := db.FetchProgress(ctx, s.db, user.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}
	v.Completed = progress[lessonID]
	if v.Visible && v.Lesson.Type.IsQuiz() {
		latest, err := db.FetchLatestQuizAttempt(ctx, s.db, user.ID, lessonID)
		switch {
		case err == nil:
			v.Latest = latest
		case !errors.Is(err, db.ErrNotFound):
			return nil, fmt.Errorf("latest attempt: %w", err)
		}
	}
	return v, nil
}

// gate: урок, юнит и решение; невидимый урок возвращается без содержимого.
func (s *Service) gate(ctx context.Context, user models.User, lessonID int64) (*LessonView, error) {
	l, err := db.GetLesson(ctx, s.db, lessonID)
	if err != nil {
		return nil, err
	}
	unit, err := db.GetUnit(ctx, s.db, l.UnitID)
	if err != nil {
		return nil, err
	}
	d, err := s.decideUnit(ctx, user, *unit)
	if err != nil {
		return nil, err
	}
	v := &LessonView{Lesson: *l, Unit: *unit, Decision: d}
	v.Visible = access.LessonVisible(user, *unit, *l, d)
	if !v.Visible {
		v.Lesson = stripPayload(v.Lesson)
	}
	return v, nil
}

func stripPayload(l models.Lesson) models.Lesson {
	l.VideoURL = ""
	l.ImageURL = ""
	l.CorrectAnswers = nil
	l.Questions = nil
	l.SummaryHTML = ""
	return l
}

// UnitInput: создание/правка юнита админом.
type UnitInput struct {
	SemesterID int64  `json:"semester_id" validate:"required,gt=0"`
	TeacherID  *int64 `json:"teacher_id"`
	Title      string `json:"title" validate:"required,notblank,max=200"`
	Track      string `json:"track" validate:"track"`
	IsFree     bool   `json:"is_free"`
}

func (in UnitInput) unit() models.Unit {
	t := models.Track(in.Track)
	if t == "" {
		t = models.TrackAll
	}
	return models.Unit{
		SemesterID: in.SemesterID,
		TeacherID:  in.TeacherID,
		Title:      strings.TrimSpace(in.Title),
		Track:      t,
		IsFree:     in.IsFree,
	}
}

func (s *Service) CreateUnit(ctx context.Context, admin models.User, in UnitInput) (*models.Unit, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	u := in.unit()
	id, err := db.CreateUnit(ctx, s.db, u)
	if err != nil {
		return nil, fmt.Errorf("create unit: %w", err)
	}
	u.ID = id
	s.publish(events.TopicCatalog, 0, id)
	return &u, nil
}

func (s *Service) UpdateUnit(ctx context.Context, admin models.User, id int64, in UnitInput) (*models.Unit, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	u := in.unit()
	u.ID = id
	if err := db.UpdateUnit(ctx, s.db, u); err != nil {
		return nil, err
	}
	s.publish(events.TopicCatalog, 0, id)
	return db.GetUnit(ctx, s.db, id)
}

func (s *Service) DeleteUnit(ctx context.Context, admin models.User, id int64) error {
	if err := requireStaff(admin); err != nil {
		return err
	}
	if err := db.DeleteUnit(ctx, s.db, id); err != nil {
		return err
	}
	s.publish(events.TopicCatalog, 0, id)
	return nil
}

// LessonInput: новая часть урока.
type LessonInput struct {
	UnitID         int64             `json:"unit_id" validate:"required,gt=0"`
	Type           string            `json:"type" validate:"required,oneof=EXPLANATION HOMEWORK EXAM SUMMARY"`
	Title          string            `json:"title" validate:"required,notblank,max=200"`
	VideoURL       string            `json:"video_url" validate:"omitempty,url"`
	ImageURL       string            `json:"image_url" validate:"omitempty,url"`
	CorrectAnswers []string          `json:"correct_answers"`
	Questions      []models.Question `json:"questions"`
	SummaryHTML    string            `json:"summary_html"`
	PassingScore   *int              `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	TimeLimit      int               `json:"time_limit" validate:"gte=0,lte=600"`
	IsFree         bool              `json:"is_free"`
}

func (s *Service) CreateLesson(ctx context.Context, admin models.User, in LessonInput) (*models.Lesson, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	for i, q := range in.Questions {
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return nil, validation.Field("questions", fmt.Sprintf("السؤال %d: رقم الإجابة الصحيحة خارج الخيارات", i+1))
		}
	}
	if in.ImageURL != "" && len(in.CorrectAnswers) == 0 && models.LessonType(in.Type).IsQuiz() {
		return nil, validation.Field("correct_answers", "اختبار الصورة يحتاج إلى إجابة مقبولة واحدة على الأقل")
	}
	l := models.Lesson{
		UnitID:         in.UnitID,
		Type:           models.LessonType(in.Type),
		Title:          strings.TrimSpace(in.Title),
		VideoURL:       in.VideoURL,
		ImageURL:       in.ImageURL,
		CorrectAnswers: in.CorrectAnswers,
		Questions:      in.Questions,
		SummaryHTML:    in.SummaryHTML,
		PassingScore:   in.PassingScore,
		TimeLimit:      in.TimeLimit,
		IsFree:         in.IsFree,
	}
	id, err := db.CreateLesson(ctx, s.db, l)
	if err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	l.ID = id
	s.publish(events.TopicCatalog, 0, l.UnitID)
	return &l, nil
}

func (s *Service) DeleteLesson(ctx context.Context, admin models.User, id int64) error {
	if err := requireStaff(admin); err != nil {
		return err
	}
	l, err := db.GetLesson(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err := db.DeleteLesson(ctx, s.db, id); err != nil {
		return err
	}
	s.publish(events.TopicCatalog, 0, l.UnitID)
	return nil
}

func (s *Service) Teachers(ctx context.Context) ([]models.User, error) {
	return db.ListTeachers(ctx, s.db)
}
