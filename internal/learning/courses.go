package learning

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/learning-platform-bot/internal/access"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

type VideoView struct {
	Video    models.CourseVideo
	Decision access.Decision
}

// CourseView: курс с решением доступа к нему и к каждому видео.
// У закрытых видео ссылка не отдаётся.
type CourseView struct {
	Course    models.Course
	Decision  access.Decision
	Purchased bool
	Videos    []VideoView
}

func (s *Service) Courses(ctx context.Context) ([]models.Course, error) {
	return db.ListCourses(ctx, s.db)
}

func (s *Service) CourseView(ctx context.Context, user models.User, courseID int64) (*CourseView, error) {
	c, err := db.GetCourse(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	purchased, err := db.HasPurchased(ctx, s.db, user.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("has purchased: %w", err)
	}
	subs, err := db.FetchActiveSubscriptions(ctx, s.db, user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions: %w", err)
	}
	now := s.now()
	v := &CourseView{
		Course:    *c,
		Decision:  access.Decide(user, access.CourseTarget(*c, purchased), subs, now),
		Purchased: purchased,
	}
	metrics.ObserveAccess(string(v.Decision.Reason))
	for _, video := range c.Videos {
		d := access.Decide(user, access.CourseVideoTarget(*c, video, purchased), subs, now)
		if !d.Granted {
			video.VideoURL = ""
		}
		v.Videos = append(v.Videos, VideoView{Video: video, Decision: d})
	}
	v.Course.Videos = nil
	return v, nil
}

// RecordPurchase: админ отмечает оплату курса пользователем.
func (s *Service) RecordPurchase(ctx context.Context, admin models.User, userID, courseID int64) error {
	if err := requireStaff(admin); err != nil {
		return err
	}
	return db.RecordPurchase(ctx, s.db, userID, courseID)
}

type CourseVideoInput struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	VideoURL string `json:"video_url" validate:"required,url"`
	IsFree   bool   `json:"is_free"`
}

type CourseInput struct {
	Title       string             `json:"title" validate:"required,notblank,max=200"`
	Description string             `json:"description" validate:"max=2000"`
	Price       int                `json:"price" validate:"gte=0"`
	IsFree      bool               `json:"is_free"`
	TeacherID   *int64             `json:"teacher_id"`
	Videos      []CourseVideoInput `json:"videos" validate:"dive"`
}

// CreateCourse: курс вместе с видео, порядок видео как во входе.
func (s *Service) CreateCourse(ctx context.Context, admin models.User, in CourseInput) (*models.Course, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	c := models.Course{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price,
		IsFree:      in.IsFree,
		TeacherID:   in.TeacherID,
	}
	for i, v := range in.Videos {
		c.Videos = append(c.Videos, models.CourseVideo{
			Title: strings.TrimSpace(v.Title), VideoURL: v.VideoURL, Position: i + 1, IsFree: v.IsFree,
		})
	}
	id, err := db.CreateCourse(ctx, s.db, c)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return db.GetCourse(ctx, s.db, id)
}

type FreeVideoView struct {
	Video    models.FreeVideo
	Decision access.Decision
}

// FreeVideos: бесплатные видео для класса ученика, доступ решает тот же Decide.
func (s *Service) FreeVideos(ctx context.Context, user models.User) ([]FreeVideoView, error) {
	list, err := db.ListFreeVideos(ctx, s.db, user.GradeID)
	if err != nil {
		return nil, fmt.Errorf("list free videos: %w", err)
	}
	now := s.now()
	out := make([]FreeVideoView, 0, len(list))
	for _, v := range list {
		d := access.Decide(user, access.FreeVideo{ID: v.ID}, nil, now)
		metrics.ObserveAccess(string(d.Reason))
		out = append(out, FreeVideoView{Video: v, Decision: d})
	}
	return out, nil
}

type FreeVideoInput struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	VideoURL string `json:"video_url" validate:"required,url"`
	GradeID  *int64 `json:"grade_id"`
}

func (s *Service) CreateFreeVideo(ctx context.Context, admin models.User, in FreeVideoInput) (*models.FreeVideo, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	if in.GradeID != nil {
		if _, err := db.GetGrade(ctx, s.db, *in.GradeID); err != nil {
			return nil, err
		}
	}
	return db.CreateFreeVideo(ctx, s.db, models.FreeVideo{
		Title: strings.TrimSpace(in.Title), VideoURL: in.VideoURL, GradeID: in.GradeID,
	})
}

func (s *Service) DeleteFreeVideo(ctx context.Context, admin models.User, id int64) error {
	if err := requireStaff(admin); err != nil {
		return err
	}
	return db.DeleteFreeVideo(ctx, s.db, id)
}
