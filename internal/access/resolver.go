// Package access решает, может ли пользователь открыть платный контент.
//
// Решение: чистая функция от (пользователь, цель, подписки, текущее время):
// никакого скрытого состояния, «активность» подписки каждый раз
// пересчитывается по endDate.
package access

import (
	"time"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

type Reason string

const (
	ReasonFree          Reason = "free"
	ReasonPurchased     Reason = "purchased"
	ReasonComprehensive Reason = "comprehensive"
	ReasonScoped        Reason = "scoped"
	ReasonDenied        Reason = "denied"
)

type Decision struct {
	Granted bool
	Reason  Reason
	// SubscriptionID: подписка, давшая доступ (правила 2 и 3).
	SubscriptionID int64
}

// Target: то, к чему запрашивается доступ.
type Target interface {
	isTarget()
}

// Platform: доступ «ко всей платформе», даёт только комплексная подписка.
type Platform struct{}

type Unit struct {
	ID        int64
	TeacherID *int64
	Free      bool
}

// FreeVideo: бесплатное видео вне юнитов.
type FreeVideo struct {
	ID int64
}

type Course struct {
	ID        int64
	TeacherID *int64
	Free      bool
	Purchased bool
}

type CourseVideo struct {
	ID         int64
	CourseID   int64
	TeacherID  *int64
	Free       bool
	CourseFree bool
	Purchased  bool
}

func (Platform) isTarget()    {}
func (Unit) isTarget()        {}
func (FreeVideo) isTarget()   {}
func (Course) isTarget()      {}
func (CourseVideo) isTarget() {}

func UnitTarget(u models.Unit) Unit {
	return Unit{ID: u.ID, TeacherID: u.TeacherID, Free: u.IsFree}
}

func CourseTarget(c models.Course, purchased bool) Course {
	return Course{ID: c.ID, TeacherID: c.TeacherID, Free: c.IsFree, Purchased: purchased}
}

func CourseVideoTarget(c models.Course, v models.CourseVideo, purchased bool) CourseVideo {
	return CourseVideo{
		ID: v.ID, CourseID: c.ID, TeacherID: c.TeacherID,
		Free: v.IsFree, CourseFree: c.IsFree, Purchased: purchased,
	}
}

// HasAccess: короткая форма Decide.
func HasAccess(user models.User, target Target, subs []models.Subscription, now time.Time) bool {
	return Decide(user, target, subs, now).Granted
}

// Decide применяет правила по порядку, первое сработавшее побеждает:
// бесплатная цель → комплексная подписка → подписка на юнит/учителя → отказ.
func Decide(_ models.User, target Target, subs []models.Subscription, now time.Time) Decision {
	if target == nil {
		return Decision{Reason: ReasonDenied}
	}
	if d, ok := freeDecision(target); ok {
		return d
	}
	for _, s := range subs {
		if s.IsComprehensive() && s.ActiveAt(now) {
			return Decision{Granted: true, Reason: ReasonComprehensive, SubscriptionID: s.ID}
		}
	}
	unitID, teacherID := scope(target)
	for _, s := range subs {
		if !s.ActiveAt(now) || s.IsComprehensive() {
			continue
		}
		if unitID != nil && s.UnitID != nil && *s.UnitID == *unitID {
			return Decision{Granted: true, Reason: ReasonScoped, SubscriptionID: s.ID}
		}
		// подписка «на учителя»: без юнита, но с teacher_id
		if teacherID != nil && s.UnitID == nil && s.TeacherID != nil && *s.TeacherID == *teacherID {
			return Decision{Granted: true, Reason: ReasonScoped, SubscriptionID: s.ID}
		}
	}
	return Decision{Reason: ReasonDenied}
}

func freeDecision(target Target) (Decision, bool) {
	switch t := target.(type) {
	case Unit:
		if t.Free {
			return Decision{Granted: true, Reason: ReasonFree}, true
		}
	case FreeVideo:
		return Decision{Granted: true, Reason: ReasonFree}, true
	case Course:
		if t.Free {
			return Decision{Granted: true, Reason: ReasonFree}, true
		}
		if t.Purchased {
			return Decision{Granted: true, Reason: ReasonPurchased}, true
		}
	case CourseVideo:
		if t.Free || t.CourseFree {
			return Decision{Granted: true, Reason: ReasonFree}, true
		}
		if t.Purchased {
			return Decision{Granted: true, Reason: ReasonPurchased}, true
		}
	case Platform:
	}
	return Decision{}, false
}

func scope(target Target) (unitID, teacherID *int64) {
	switch t := target.(type) {
	case Unit:
		id := t.ID
		return &id, t.TeacherID
	case Course:
		return nil, t.TeacherID
	case CourseVideo:
		return nil, t.TeacherID
	}
	return nil, nil
}

// ActiveSubscriptions: подписки, активные в момент now.
func ActiveSubscriptions(subs []models.Subscription, now time.Time) []models.Subscription {
	out := make([]models.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.ActiveAt(now) {
			out = append(out, s)
		}
	}
	return out
}

// LessonVisible: итоговая видимость части урока: профиль должен совпадать,
// бесплатная часть-объяснение открыта всем, остальное по решению Decide.
func LessonVisible(user models.User, unit models.Unit, lesson models.Lesson, d Decision) bool {
	if !Compatible(user.Track, unit.Track) {
		return false
	}
	if lesson.Type == models.Explanation && lesson.IsFree {
		return true
	}
	return d.Granted
}
