package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type Subscription struct {
	ID        int64
	UserID    int64
	Plan      string
	Status    SubscriptionStatus
	StartDate time.Time
	EndDate   time.Time
	TeacherID *int64
	UnitID    *int64
	CreatedAt time.Time
}

// IsComprehensive: подписка без привязки к юниту/учителю.
func (s Subscription) IsComprehensive() bool {
	return s.UnitID == nil && s.TeacherID == nil
}

// ActiveAt пересчитывается на каждом чтении, фоновой «протухалки» нет.
func (s Subscription) ActiveAt(now time.Time) bool {
	return s.Status == SubscriptionActive && !s.EndDate.Before(now)
}

type Plan struct {
	Code  string
	Title string
	Days  int
}

var Plans = []Plan{
	{Code: "monthly", Title: "شهري", Days: 30},
	{Code: "term", Title: "ترم دراسي", Days: 120},
	{Code: "annual", Title: "سنوي", Days: 365},
}

func PlanByCode(code string) (Plan, bool) {
	for _, p := range Plans {
		if p.Code == code {
			return p, true
		}
	}
	return Plan{}, false
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type SubscriptionRequest struct {
	ID         int64
	UserID     int64
	Plan       string
	UnitID     *int64
	TeacherID  *int64
	PaymentRef string
	Status     RequestStatus
	ReviewedBy *int64
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

// Code: одноразовый код активации подписки.
type Code struct {
	Code         string
	Plan         string
	DurationDays int
	UnitID       *int64
	TeacherID    *int64
	ValidFrom    time.Time
	ValidUntil   time.Time
	ConsumedBy   *int64
	ConsumedAt   *time.Time
	CreatedBy    *int64
	CreatedAt    time.Time
}
