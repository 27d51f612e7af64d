package models

import "time"

type Role string

const (
	Student    Role = "student"
	Teacher    Role = "teacher"
	Admin      Role = "admin"
	Supervisor Role = "supervisor"
)

// IsStaff: роли с доступом к админским операциям.
func (r Role) IsStaff() bool {
	return r == Admin || r == Supervisor
}

// Track: профиль (شعبة) ученика или ограничение юнита.
type Track string

const (
	TrackAll        Track = "All"
	TrackScientific Track = "Scientific"
	TrackScience    Track = "Science"
	TrackMath       Track = "Math"
	TrackLiterary   Track = "Literary"
)

// SelectableTracks: профили, которые ученик выбирает при регистрации.
var SelectableTracks = []Track{TrackScientific, TrackScience, TrackMath, TrackLiterary}

func (t Track) Title() string {
	switch t {
	case TrackScientific:
		return "علمي"
	case TrackScience:
		return "علمي علوم"
	case TrackMath:
		return "علمي رياضة"
	case TrackLiterary:
		return "أدبي"
	}
	return "عام"
}

func ParseTrack(s string) (Track, bool) {
	switch Track(s) {
	case TrackAll, TrackScientific, TrackScience, TrackMath, TrackLiterary:
		return Track(s), true
	case "":
		return "", true
	}
	return "", false
}

type User struct {
	ID             int64
	TelegramID     *int64
	AuthSubject    *string
	Name           string
	Phone          string
	Email          *string
	Role           Role
	GradeID        *int64
	Track          Track
	DeviceIDs      []string
	AllowedDevices int
	IsActive       bool
	CreatedAt      time.Time
}
