package models

import "time"

// Course: отдельно продаваемый набор видео, вне дерева класс/семестр/юнит.
type Course struct {
	ID          int64
	Title       string
	Description string
	Price       int
	IsFree      bool
	TeacherID   *int64
	Videos      []CourseVideo
}

type CourseVideo struct {
	ID       int64
	CourseID int64
	Title    string
	VideoURL string
	Position int
	IsFree   bool
}

type CoursePurchase struct {
	UserID      int64
	CourseID    int64
	PurchasedAt time.Time
}

// FreeVideo: бесплатное видео вне юнитов и курсов. GradeID nil, для всех классов.
type FreeVideo struct {
	ID        int64
	Title     string
	VideoURL  string
	GradeID   *int64
	CreatedAt time.Time
}
