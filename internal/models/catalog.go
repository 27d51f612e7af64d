package models

type Grade struct {
	ID        int64
	Name      string
	Position  int
	Semesters []Semester
}

type Semester struct {
	ID       int64
	GradeID  int64
	Name     string
	Position int
	Units    []Unit
}

// Unit: предмет внутри семестра. Track пустой или "All", без ограничения.
type Unit struct {
	ID         int64
	SemesterID int64
	TeacherID  *int64
	Title      string
	Track      Track
	IsFree     bool
}
