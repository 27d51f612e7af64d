package lessons

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

func TestBaseTitle(t *testing.T) {
	cases := map[string]string{
		"Explanation: Algebra I":  "Algebra I",
		"Homework: Algebra I":     "Algebra I",
		"exam - Algebra I":        "Algebra I",
		"Summary Algebra I":       "Algebra I",
		"Examples of functions":   "Examples of functions",
		"شرح الدرس الأول":         "الدرس الأول",
		"واجب: الدرس الأول":       "الدرس الأول",
		"الامتحان - الدرس الأول":  "الدرس الأول",
		"ملخص الدرس الأول":        "الدرس الأول",
		"  الدرس الأول  ":         "الدرس الأول",
		"Exam":                    "Exam",
		"ملخص : ":                 "ملخص :",
	}
	for in, want := range cases {
		assert.Equal(t, want, BaseTitle(in), in)
	}
}

func lesson(id int64, typ models.LessonType, title string) models.Lesson {
	return models.Lesson{ID: id, UnitID: 1, Type: typ, Title: title}
}

func TestGroup_MergesPartsAndCountsProgress(t *testing.T) {
	list := []models.Lesson{
		lesson(1, models.Explanation, "Explanation: Algebra I"),
		lesson(2, models.Homework, "Homework: Algebra I"),
		lesson(3, models.Exam, "Exam: Algebra I"),
		lesson(4, models.Explanation, "شرح الهندسة"),
	}
	groups := Group(list, map[int64]bool{1: true, 2: true, 4: true})
	require.Len(t, groups, 2)

	alg := groups[0]
	assert.Equal(t, "Algebra I", alg.BaseTitle)
	assert.Equal(t, 3, alg.TotalParts)
	assert.Equal(t, 2, alg.CompletedCount)
	assert.Equal(t, 67, alg.ProgressPercent)
	assert.False(t, alg.IsFullyCompleted)

	geo := groups[1]
	assert.Equal(t, "الهندسة", geo.BaseTitle)
	assert.Equal(t, 100, geo.ProgressPercent)
	assert.True(t, geo.IsFullyCompleted)

	ordered := alg.Ordered()
	require.Len(t, ordered, 3)
	assert.Equal(t, models.Explanation, ordered[0].Type)
	assert.Equal(t, models.Exam, ordered[2].Type)
}

func TestGroup_LaterDuplicateWins(t *testing.T) {
	list := []models.Lesson{
		lesson(1, models.Homework, "Homework: A"),
		lesson(2, models.Homework, "واجب A"),
	}
	groups := Group(list, nil)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2), groups[0].Parts[models.Homework].ID)
	assert.Equal(t, 1, groups[0].TotalParts)
}

func TestGroup_PrefixOnlyTitlesStayApart(t *testing.T) {
	groups := Group([]models.Lesson{
		lesson(1, models.Exam, "Exam"),
		lesson(2, models.Summary, "Summary"),
	}, nil)
	require.Len(t, groups, 2)
	assert.Equal(t, "Exam", groups[0].BaseTitle)
	assert.Equal(t, "Summary", groups[1].BaseTitle)
}

func TestGroup_EmptyInput(t *testing.T) {
	assert.Empty(t, Group(nil, nil))
	p := Summarize(nil)
	assert.Equal(t, 0, p.Percent)
}

func membership(groups []GroupedLesson) map[string][]int64 {
	out := make(map[string][]int64)
	for _, g := range groups {
		for _, l := range g.Parts {
			out[g.BaseTitle] = append(out[g.BaseTitle], l.ID)
		}
		sort.Slice(out[g.BaseTitle], func(i, j int) bool { return out[g.BaseTitle][i] < out[g.BaseTitle][j] })
	}
	return out
}

func TestGroup_MembershipIndependentOfOrder(t *testing.T) {
	list := []models.Lesson{
		lesson(1, models.Explanation, "Explanation: A"),
		lesson(2, models.Homework, "Homework: A"),
		lesson(3, models.Explanation, "Explanation: B"),
		lesson(4, models.Summary, "Summary: B"),
		lesson(5, models.Exam, "Exam: C"),
	}
	want := membership(Group(list, nil))
	assert.Equal(t, want, membership(Group(list, nil)))

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Lesson(nil), list...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, membership(Group(shuffled, nil)))
	}
}

func TestSummarize(t *testing.T) {
	list := []models.Lesson{
		lesson(1, models.Explanation, "Explanation: A"),
		lesson(2, models.Homework, "Homework: A"),
		lesson(3, models.Explanation, "Explanation: B"),
	}
	p := Summarize(Group(list, map[int64]bool{1: true, 2: true}))
	assert.Equal(t, UnitProgress{Lessons: 2, CompletedLessons: 1, Parts: 3, CompletedParts: 2, Percent: 67}, p)
}
