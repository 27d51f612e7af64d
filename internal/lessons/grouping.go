// Package lessons собирает плоский список частей урока (объяснение, домашка,
// экзамен, конспект) в логические уроки и считает прогресс.
package lessons

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

// typePrefixes: слова-префиксы типа части, которые отрезаются от названия.
// Арабские варианты с артиклем и без, плюс английские.
var typePrefixes = []string{
	"الشرح", "شرح",
	"الواجب", "واجب",
	"الامتحان", "امتحان", "الاختبار", "اختبار",
	"الملخص", "ملخص",
	"Explanation", "Homework", "Exam", "Summary",
}

const separators = ":-–—|."

// BaseTitle: название без префикса типа, ключ группировки.
// Это не отображаемое значение, а ключ склейки частей в один урок.
func BaseTitle(title string) string {
	t := strings.TrimSpace(title)
	for _, p := range typePrefixes {
		if len(t) < len(p) || !strings.EqualFold(t[:len(p)], p) {
			continue
		}
		rest := t[len(p):]
		if rest != "" {
			r, _ := utf8.DecodeRuneInString(rest)
			if !unicode.IsSpace(r) && !strings.ContainsRune(separators, r) {
				// «Examples…» не префикс «Exam»
				continue
			}
		}
		rest = strings.TrimSpace(strings.TrimLeftFunc(rest, func(r rune) bool {
			return unicode.IsSpace(r) || strings.ContainsRune(separators, r)
		}))
		if rest == "" {
			// название из одного префикса: ключом остаётся само название
			return t
		}
		return rest
	}
	return t
}

type GroupedLesson struct {
	BaseTitle        string
	Parts            map[models.LessonType]models.Lesson
	CompletedCount   int
	TotalParts       int
	ProgressPercent  int
	IsFullyCompleted bool
}

// Ordered: части урока в порядке объяснение → домашка → экзамен → конспект.
func (g GroupedLesson) Ordered() []models.Lesson {
	out := make([]models.Lesson, 0, len(g.Parts))
	for _, t := range models.LessonTypes {
		if l, ok := g.Parts[t]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Group склеивает части по BaseTitle. На каждый тип в группе не больше
// одной части; при дубликате (тот же тип и то же базовое название)
// побеждает более поздняя во входном списке.
// Группы идут в порядке первого появления названия.
func Group(list []models.Lesson, progress map[int64]bool) []GroupedLesson {
	index := make(map[string]int)
	var groups []GroupedLesson
	for _, l := range list {
		key := BaseTitle(l.Title)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, GroupedLesson{
				BaseTitle: key,
				Parts:     make(map[models.LessonType]models.Lesson),
			})
		}
		groups[i].Parts[l.Type] = l
	}
	for i := range groups {
		g := &groups[i]
		g.TotalParts = len(g.Parts)
		for _, l := range g.Parts {
			if progress[l.ID] {
				g.CompletedCount++
			}
		}
		g.ProgressPercent = percent(g.CompletedCount, g.TotalParts)
		g.IsFullyCompleted = g.TotalParts > 0 && g.CompletedCount == g.TotalParts
	}
	return groups
}

type UnitProgress struct {
	Lessons          int
	CompletedLessons int
	Parts            int
	CompletedParts   int
	Percent          int
}

// Summarize: сводный прогресс по юниту.
func Summarize(groups []GroupedLesson) UnitProgress {
	var p UnitProgress
	for _, g := range groups {
		p.Lessons++
		p.Parts += g.TotalParts
		p.CompletedParts += g.CompletedCount
		if g.IsFullyCompleted {
			p.CompletedLessons++
		}
	}
	p.Percent = percent(p.CompletedParts, p.Parts)
	return p
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}
