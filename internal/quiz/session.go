package quiz

import (
	"errors"
	"sync"
	"time"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

type State int

const (
	NotStarted State = iota
	InProgress
	Submitted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Submitted:
		return "submitted"
	}
	return "unknown"
}

var (
	ErrAlreadyStarted = errors.New("quiz: attempt already started")
	ErrNotInProgress  = errors.New("quiz: attempt is not in progress")
	ErrNotSubmitted   = errors.New("quiz: attempt is not submitted")
	ErrBadQuestion    = errors.New("quiz: question index out of range")
)

type Submission struct {
	Result
	Answers       Answers
	TimeTaken     time.Duration
	AutoSubmitted bool
}

// Timer: то, что возвращает time.AfterFunc; интерфейс нужен для тестов.
type Timer interface {
	Stop() bool
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithAfterFunc(f func(time.Duration, func()) Timer) Option {
	return func(s *Session) { s.afterFunc = f }
}

// Session: одна попытка прохождения теста.
// NotStarted → InProgress → Submitted; Retake возвращает в NotStarted.
type Session struct {
	mu        sync.Mutex
	lesson    models.Lesson
	state     State
	answers   Answers
	startedAt time.Time
	timer     Timer
	last      *Submission

	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer
}

func NewSession(l models.Lesson, opts ...Option) *Session {
	s := &Session{
		lesson: l,
		now:    time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, o := range opts {
		o(s)
	}
	s.answers = s.emptyAnswers()
	return s
}

func (s *Session) emptyAnswers() Answers {
	a := Answers{}
	if !s.lesson.IsImageQuiz() {
		a.Choices = make([]int, len(s.lesson.Questions))
		for i := range a.Choices {
			a.Choices[i] = -1
		}
	}
	return a
}

func (s *Session) Lesson() models.Lesson { return s.lesson }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start запускает попытку. Если у урока есть лимит времени, по его
// истечении текущие ответы отправляются автоматически (ровно один раз)
// и результат передаётся в onExpire.
func (s *Session) Start(onExpire func(Submission)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != NotStarted {
		return ErrAlreadyStarted
	}
	s.state = InProgress
	s.startedAt = s.now()
	if s.lesson.TimeLimit > 0 {
		s.timer = s.afterFunc(time.Duration(s.lesson.TimeLimit)*time.Minute, func() {
			sub, ok := s.expire()
			if ok && onExpire != nil {
				onExpire(sub)
			}
		})
	}
	return nil
}

// Remaining: сколько осталось до автоотправки; 0, если таймера нет.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress || s.lesson.TimeLimit <= 0 {
		return 0
	}
	left := time.Duration(s.lesson.TimeLimit)*time.Minute - s.now().Sub(s.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) Choose(question, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return ErrNotInProgress
	}
	if question < 0 || question >= len(s.answers.Choices) {
		return ErrBadQuestion
	}
	s.answers.Choices[question] = option
	return nil
}

func (s *Session) SetLines(lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return ErrNotInProgress
	}
	s.answers.Lines = append([]string(nil), lines...)
	return nil
}

// Answers: копия текущих ответов.
func (s *Session) Answers() Answers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAnswers(s.answers)
}

// Submit: ручная отправка. Тест по картинке без правильных ответов не
// отправляется: состояние не меняется, возвращается ErrNoAcceptedAnswers.
func (s *Session) Submit() (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(false)
}

func (s *Session) expire() (Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return Submission{}, false
	}
	sub, err := s.submitLocked(true)
	return sub, err == nil
}

func (s *Session) submitLocked(auto bool) (Submission, error) {
	if s.state != InProgress {
		return Submission{}, ErrNotInProgress
	}
	res, err := Evaluate(s.lesson, s.answers)
	if err != nil {
		return Submission{}, err
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = Submitted
	sub := Submission{
		Result:        res,
		Answers:       copyAnswers(s.answers),
		TimeTaken:     s.now().Sub(s.startedAt),
		AutoSubmitted: auto,
	}
	s.last = &sub
	return sub, nil
}

// Last: результат последней отправки.
func (s *Session) Last() (Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Submission{}, false
	}
	return *s.last, true
}

// Retake: новая попытка после отправки.
func (s *Session) Retake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Submitted {
		return ErrNotSubmitted
	}
	s.state = NotStarted
	s.answers = s.emptyAnswers()
	s.last = nil
	return nil
}

// Stop гасит таймер (уход со страницы / сброс диалога). Состояние не меняется.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func copyAnswers(a Answers) Answers {
	return Answers{
		Choices: append([]int(nil), a.Choices...),
		Lines:   append([]string(nil), a.Lines...),
	}
}
