package quiz

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	fn      func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := !f.stopped
	f.stopped = true
	return was
}

func (f *fakeTimer) fire() {
	f.fn()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestSession(l models.Lesson) (*Session, *fakeClock, *[]*fakeTimer) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	timers := &[]*fakeTimer{}
	s := NewSession(l,
		WithClock(clock.Now),
		WithAfterFunc(func(d time.Duration, f func()) Timer {
			ft := &fakeTimer{d: d, fn: f}
			*timers = append(*timers, ft)
			return ft
		}),
	)
	return s, clock, timers
}

func TestSession_Lifecycle(t *testing.T) {
	l := models.Lesson{ID: 1, Type: models.Exam, Questions: questions(1, 2)}
	s, clock, timers := newTestSession(l)
	assert.Equal(t, NotStarted, s.State())

	_, err := s.Submit()
	assert.ErrorIs(t, err, ErrNotInProgress)

	require.NoError(t, s.Start(nil))
	assert.Empty(t, *timers)
	assert.ErrorIs(t, s.Start(nil), ErrAlreadyStarted)

	require.NoError(t, s.Choose(0, 1))
	assert.ErrorIs(t, s.Choose(5, 1), ErrBadQuestion)
	clock.Add(90 * time.Second)

	sub, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, 50, sub.Score)
	assert.True(t, sub.IsPass)
	assert.Equal(t, 90*time.Second, sub.TimeTaken)
	assert.False(t, sub.AutoSubmitted)
	assert.Equal(t, Submitted, s.State())

	assert.ErrorIs(t, s.Choose(1, 2), ErrNotInProgress)

	require.NoError(t, s.Retake())
	assert.Equal(t, NotStarted, s.State())
	assert.Equal(t, []int{-1, -1}, s.Answers().Choices)
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestSession_TimerAutoSubmitsOnce(t *testing.T) {
	l := models.Lesson{ID: 2, Type: models.Homework, TimeLimit: 1}
	s, clock, timers := newTestSession(l)

	var (
		mu    sync.Mutex
		calls []Submission
	)
	require.NoError(t, s.Start(func(sub Submission) {
		mu.Lock()
		calls = append(calls, sub)
		mu.Unlock()
	}))
	require.Len(t, *timers, 1)
	assert.Equal(t, time.Minute, (*timers)[0].d)

	clock.Add(time.Minute)
	(*timers)[0].fire()
	(*timers)[0].fire()

	require.Len(t, calls, 1)
	assert.True(t, calls[0].AutoSubmitted)
	assert.Equal(t, 100, calls[0].Score)
	assert.Equal(t, Submitted, s.State())

	_, err := s.Submit()
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestSession_ManualSubmitCancelsTimer(t *testing.T) {
	l := models.Lesson{ID: 3, Type: models.Exam, TimeLimit: 5, Questions: questions(0)}
	s, _, timers := newTestSession(l)
	fired := 0
	require.NoError(t, s.Start(func(Submission) { fired++ }))
	require.NoError(t, s.Choose(0, 0))

	_, err := s.Submit()
	require.NoError(t, err)
	assert.True(t, (*timers)[0].stopped)

	(*timers)[0].fire()
	assert.Zero(t, fired)
}

func TestSession_ImageQuizWithoutAnswersCannotSubmit(t *testing.T) {
	l := models.Lesson{ID: 4, Type: models.Homework, ImageURL: "https://cdn/x.png", TimeLimit: 1}
	s, _, timers := newTestSession(l)
	fired := 0
	require.NoError(t, s.Start(func(Submission) { fired++ }))
	require.NoError(t, s.SetLines([]string{"a"}))

	_, err := s.Submit()
	assert.ErrorIs(t, err, ErrNoAcceptedAnswers)
	assert.Equal(t, InProgress, s.State())

	(*timers)[0].fire()
	assert.Zero(t, fired)
}

func TestSession_RemainingAndStop(t *testing.T) {
	l := models.Lesson{ID: 5, Type: models.Exam, TimeLimit: 2}
	s, clock, timers := newTestSession(l)
	assert.Zero(t, s.Remaining())
	require.NoError(t, s.Start(nil))
	clock.Add(30 * time.Second)
	assert.Equal(t, 90*time.Second, s.Remaining())

	s.Stop()
	assert.True(t, (*timers)[0].stopped)
	assert.Equal(t, InProgress, s.State())
}
