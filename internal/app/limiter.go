package app

import "sync"

// ChatLimiter: апдейты одного чата обрабатываются по одному, разные чаты параллельно.
type ChatLimiter struct {
	mu   sync.Mutex
	byID map[int64]*sync.Mutex
	wg   sync.WaitGroup
}

func NewChatLimiter() *ChatLimiter {
	return &ChatLimiter{byID: make(map[int64]*sync.Mutex)}
}

func (l *ChatLimiter) lock(chatID int64) func() {
	l.mu.Lock()
	m, ok := l.byID[chatID]
	if !ok {
		m = &sync.Mutex{}
		l.byID[chatID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Go запускает fn в горутине под замком чата.
func (l *ChatLimiter) Go(chatID int64, fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		unlock := l.lock(chatID)
		defer unlock()
		fn()
	}()
}

// Wait: дождаться обработки уже принятых апдейтов (при остановке).
func (l *ChatLimiter) Wait() { l.wg.Wait() }
