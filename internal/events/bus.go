// Package events: сигналы инвалидации после успешных записей.
// Подписчики (кэши, уведомления) реагируют на событие, а не на счётчик версий.
package events

import "sync"

type Topic string

const (
	TopicCatalog       Topic = "catalog"
	TopicSubscriptions Topic = "subscriptions"
	TopicProgress      Topic = "progress"
)

// Event: что изменилось. UserID/UnitID нулевые, если изменение глобальное.
type Event struct {
	Topic  Topic
	UserID int64
	UnitID int64
}

type Handler func(Event)

type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]Handler)}
}

// Subscribe регистрирует обработчик; возвращённая функция отписывает его.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish синхронно вызывает обработчики темы. Nil-шина допустима.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.subs[e.Topic]))
	for _, h := range b.subs[e.Topic] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(e)
	}
}
