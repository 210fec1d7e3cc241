package app

import (
	"sync"

	"quiz-backend/internal/domain"
)

// ResultFeed fans newly scored results out to per-quiz subscribers.
type ResultFeed struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Result]struct{}
}

func NewResultFeed() *ResultFeed {
	return &ResultFeed{subscribers: make(map[int64]map[chan domain.Result]struct{})}
}

// Subscribe returns a channel receiving results for quizID.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *ResultFeed) Subscribe(quizID int64) (<-chan domain.Result, func()) {
	ch := make(chan domain.Result, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.Result]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers result to every subscriber of its quiz without blocking.
func (f *ResultFeed) Publish(result domain.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[result.QuizID] {
		select {
		case ch <- result:
		default:
			// Full buffer: drop the oldest update.
			select {
			case <-ch:
			default:
			}
			ch <- result
		}
	}
}

// Subscribers reports how many listeners a quiz currently has.
func (f *ResultFeed) Subscribers(quizID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[quizID])
}
