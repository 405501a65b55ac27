// Package clock предоставляет источник текущего времени,
// который можно подменить в тестах.
package clock

import (
	"sync"
	"time"
)

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// Real: системные часы.
type Real struct{}

// Now возвращает time.Now().
func (Real) Now() time.Time { return time.Now() }

// Fixed: часы, стоящие на заданном моменте. Время можно сдвигать.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed создаёт часы, показывающие t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

// Now возвращает текущее показание.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Set переставляет часы.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// Advance сдвигает часы на d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
