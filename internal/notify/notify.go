// Package notify carries the transient user-facing notifications emitted by
// the product store.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level is the severity of a notification.
type Level string

// Notification levels.
const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a single transient message for the user.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// New builds a notification with a fresh id.
func New(level Level, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs error notifications as warnings and the rest as info.
func (n *LogNotifier) Notify(notification Notification) {
	fields := []zap.Field{
		zap.String("id", notification.ID),
		zap.String("message", notification.Message),
	}
	if notification.Level == LevelError {
		n.logger.Warn("notification", fields...)
		return
	}
	n.logger.Info("notification", fields...)
}

// WriterNotifier prints notifications as plain lines, e.g. to a terminal.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a new WriterNotifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify writes one "[level] message" line.
func (n *WriterNotifier) Notify(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", notification.Level, notification.Message)
}

// Feed keeps the most recent notifications in memory, newest last.
type Feed struct {
	mu       sync.RWMutex
	capacity int
	items    []Notification
}

// NewFeed creates a Feed holding at most capacity notifications.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 50
	}
	return &Feed{capacity: capacity}
}

// Notify appends notification, dropping the oldest one when the feed is full.
func (f *Feed) Notify(notification Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, notification)
	if len(f.items) > f.capacity {
		f.items = append([]Notification(nil), f.items[len(f.items)-f.capacity:]...)
	}
}

// Recent returns a copy of the retained notifications.
func (f *Feed) Recent() []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify passes notification to every notifier in order.
func (m Multi) Notify(notification Notification) {
	for _, n := range m {
		n.Notify(notification)
	}
}
