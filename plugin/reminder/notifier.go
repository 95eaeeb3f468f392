package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hrygo/studyhub/store"
)

// Notification is the payload handed to the delivery process.
type Notification struct {
	ReminderID  int32     `json:"reminder_id"`
	ReminderUID string    `json:"reminder_uid"`
	UserID      int32     `json:"user_id"`
	ItemID      int32     `json:"item_id"`
	PlanID      int32     `json:"plan_id"`
	Method      string    `json:"method"`
	Priority    int       `json:"priority"`
	DueAt       time.Time `json:"due_at"`
}

// NewNotification builds the payload for a stored reminder.
func NewNotification(r *store.StudyReminder) *Notification {
	return &Notification{
		ReminderID:  r.ID,
		ReminderUID: r.UID,
		UserID:      r.CreatorID,
		ItemID:      r.ItemID,
		PlanID:      r.PlanID,
		Method:      r.Method,
		Priority:    r.Priority,
		DueAt:       time.Unix(r.ReminderTs, 0).UTC(),
	}
}

// Notifier hands a due reminder to whatever delivers it to the user.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// LogNotifier only logs. It is the default when no delivery transport is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, notification *Notification) error {
	n.logger.Info("study reminder due",
		"reminder_id", notification.ReminderID,
		"user_id", notification.UserID,
		"item_id", notification.ItemID,
		"method", notification.Method,
	)
	return nil
}

// Publisher is the subset of a Redis client used by RedisNotifier.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes notifications as JSON on a Redis channel.
type RedisNotifier struct {
	client  Publisher
	channel string
}

func NewRedisNotifier(client Publisher, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, notification *Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// MockNotifier records notifications for tests.
type MockNotifier struct {
	mu   sync.Mutex
	sent []*Notification
	// Err, when set, is returned by Notify.
	Err error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(_ context.Context, notification *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, notification)
	return nil
}

func (m *MockNotifier) Sent() []*Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Notification(nil), m.sent...)
}

func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
