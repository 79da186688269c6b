package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"aula-backend/internal/models"
)

const (
	notificationQueue = "queue:notifications"
	fanoutTimeout     = 5 * time.Second
)

// SessionEventsChannel names the pub/sub channel carrying realtime events
// for one session. The websocket hub subscribes to it.
func SessionEventsChannel(sessionID uuid.UUID) string {
	return "session_events:" + sessionID.String()
}

// NotificationFanout delivers best-effort notifications about sessions and
// invitations. Implementations must be safe to call from the request path;
// callers never wait on delivery and never see fanout failures.
type NotificationFanout interface {
	NotifyInvited(ctx context.Context, session *models.Session, userIDs []uuid.UUID) error
	NotifyAudience(ctx context.Context, session *models.Session) error
	PublishEvent(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) error
}

// RedisFanout enqueues email jobs for the worker pool and publishes
// realtime events for connected websocket clients.
type RedisFanout struct {
	queue  *redis.Client
	pubsub *redis.Client
}

func NewRedisFanout(queue, pubsub *redis.Client) *RedisFanout {
	return &RedisFanout{queue: queue, pubsub: pubsub}
}

func (f *RedisFanout) NotifyInvited(ctx context.Context, session *models.Session, userIDs []uuid.UUID) error {
	return f.enqueue(ctx, models.NotificationJob{
		ID:        uuid.New(),
		Kind:      "invitation",
		SessionID: session.ID,
		UserIDs:   userIDs,
		CreatedAt: time.Now().UTC(),
	})
}

func (f *RedisFanout) NotifyAudience(ctx context.Context, session *models.Session) error {
	return f.enqueue(ctx, models.NotificationJob{
		ID:        uuid.New(),
		Kind:      "session-live",
		SessionID: session.ID,
		CreatedAt: time.Now().UTC(),
	})
}

func (f *RedisFanout) PublishEvent(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return f.pubsub.Publish(ctx, SessionEventsChannel(sessionID), data).Err()
}

func (f *RedisFanout) enqueue(ctx context.Context, job models.NotificationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification job: %w", err)
	}
	return f.queue.LPush(ctx, notificationQueue, data).Err()
}

// fireAndForget runs a fanout call on its own goroutine with a bounded
// context. Failures are logged and never reach the caller; a notification
// must not roll back the operation that triggered it.
func fireAndForget(what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("fanout: %s failed: %v", what, err)
		}
	}()
}
