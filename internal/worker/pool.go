package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"aula-backend/internal/models"
	"aula-backend/internal/repository"
	"aula-backend/internal/services"
)

const notificationQueue = "queue:notifications"

// Pool drains the notification queue and delivers emails. Delivery is
// best-effort: a failed job is logged and dropped, never retried into the
// request path.
type Pool struct {
	redis       *redis.Client
	store       services.Store
	userRepo    *repository.UserRepo
	email       *services.EmailService
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	store services.Store,
	userRepo *repository.UserRepo,
	email *services.EmailService,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		store:       store,
		userRepo:    userRepo,
		email:       email,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d notification workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, notificationQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.NotificationJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse notification job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("notification_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing notification %s (kind: %s)", id, job.ID, job.Kind)

		var processErr error
		switch job.Kind {
		case "invitation":
			processErr = p.processInvitation(ctx, &job)
		case "session-live":
			processErr = p.processSessionLive(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown notification kind: %s", job.Kind)
		}

		if processErr != nil {
			log.Printf("Worker %d: notification %s failed: %v", id, job.ID, processErr)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processInvitation(ctx context.Context, job *models.NotificationJob) error {
	session, err := p.store.GetSession(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	hostName := "Your instructor"
	if host, err := p.userRepo.GetByID(ctx, session.HostID); err == nil {
		hostName = host.FullName
	}

	invitees, err := p.userRepo.ListByIDs(ctx, job.UserIDs)
	if err != nil {
		return fmt.Errorf("failed to load invitees: %w", err)
	}

	for i := range invitees {
		u := &invitees[i]
		if err := p.email.SendInvitationEmail(u.Email, u.FullName, session, hostName); err != nil {
			log.Printf("invitation email to %s failed: %v", u.Email, err)
		}
	}
	return nil
}

func (p *Pool) processSessionLive(ctx context.Context, job *models.NotificationJob) error {
	session, err := p.store.GetSession(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	// Only public sessions announce to their audience.
	if session.Privacy != models.PrivacyPublic || session.Status != models.SessionLive {
		return nil
	}

	audience, err := p.userRepo.ListByRoles(ctx, session.Kind.AudienceRoles())
	if err != nil {
		return fmt.Errorf("failed to load audience: %w", err)
	}

	for i := range audience {
		u := &audience[i]
		if u.ID == session.HostID {
			continue
		}
		if err := p.email.SendSessionLiveEmail(u.Email, u.FullName, session); err != nil {
			log.Printf("session-live email to %s failed: %v", u.Email, err)
		}
	}
	return nil
}
