package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tubemark-backend/internal/models"
)

const (
	TagUsageQueue = "queue:tag-usage"

	popTimeout  = 5 * time.Second
	lockTTL     = time.Minute
	maxAttempts = 3
)

// TagUsageJob asks a worker to recount the tag usage of one user.
type TagUsageJob struct {
	UserID     uuid.UUID `json:"userId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Attempts   int       `json:"attempts,omitempty"`
}

// UsageSyncer is satisfied by *repository.TagRepo.
type UsageSyncer interface {
	SyncUsage(ctx context.Context, ownerID uuid.UUID) error
}

// EventPublisher is satisfied by *websocket.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event models.Event) error
}

// Queue pushes tag-usage jobs onto the Redis list consumed by Pool.
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

func (q *Queue) EnqueueTagUsage(ctx context.Context, userID uuid.UUID) error {
	return push(ctx, q.redis, TagUsageJob{UserID: userID, EnqueuedAt: time.Now().UTC()})
}

func push(ctx context.Context, rdb *redis.Client, job TagUsageJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := rdb.RPush(ctx, TagUsageQueue, data).Err(); err != nil {
		return fmt.Errorf("enqueue tag usage job: %w", err)
	}
	return nil
}

func lockKey(userID uuid.UUID) string {
	return "tag_usage_lock:" + userID.String()
}

type Pool struct {
	redis       *redis.Client
	syncer      UsageSyncer
	events      EventPublisher
	logger      *slog.Logger
	workerCount int

	stopChan chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPool builds the worker pool. events may be nil, in which case recounts are not announced.
func NewPool(redisClient *redis.Client, syncer UsageSyncer, events EventPublisher, logger *slog.Logger, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		redis:       redisClient,
		syncer:      syncer,
		events:      events,
		logger:      logger,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("started tag usage workers", "count", p.workerCount)
}

// Stop signals every worker and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			p.logger.Debug("worker shutting down", "worker", id)
			return
		default:
		}

		result, err := p.redis.BLPop(p.ctx, popTimeout, TagUsageQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && p.ctx.Err() == nil {
				p.logger.Warn("tag usage queue pop failed", "worker", id, "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job TagUsageJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			p.logger.Error("failed to parse tag usage job", "worker", id, "error", err)
			continue
		}

		// in-flight jobs finish even when Stop was called
		p.process(context.Background(), id, job)
	}
}

func (p *Pool) process(ctx context.Context, workerID int, job TagUsageJob) {
	key := lockKey(job.UserID)
	locked, err := p.redis.SetNX(ctx, key, workerID, lockTTL).Result()
	if err != nil {
		p.retry(ctx, job, err)
		return
	}
	if !locked {
		// another worker holds this user's lock; requeue so the recount sees the latest rows
		time.AfterFunc(time.Second, func() {
			if err := push(context.Background(), p.redis, job); err != nil {
				p.logger.Error("failed to requeue tag usage job", "user_id", job.UserID, "error", err)
			}
		})
		return
	}
	defer p.redis.Del(ctx, key)

	start := time.Now()
	if err := p.syncer.SyncUsage(ctx, job.UserID); err != nil {
		p.retry(ctx, job, err)
		return
	}
	p.logger.Debug("tag usage recounted",
		"worker", workerID,
		"user_id", job.UserID,
		"queued_for", start.Sub(job.EnqueuedAt).String(),
		"took", time.Since(start).String(),
	)

	if p.events == nil {
		return
	}
	event := models.Event{Type: models.EventInvalidate, Resource: models.ResourceTags}
	if err := p.events.Publish(ctx, job.UserID, event); err != nil {
		p.logger.Warn("failed to publish tag invalidation", "user_id", job.UserID, "error", err)
	}
}

func (p *Pool) retry(ctx context.Context, job TagUsageJob, cause error) {
	job.Attempts++
	if job.Attempts >= maxAttempts {
		p.logger.Error("tag usage job failed permanently", "user_id", job.UserID, "attempts", job.Attempts, "error", cause)
		return
	}

	backoff := time.Duration(1<<uint(job.Attempts)) * time.Second
	p.logger.Warn("tag usage job failed, retrying", "user_id", job.UserID, "attempt", job.Attempts, "backoff", backoff.String(), "error", cause)
	time.AfterFunc(backoff, func() {
		if err := push(context.Background(), p.redis, job); err != nil {
			p.logger.Error("failed to requeue tag usage job", "user_id", job.UserID, "error", err)
		}
	})
}
