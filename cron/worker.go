package cron

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"shutterhub/config"
	sessionRepo "shutterhub/database/repository/session"
	"shutterhub/services/allocation"
	"shutterhub/services/waitlist"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const (
	TypeWaitlistSweep = "waitlist:expire_sweep"
	TypeLotteryDraw   = "lottery:conduct_draw"
)

// drawPayload names the session whose lottery is due.
type drawPayload struct {
	SessionID string `json:"session_id"`
}

// InitAllocationWorker runs the async worker in background: the periodic
// waitlist expiry sweep and due lottery draws.
func InitAllocationWorker(engine *allocation.Engine, manager *waitlist.Manager, sessions sessionRepo.SessionRepository) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeWaitlistSweep, handleWaitlistSweep(manager))
	mux.HandleFunc(TypeLotteryDraw, handleLotteryDraw(engine))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Periodically enqueue the sweep and any due draws.
	go enqueueScheduledTasks(redisOpts, sessions)

	// Start async worker with retry logic
	go func() {
		log.Println("[AllocationWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[AllocationWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[AllocationWorker] max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// enqueueScheduledTasks ticks on the configured sweep interval, queueing one
// waitlist sweep per tick and one draw task per due lottery session. Draw
// tasks are idempotent: the drawn flag makes a duplicate a no-op.
func enqueueScheduledTasks(redisOpts asynq.RedisClientOpt, sessions sessionRepo.SessionRepository) {
	client := asynq.NewClient(redisOpts)
	defer client.Close()

	interval := time.Duration(config.AppConfig.SweepIntervalMin) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := client.Enqueue(asynq.NewTask(TypeWaitlistSweep, nil)); err != nil {
			log.Printf("[AllocationWorker] failed to enqueue waitlist sweep: %v", err)
		}

		due, err := sessions.ListDueLotteries(time.Now())
		if err != nil {
			log.Printf("[AllocationWorker] failed to list due lotteries: %v", err)
			continue
		}
		for _, session := range due {
			b, err := json.Marshal(drawPayload{SessionID: session.ID})
			if err != nil {
				continue
			}
			if _, err := client.Enqueue(asynq.NewTask(TypeLotteryDraw, b)); err != nil {
				log.Printf("[AllocationWorker] failed to enqueue draw for %s: %v", session.ID, err)
			}
		}
	}
}

func handleWaitlistSweep(manager *waitlist.Manager) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		expired, err := manager.ExpireStalePromotions(ctx, time.Now())
		if err != nil {
			log.Printf("[WaitlistSweep] sweep failed: %v", err)
			return err
		}
		if expired > 0 {
			log.Printf("[WaitlistSweep] expired %d stale promotions", expired)
		}
		return nil
	}
}

func handleLotteryDraw(engine *allocation.Engine) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p drawPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[LotteryDraw] invalid payload: %v", err)
			return err
		}

		result, err := engine.ConductDraw(ctx, p.SessionID, "")
		if err != nil {
			if errors.Is(err, allocation.ErrAlreadyDrawn) {
				// A concurrent trigger got there first.
				return nil
			}
			log.Printf("[LotteryDraw] draw failed for %s: %v", p.SessionID, err)
			return err
		}

		log.Printf("[LotteryDraw] session %s drawn: %d winners, %d losers",
			result.SessionID, len(result.WinnerIDs), len(result.LoserIDs))
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[AllocationWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
