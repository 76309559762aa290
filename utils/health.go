package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus is the latest probe result for the service's backing stores.
type HealthStatus struct {
	Healthy    bool            `json:"healthy"`
	Components map[string]bool `json:"components"`
	CheckedAt  time.Time       `json:"checked_at"`
}

var (
	currentHealth HealthStatus
	healthMu      sync.RWMutex
)

// GetHealthStatus returns the latest stored health snapshot.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return currentHealth
}

// StartHealthMonitor probes Mongo and the named redis clients periodically,
// keeping an in-memory snapshot for the health endpoint. The first probe runs
// immediately so the endpoint never serves an empty status.
func StartHealthMonitor(redisClients map[string]*redis.Client, mongoClient *mongo.Client) {
	probe := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		components := make(map[string]bool, len(redisClients)+1)
		components["mongo"] = mongoClient.Ping(ctx, nil) == nil
		for name, client := range redisClients {
			components[name] = client.Ping(ctx).Err() == nil
		}

		healthy := true
		for _, up := range components {
			healthy = healthy && up
		}

		healthMu.Lock()
		currentHealth = HealthStatus{
			Healthy:    healthy,
			Components: components,
			CheckedAt:  time.Now(),
		}
		healthMu.Unlock()
	}

	go func() {
		probe()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			probe()
		}
	}()
}
