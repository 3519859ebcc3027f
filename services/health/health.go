// Package health reports the liveness of the API and the stores behind it.
package health

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusCritical = "critical"

	depUp       = "up"
	depDown     = "down"
	depDisabled = "disabled"

	defaultTimeout = 1500 * time.Millisecond
)

// Report is the body of GET /health.
type Report struct {
	Status        string       `json:"status"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	Time          time.Time    `json:"time"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Uptime        string       `json:"uptime"`
	Dependencies  []Dependency `json:"dependencies"`
	Queues        Queues       `json:"queues"`
	Goroutines    int          `json:"goroutines"`
	HeapBytes     uint64       `json:"heap_bytes"`
	GoVersion     string       `json:"go_version"`
}

type Dependency struct {
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Queues are the Redis-backed backlogs waiting for a worker.
type Queues struct {
	Notifications int64 `json:"notifications"`
	ActivityLogs  int64 `json:"activity_logs"`
	WSClients     int   `json:"ws_clients"`
}

// ClientCounter is satisfied by the websocket hub.
type ClientCounter interface {
	GetClientCount() int
}

// Checker probes MySQL and Redis. Any of its dependencies may be nil; a nil
// database is reported as disabled rather than down.
type Checker struct {
	service       string
	env           string
	db            *gorm.DB
	redis         *redis.Client
	redisRequired bool
	hub           ClientCounter
	started       time.Time
	timeout       time.Duration
}

func NewChecker(service, env string, db *gorm.DB, rdb *redis.Client, redisRequired bool, hub ClientCounter) *Checker {
	if strings.TrimSpace(service) == "" {
		service = "SchoolDesk API"
	}
	if strings.TrimSpace(env) == "" {
		env = "unknown"
	}
	return &Checker{
		service:       service,
		env:           env,
		db:            db,
		redis:         rdb,
		redisRequired: redisRequired,
		hub:           hub,
		started:       time.Now(),
		timeout:       defaultTimeout,
	}
}

func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	uptime := time.Since(c.started)
	r := Report{
		Status:        StatusOK,
		Service:       c.service,
		Environment:   c.env,
		Time:          time.Now().UTC(),
		UptimeSeconds: uptime.Seconds(),
		Uptime:        Humanize(uptime),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.HeapBytes = mem.HeapAlloc

	db, dbStatus := c.checkDatabase(ctx)
	r.Dependencies = append(r.Dependencies, db)
	r.Status = worst(r.Status, dbStatus)

	rd, redisStatus := c.checkRedis(ctx)
	r.Dependencies = append(r.Dependencies, rd)
	r.Status = worst(r.Status, redisStatus)

	if rd.Status == depUp {
		r.Queues.Notifications, _ = c.redis.LLen(ctx, "notifications:queue").Result()
		r.Queues.ActivityLogs, _ = c.redis.ZCard(ctx, "logs:queue").Result()
	}
	if c.hub != nil {
		r.Queues.WSClients = c.hub.GetClientCount()
	}
	return r
}

// HTTPStatus is 503 for a critical report and 200 otherwise.
func HTTPStatus(status string) int {
	if status == StatusCritical {
		return 503
	}
	return 200
}

func (c *Checker) checkDatabase(ctx context.Context) (Dependency, string) {
	dep := Dependency{Name: "mysql"}
	if c.db == nil {
		dep.Status = depDisabled
		return dep, StatusOK
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		dep.Status, dep.Error = depDown, fmt.Sprintf("sql handle: %v", err)
		return dep, StatusCritical
	}
	start := time.Now()
	err = sqlDB.PingContext(ctx)
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status, dep.Error = depDown, err.Error()
		return dep, StatusCritical
	}
	stats := sqlDB.Stats()
	dep.Status = depUp
	dep.Details = map[string]interface{}{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
	}
	return dep, StatusOK
}

// checkRedis degrades the report only when Redis carries the notification queue.
func (c *Checker) checkRedis(ctx context.Context) (Dependency, string) {
	dep := Dependency{Name: "redis"}
	failed := StatusOK
	if c.redisRequired {
		failed = StatusDegraded
	}
	if c.redis == nil {
		if c.redisRequired {
			dep.Status, dep.Error = depDown, "redis client not initialised"
		} else {
			dep.Status = depDisabled
		}
		return dep, failed
	}
	start := time.Now()
	err := c.redis.Ping(ctx).Err()
	dep.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		dep.Status, dep.Error = depDown, err.Error()
		return dep, failed
	}
	dep.Status = depUp
	dep.Details = map[string]interface{}{"address": c.redis.Options().Addr}
	return dep, StatusOK
}

func worst(a, b string) string {
	rank := map[string]int{StatusOK: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Humanize renders d as "1d 2h 3m 4s", dropping zero units.
func Humanize(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	units := []struct {
		size   time.Duration
		suffix string
	}{{24 * time.Hour, "d"}, {time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"}}
	var parts []string
	for _, u := range units {
		if n := d / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			d %= u.size
		}
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}
