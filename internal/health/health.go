package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gorm.io/gorm"
)

type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// ProbeRunner runs every checker concurrently under a shared timeout.
type ProbeRunner struct {
	checkers []Checker
	timeout  time.Duration
}

func NewProbeRunner(timeout time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{checkers: checkers, timeout: timeout}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]CheckResult, len(p.checkers))
	var wg sync.WaitGroup
	for i, c := range p.checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			res := CheckResult{Name: c.Name(), Healthy: true}
			if err := c.Check(ctx); err != nil {
				res.Healthy = false
				res.Error = err.Error()
			}
			results[i] = res
		}(i, c)
	}
	wg.Wait()

	ready := true
	for _, r := range results {
		ready = ready && r.Healthy
	}
	return ready, results
}

type DBChecker struct{ db *gorm.DB }

func NewDBChecker(db *gorm.DB) DBChecker { return DBChecker{db: db} }

func (DBChecker) Name() string { return "database" }

func (c DBChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return errors.New("database not configured")
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type RedisChecker struct{ client redis.UniversalClient }

func NewRedisChecker(client redis.UniversalClient) RedisChecker { return RedisChecker{client: client} }

func (RedisChecker) Name() string { return "redis" }

func (c RedisChecker) Check(ctx context.Context) error {
	if c.client == nil {
		return errors.New("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}

type MongoChecker struct{ client *mongo.Client }

func NewMongoChecker(client *mongo.Client) MongoChecker { return MongoChecker{client: client} }

func (MongoChecker) Name() string { return "mongo" }

func (c MongoChecker) Check(ctx context.Context) error {
	if c.client == nil {
		return errors.New("mongo not configured")
	}
	return c.client.Ping(ctx, readpref.Primary())
}
