// Package loadgen drives authenticated traffic at the admin API, mostly to
// watch the per-user quotas and the kill switch react.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/youthorg/admingate/internal/client"
)

type Config struct {
	BaseURL     string
	Token       string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        uint64
}

type Result struct {
	TotalRequests int            `json:"totalRequests"`
	Failures      int            `json:"failures"`
	RateLimited   int            `json:"rateLimited"`
	Revoked       bool           `json:"revoked"`
	ByStatusClass map[string]int `json:"byStatusClass"`
}

type request struct {
	method string
	path   string
	body   any
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	cfg.Profile = normalizeProfile(cfg.Profile)
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	picker, err := profilePicker(cfg.Profile, cfg.Seed)
	if err != nil {
		return Result{}, err
	}
	c, err := client.New(cfg.BaseURL, nil)
	if err != nil {
		return Result{}, err
	}
	c.SetToken(cfg.Token)

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	jobs := make(chan request)
	var (
		mu  sync.Mutex
		res = Result{ByStatusClass: map[string]int{}}
	)
	record := func(status int, err error) {
		mu.Lock()
		defer mu.Unlock()
		res.TotalRequests++
		res.ByStatusClass[classifyStatusClass(status)]++
		if status == http.StatusTooManyRequests {
			res.RateLimited++
		}
		if client.IsRevoked(err) {
			res.Revoked = true
		}
		if status == 0 || status >= 500 {
			res.Failures++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for req := range jobs {
				status, err := c.Do(gctx, req.method, req.path, req.body, nil)
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					continue
				}
				record(status, err)
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			select {
			case jobs <- picker():
			case <-ctx.Done():
				break loop
			}
		}
	}
	close(jobs)
	_ = g.Wait()
	return res, nil
}

func profilePicker(profile string, seed uint64) (func() request, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var mu sync.Mutex
	intn := func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return rng.IntN(n)
	}
	read := func() request {
		if intn(2) == 0 {
			return request{method: http.MethodGet, path: "/api/admin/sessions"}
		}
		return request{method: http.MethodGet, path: "/api/admin/posts"}
	}
	write := func() request {
		n := intn(1_000_000)
		return request{method: http.MethodPost, path: "/api/admin/posts", body: map[string]string{
			"title": fmt.Sprintf("loadgen post %d", n),
			"body":  "generated",
		}}
	}
	del := func() request {
		return request{method: http.MethodDelete, path: fmt.Sprintf("/api/admin/posts/%d", intn(1000)+1)}
	}
	switch profile {
	case "read":
		return read, nil
	case "write":
		return write, nil
	case "delete":
		return del, nil
	case "mixed":
		return func() request {
			switch r := intn(10); {
			case r < 7:
				return read()
			case r < 9:
				return write()
			default:
				return del()
			}
		}, nil
	default:
		return nil, fmt.Errorf("unknown profile %q", profile)
	}
}

func normalizeProfile(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "mixed"
	}
	return p
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}
