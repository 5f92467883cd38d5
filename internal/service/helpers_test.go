package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/identity"
	"github.com/youthorg/admingate/internal/repository"
	"github.com/youthorg/admingate/internal/security"
)

func newRedisClientForTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, client
}

func newDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newCodecForTest(t *testing.T) *security.TokenCodec {
	t.Helper()
	codec, err := security.NewTokenCodec(bytes.Repeat([]byte("k"), 32), false)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeVerifier struct {
	identities map[string]*identity.Identity
}

func (v *fakeVerifier) Verify(_ context.Context, credential string) (*identity.Identity, error) {
	id, ok := v.identities[credential]
	if !ok {
		return nil, identity.ErrInvalidCredential
	}
	return id, nil
}

type fakeIdPAdmin struct {
	mu       sync.Mutex
	disabled []string
	err      error
}

func (a *fakeIdPAdmin) DisableUser(_ context.Context, externalID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disabled = append(a.disabled, externalID)
	return a.err
}

// flakySessionStore fails selected operations on top of an in-memory store.
type flakySessionStore struct {
	*repository.InMemorySessionStore
	failGet    bool
	failDelete map[string]bool
}

var errStoreDown = errors.New("store down")

func (s *flakySessionStore) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	if s.failGet {
		return nil, errStoreDown
	}
	return s.InMemorySessionStore.Get(ctx, id)
}

func (s *flakySessionStore) Delete(ctx context.Context, id string) error {
	if s.failDelete[id] {
		return errStoreDown
	}
	return s.InMemorySessionStore.Delete(ctx, id)
}

type failingCounterStore struct{}

func (failingCounterStore) Increment(context.Context, string, time.Duration) (Counter, error) {
	return Counter{}, errors.New("counter down")
}

// gateFixture wires every service over sqlite accounts and an in-memory
// session store.
type gateFixture struct {
	accounts  *repository.GormAccountRepository
	activity  *repository.GormActivityRepository
	sessions  *flakySessionStore
	codec     *security.TokenCodec
	verifier  *fakeVerifier
	idp       *fakeIdPAdmin
	admission *AdmissionService
	sessionsv *SessionService
	kill      *KillSwitch
	guard     *RequestGuard
	clock     *time.Time
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	db := newDBForTest(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &gateFixture{
		accounts: repository.NewAccountRepository(db),
		activity: repository.NewActivityRepository(db),
		sessions: &flakySessionStore{InMemorySessionStore: repository.NewInMemorySessionStore(), failDelete: map[string]bool{}},
		codec:    newCodecForTest(t),
		verifier: &fakeVerifier{identities: map[string]*identity.Identity{}},
		idp:      &fakeIdPAdmin{},
		clock:    &now,
	}
	clock := func() time.Time { return *f.clock }
	activity := NewActivityLogger(f.activity, discardLogger())
	f.admission = NewAdmissionService(f.verifier, f.accounts, f.sessions, f.codec, activity,
		AdmissionPolicy{MaxSessions: 2, StaleAfter: 25 * time.Hour, TokenTTL: 24 * time.Hour}, discardLogger())
	f.admission.now = clock
	f.sessionsv = NewSessionService(f.sessions, f.codec, activity, "super_admin", 25*time.Hour, discardLogger())
	f.sessionsv.now = clock
	f.kill = NewKillSwitch(f.accounts, f.sessions, f.idp, activity, discardLogger())
	counters := NewInMemoryCounterStore()
	counters.now = clock
	f.guard = NewRequestGuard(counters, QuotaPolicy{
		Window:     time.Minute,
		Limits:     map[domain.Verb]int{domain.VerbRead: 120, domain.VerbWrite: 30, domain.VerbDelete: 10},
		KillMargin: 2,
	}, FailClosed, f.kill, "memory", discardLogger())
	return f
}

func (f *gateFixture) addAccount(t *testing.T, acct domain.Account) {
	t.Helper()
	if acct.Email == "" {
		acct.Email = acct.ID + "@example.com"
	}
	if acct.Username == "" {
		acct.Username = acct.ID
	}
	if err := f.accounts.Upsert(context.Background(), &acct); err != nil {
		t.Fatalf("seed account %s: %v", acct.ID, err)
	}
	if acct.Protected {
		if _, err := f.accounts.SetProtected(context.Background(), acct.Email, true); err != nil {
			t.Fatalf("protect %s: %v", acct.ID, err)
		}
	}
	f.verifier.identities["cred-"+acct.ID] = &identity.Identity{UID: acct.ID, Email: acct.Email, EmailVerified: true}
}

func (f *gateFixture) login(t *testing.T, userID string) *LoginResult {
	t.Helper()
	res, err := f.admission.Login(context.Background(), LoginInput{
		Credential: "cred-" + userID,
		Device:     domain.DeviceInfo{Brand: "Google", Model: "Pixel 8", OS: "Android"},
	})
	if err != nil {
		t.Fatalf("login %s: %v", userID, err)
	}
	return res
}

func (f *gateFixture) advance(d time.Duration) {
	next := f.clock.Add(d)
	*f.clock = next
}

func (f *gateFixture) activityActions(t *testing.T, action domain.ActivityAction) []domain.ActivityLog {
	t.Helper()
	page, err := f.activity.List(context.Background(), repository.ActivityQuery{Action: action, PageRequest: repository.PageRequest{PageSize: 100}})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	return page.Items
}

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }
