package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/identity"
	"github.com/youthorg/admingate/internal/repository"
)

func TestRevokedSessionFailsLivenessButStillDecodes(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "alice", Role: "admin"})
	ctx := context.Background()
	res := f.login(t, "alice")

	if !f.sessionsv.IsSessionValid(ctx, res.Token) {
		t.Fatalf("fresh session should be valid")
	}
	actor, err := f.sessionsv.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := f.sessionsv.Revoke(ctx, actor, res.Session.SessionID); err != nil {
		t.Fatalf("revoke own session: %v", err)
	}

	if f.sessionsv.IsSessionValid(ctx, res.Token) {
		t.Fatalf("revoked session must be invalid")
	}
	if _, err := f.codec.Decode(res.Token); err != nil {
		t.Fatalf("token should still decode structurally: %v", err)
	}
	if _, err := f.sessionsv.Authenticate(ctx, res.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	entries := f.activityActions(t, domain.ActivityRevokeSession)
	if len(entries) != 1 || entries[0].Detail == "" {
		t.Fatalf("expected REVOKE_SESSION entry naming the device, got %+v", entries)
	}
}

func TestRevokeAuthorization(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "alice", Role: "admin"})
	f.addAccount(t, domain.Account{ID: "bob", Role: "editor"})
	f.addAccount(t, domain.Account{ID: "root", Role: "super_admin"})
	f.addAccount(t, domain.Account{ID: "wild", Role: "editor", Permissions: []string{domain.PermissionAll}})
	ctx := context.Background()

	aliceSession := f.login(t, "alice")
	bobSession := f.login(t, "bob")
	bob, _ := f.sessionsv.Authenticate(ctx, bobSession.Token)

	if err := f.sessionsv.Revoke(ctx, bob, aliceSession.Session.SessionID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if _, err := f.sessions.Get(ctx, aliceSession.Session.SessionID); err != nil {
		t.Fatalf("forbidden revoke must not delete: %v", err)
	}

	root, _ := f.sessionsv.Authenticate(ctx, f.login(t, "root").Token)
	if err := f.sessionsv.Revoke(ctx, root, aliceSession.Session.SessionID); err != nil {
		t.Fatalf("elevated role should revoke: %v", err)
	}

	wild, _ := f.sessionsv.Authenticate(ctx, f.login(t, "wild").Token)
	if err := f.sessionsv.Revoke(ctx, wild, bobSession.Session.SessionID); err != nil {
		t.Fatalf("catch-all permission should revoke: %v", err)
	}

	if err := f.sessionsv.Revoke(ctx, root, "missing"); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateLocationOnlyOwnSession(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "root", Role: "super_admin"})
	ctx := context.Background()

	a := f.login(t, "root")
	b := f.login(t, "root")
	actorB, _ := f.sessionsv.Authenticate(ctx, b.Token)
	patch := domain.LocationPatch{Latitude: floatPtr(1), Longitude: floatPtr(2)}

	if _, err := f.sessionsv.UpdateLocation(ctx, actorB, a.Session.SessionID, patch); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden even for elevated role on a sibling session, got %v", err)
	}
	rec, err := f.sessionsv.UpdateLocation(ctx, actorB, b.Session.SessionID, patch)
	if err != nil {
		t.Fatalf("update own location: %v", err)
	}
	if rec.Location == nil || *rec.Location.Latitude != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	untouched, _ := f.sessions.Get(ctx, a.Session.SessionID)
	if untouched.Location != nil {
		t.Fatalf("session A must not change: %+v", untouched.Location)
	}
}

func TestSessionStatusFailsOpenOnStoreError(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "alice", Role: "admin"})
	res := f.login(t, "alice")
	ctx := context.Background()

	f.sessions.failGet = true
	if !f.sessionsv.IsSessionValid(ctx, res.Token) {
		t.Fatalf("liveness must fail open on store errors")
	}
	if _, err := f.sessionsv.Authenticate(ctx, res.Token); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("authentication must fail closed, got %v", err)
	}
	if f.sessionsv.IsSessionValid(ctx, "garbage") {
		t.Fatalf("undecodable token is invalid regardless of store health")
	}
}

func TestExpiredTokenIsInvalid(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "alice", Role: "admin"})
	res := f.login(t, "alice")
	f.advance(24 * time.Hour)

	if f.sessionsv.IsSessionValid(context.Background(), res.Token) {
		t.Fatalf("token past absolute expiry must be invalid")
	}
	if _, err := f.sessionsv.Authenticate(context.Background(), res.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLogoutIsBestEffort(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "alice", Role: "admin"})
	ctx := context.Background()
	res := f.login(t, "alice")

	f.sessionsv.Logout(ctx, "", nil)
	f.sessionsv.Logout(ctx, "not-a-token", nil)
	f.sessionsv.Logout(ctx, res.Token, &domain.Location{Address: strPtr("Home")})

	if _, err := f.sessions.Get(ctx, res.Session.SessionID); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected session deleted, got %v", err)
	}
	again := f.login(t, "alice")
	f.sessions.failDelete[again.Session.SessionID] = true
	f.sessionsv.Logout(ctx, again.Token, nil)

	entries := f.activityActions(t, domain.ActivityLogout)
	if len(entries) != 2 {
		t.Fatalf("expected 2 LOGOUT entries, got %d", len(entries))
	}
}

func TestListScopesByAuthority(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "alice", Role: "admin"})
	f.addAccount(t, domain.Account{ID: "root", Role: "super_admin"})
	ctx := context.Background()

	aliceRes := f.login(t, "alice")
	f.login(t, "root")
	alice, _ := f.sessionsv.Authenticate(ctx, aliceRes.Token)

	own, err := f.sessionsv.List(ctx, alice)
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(own) != 1 || !own[0].IsCurrent || own[0].UserID != "alice" {
		t.Fatalf("unexpected own listing: %+v", own)
	}

	rootRes := f.login(t, "root")
	root, _ := f.sessionsv.Authenticate(ctx, rootRes.Token)
	all, err := f.sessionsv.List(ctx, root)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected every session for elevated actor, got %d", len(all))
	}
}

func TestSweepStale(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "alice", Role: "admin"})
	f.addAccount(t, domain.Account{ID: "bob", Role: "admin"})
	f.login(t, "alice")
	f.advance(26 * time.Hour)
	keep := f.login(t, "bob")

	removed, err := f.sessionsv.SweepStale(context.Background())
	if err != nil || removed != 1 {
		t.Fatalf("sweep: removed=%d err=%v", removed, err)
	}
	all, _ := f.sessions.ListAll(context.Background())
	if len(all) != 1 || all[0].SessionID != keep.Session.SessionID {
		t.Fatalf("unexpected survivors: %+v", all)
	}
}

func TestAccountServiceUnblockAndProtect(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "alice", Role: "admin"})
	svc := NewAccountService(f.accounts, NewActivityLogger(f.activity, discardLogger()), discardLogger())
	ctx := context.Background()

	f.kill.Trip(ctx, "alice", "test")
	if err := svc.Unblock(ctx, "alice", "ops"); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	f.login(t, "alice")
	if got := f.activityActions(t, domain.ActivityUnblock); len(got) != 1 {
		t.Fatalf("expected UNBLOCK entry, got %d", len(got))
	}

	missing, err := svc.EnsureProtected(ctx, []string{"alice@example.com", "nobody@example.com"})
	if err != nil {
		t.Fatalf("protect: %v", err)
	}
	if len(missing) != 1 || missing[0] != "nobody@example.com" {
		t.Fatalf("unexpected missing list: %v", missing)
	}
	if got := f.kill.Trip(ctx, "alice", "again"); got != KillExempt {
		t.Fatalf("expected exempt after protection, got %q", got)
	}

	if ok, err := svc.Unprotect(ctx, "alice@example.com"); err != nil || !ok {
		t.Fatalf("unprotect: %v %v", ok, err)
	}
	if got := f.kill.Trip(ctx, "alice", "unprotected"); got != KillBlocked {
		t.Fatalf("expected block after unprotect, got %q", got)
	}
}

func TestRevokeDoesNotRevealUnknownSessions(t *testing.T) {
	f := newGateFixture(t)
	f.addAccount(t, domain.Account{ID: "bob", Role: "editor"})
	ctx := context.Background()
	bob, _ := f.sessionsv.Authenticate(ctx, f.login(t, "bob").Token)

	if err := f.sessionsv.Revoke(ctx, bob, "no-such-session"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unknown id for non-elevated caller: expected forbidden, got %v", err)
	}

	f.sessions.failGet = true
	if err := f.sessionsv.Revoke(ctx, bob, bob.SessionID); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("store failure: expected store unavailable, got %v", err)
	}
}

func TestCancelledRequestsStillCompleteStoreWrites(t *testing.T) {
	db := newDBForTest(t)
	store := repository.NewGormSessionStore(db)
	accounts := repository.NewAccountRepository(db)
	activity := NewActivityLogger(repository.NewActivityRepository(db), discardLogger())
	codec := newCodecForTest(t)
	if err := accounts.Upsert(context.Background(), &domain.Account{ID: "alice", Email: "alice@example.com", Username: "alice", Role: "editor"}); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	now := time.Now()
	stale := now.Add(-26 * time.Hour).UnixMilli()
	for _, rec := range []domain.SessionRecord{
		{SessionID: "s1", UserID: "alice", UserName: "alice", CreatedAt: now.UnixMilli(), LastActive: now.UnixMilli()},
		{SessionID: "s2", UserID: "alice", UserName: "alice", CreatedAt: now.UnixMilli(), LastActive: now.UnixMilli()},
		{SessionID: "old", UserID: "alice", UserName: "alice", CreatedAt: stale, LastActive: stale},
	} {
		if err := store.Put(context.Background(), &rec); err != nil {
			t.Fatalf("seed %s: %v", rec.SessionID, err)
		}
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewSessionService(store, codec, activity, "super_admin", 25*time.Hour, discardLogger())
	owner := &Principal{UserID: "alice", SessionID: "s2", Username: "alice", Role: "editor"}

	rec, err := svc.UpdateLocation(cancelled, owner, "s2", domain.LocationPatch{Latitude: floatPtr(3), Longitude: floatPtr(4)})
	if err != nil || rec.Location == nil || *rec.Location.Latitude != 3 {
		t.Fatalf("update location on cancelled request: rec=%+v err=%v", rec, err)
	}
	if err := svc.Revoke(cancelled, owner, "s1"); err != nil {
		t.Fatalf("revoke on cancelled request: %v", err)
	}
	if _, err := store.Get(context.Background(), "s1"); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("revoked record must be gone, got %v", err)
	}

	verifier := &fakeVerifier{identities: map[string]*identity.Identity{"cred-alice": {UID: "alice", Email: "alice@example.com", EmailVerified: true}}}
	admission := NewAdmissionService(verifier, accounts, store, codec, activity,
		AdmissionPolicy{MaxSessions: 2, StaleAfter: 25 * time.Hour, TokenTTL: time.Hour}, discardLogger())
	res, err := admission.Login(cancelled, LoginInput{Credential: "cred-alice"})
	if err != nil {
		t.Fatalf("login on cancelled request: %v", err)
	}
	remaining, err := store.ListByUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := map[string]bool{}
	for _, r := range remaining {
		ids[r.SessionID] = true
	}
	if len(ids) != 2 || !ids["s2"] || !ids[res.Session.SessionID] || ids["old"] {
		t.Fatalf("expected stale record reaped and new session stored, got %v", ids)
	}
}
