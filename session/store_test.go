package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "ga:", 0), mr
}

func activeRecord(userID int64, sid string, ttl time.Duration) Record {
	return Record{
		UserID:    userID,
		SID:       sid,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
}

func TestCreateAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rec := activeRecord(7, "sid-1", time.Hour)
	if err := store.Create(ctx, "jti-1", rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := store.Get(ctx, "jti-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.UserID != 7 || got.SID != "sid-1" || got.Rotated {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.ExpiresAt != rec.ExpiresAt {
		t.Fatalf("expected exp %d, got %d", rec.ExpiresAt, got.ExpiresAt)
	}

	members, err := store.FamilyMembers(ctx, "sid-1")
	if err != nil {
		t.Fatalf("family members failed: %v", err)
	}
	if len(members) != 1 || members[0] != "jti-1" {
		t.Fatalf("unexpected family %v", members)
	}
}

func TestGetUnknownJTI(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestMarkRotatedSingleUse(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rec := activeRecord(7, "sid-1", time.Hour)
	if err := store.Create(ctx, "jti-1", rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	spent, err := store.MarkRotated(ctx, "jti-1", 7, "sid-1")
	if err != nil {
		t.Fatalf("first rotation failed: %v", err)
	}
	if !spent.Rotated {
		t.Fatal("expected record marked rotated")
	}
	if spent.ExpiresAt != rec.ExpiresAt {
		t.Fatalf("rotation must preserve the absolute deadline: %d != %d", spent.ExpiresAt, rec.ExpiresAt)
	}

	_, err = store.MarkRotated(ctx, "jti-1", 7, "sid-1")
	if !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse on second rotation, got %v", err)
	}
}

func TestMarkRotatedOwnerMismatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "jti-1", activeRecord(7, "sid-1", time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := store.MarkRotated(ctx, "jti-1", 8, "sid-1"); !errors.Is(err, ErrRecordMismatch) {
		t.Fatalf("expected ErrRecordMismatch for wrong user, got %v", err)
	}
	if _, err := store.MarkRotated(ctx, "jti-1", 7, "sid-other"); !errors.Is(err, ErrRecordMismatch) {
		t.Fatalf("expected ErrRecordMismatch for wrong sid, got %v", err)
	}

	// The failed attempts must not have consumed the record.
	if _, err := store.MarkRotated(ctx, "jti-1", 7, "sid-1"); err != nil {
		t.Fatalf("record was consumed by a mismatched rotation: %v", err)
	}
}

func TestMarkRotatedUnknownJTI(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.MarkRotated(context.Background(), "missing", 7, "sid-1")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRevokeFamily(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, jti := range []string{"jti-1", "jti-2", "jti-3"} {
		if err := store.Create(ctx, jti, activeRecord(7, "sid-1", time.Hour)); err != nil {
			t.Fatalf("create %s failed: %v", jti, err)
		}
	}
	// Unrelated session must survive.
	if err := store.Create(ctx, "jti-b", activeRecord(7, "sid-2", time.Hour)); err != nil {
		t.Fatalf("create jti-b failed: %v", err)
	}

	count, err := store.RevokeFamily(ctx, "sid-1")
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 revoked members, got %d", count)
	}

	for _, jti := range []string{"jti-1", "jti-2", "jti-3"} {
		if _, err := store.Get(ctx, jti); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("record %s survived family revocation: %v", jti, err)
		}
	}
	members, err := store.FamilyMembers(ctx, "sid-1")
	if err != nil {
		t.Fatalf("family members failed: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("family list survived revocation: %v", members)
	}

	if _, err := store.Get(ctx, "jti-b"); err != nil {
		t.Fatalf("unrelated session was affected: %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "jti-1", activeRecord(7, "sid-1", time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Delete(ctx, "jti-1", "sid-1"); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := store.Delete(ctx, "jti-1", "sid-1"); err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if err := store.Delete(ctx, "never-existed", "sid-1"); err != nil {
		t.Fatalf("delete of unknown jti failed: %v", err)
	}

	if _, err := store.Get(ctx, "jti-1"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("record survived delete: %v", err)
	}
}

func TestDeletePrunesFamilyList(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "jti-1", activeRecord(7, "sid-1", time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.Create(ctx, "jti-2", activeRecord(7, "sid-1", time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Delete(ctx, "jti-1", "sid-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	members, err := store.FamilyMembers(ctx, "sid-1")
	if err != nil {
		t.Fatalf("family members failed: %v", err)
	}
	if len(members) != 1 || members[0] != "jti-2" {
		t.Fatalf("unexpected family %v", members)
	}

	if err := store.Delete(ctx, "jti-2", "sid-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if mr.Exists("ga:session-family:sid-1") {
		t.Fatal("empty family list was not deleted")
	}
}

func TestRecordsExpireAtDeadline(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, "jti-1", activeRecord(7, "sid-1", time.Hour)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := store.Get(ctx, "jti-1"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("record survived its deadline: %v", err)
	}
	members, err := store.FamilyMembers(ctx, "sid-1")
	if err != nil {
		t.Fatalf("family members failed: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("family list survived its deadline: %v", members)
	}
}

func TestStoreOutageClassified(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	ctx := context.Background()
	if err := store.Create(ctx, "jti-1", activeRecord(7, "sid-1", time.Hour)); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.MarkRotated(ctx, "jti-1", 7, "sid-1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
