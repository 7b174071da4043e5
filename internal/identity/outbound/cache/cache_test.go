package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
)

var testNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	// key expiry is computed against this instant instead of the wall clock
	mr.SetTime(testNow)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	return NewCache(rdb, instrument.NewNoop()), mr
}

func issue(t *testing.T, c *Cache, id int64, email string, typ entity.OTPType, code string, now time.Time) {
	t.Helper()

	err := c.IssueOTP(context.Background(), entity.OTP{
		ID:        id,
		Email:     email,
		Code:      code,
		Type:      typ,
		ExpiresAt: now.Add(typ.TTL()),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("IssueOTP() error = %v", err)
	}
}

func consume(t *testing.T, c *Cache, email string, typ entity.OTPType, code string, now time.Time) *entity.OTPVerification {
	t.Helper()

	res, err := c.ConsumeOTP(context.Background(), email, typ, code, now)
	if err != nil {
		t.Fatalf("ConsumeOTP() error = %v", err)
	}
	return res
}

func TestCache_LoginScenario(t *testing.T) {
	c, _ := newTestCache(t)
	now := testNow
	email := "a@x.com"

	issue(t, c, 1, email, entity.OTPTypeLoginVerification, "h-123456", now)

	res := consume(t, c, email, entity.OTPTypeLoginVerification, "h-000000", now)
	if res.Consumed || res.Reason != entity.RejectReasonCodeMismatch || res.OTP.Attempts != 1 {
		t.Fatalf("wrong code: %+v otp=%+v", res, res.OTP)
	}

	res = consume(t, c, email, entity.OTPTypeLoginVerification, "h-123456", now.Add(9*time.Minute))
	if !res.Consumed || res.OTP.ID != 1 {
		t.Fatalf("right code: %+v", res)
	}

	res = consume(t, c, email, entity.OTPTypeLoginVerification, "h-123456", now.Add(9*time.Minute))
	if res.Consumed || res.Reason != entity.RejectReasonNotFound {
		t.Fatalf("reuse: %+v", res)
	}
}

func TestCache_NoRecord(t *testing.T) {
	c, _ := newTestCache(t)

	res := consume(t, c, "ghost@x.com", entity.OTPTypeLoginVerification, "h-123456", testNow)
	if res.Consumed || res.Reason != entity.RejectReasonNotFound || res.OTP != nil {
		t.Fatalf("no record: %+v", res)
	}
}

func TestCache_ReplayAfterConsume(t *testing.T) {
	c, mr := newTestCache(t)
	email := "a@x.com"

	issue(t, c, 1, email, entity.OTPTypeEmailVerification, "h-123456", testNow)
	if res := consume(t, c, email, entity.OTPTypeEmailVerification, "h-123456", testNow); !res.Consumed {
		t.Fatalf("first submission: %+v", res)
	}

	for _, code := range []string{"h-123456", "h-000000"} {
		res := consume(t, c, email, entity.OTPTypeEmailVerification, code, testNow.Add(time.Minute))
		if res.Consumed || res.Reason != entity.RejectReasonNotFound {
			t.Fatalf("replay with %q: %+v", code, res)
		}
	}

	if got := mr.HGet(c.key(email, entity.OTPTypeEmailVerification), "attempts"); got != "0" {
		t.Fatalf("used record must not be penalized, attempts = %q", got)
	}
}

func TestCache_IssueSetsRetention(t *testing.T) {
	c, mr := newTestCache(t)

	issue(t, c, 1, "a@x.com", entity.OTPTypePasswordReset, "good", testNow)

	want := entity.OTPTypePasswordReset.TTL() + retention
	if got := mr.TTL(c.key("a@x.com", entity.OTPTypePasswordReset)); got != want {
		t.Fatalf("TTL = %v, want %v", got, want)
	}
}

func TestCache_ReissueReplaces(t *testing.T) {
	c, _ := newTestCache(t)
	now := testNow

	issue(t, c, 1, "a@x.com", entity.OTPTypeEmailVerification, "old", now)
	consume(t, c, "a@x.com", entity.OTPTypeEmailVerification, "bad", now)
	issue(t, c, 2, "a@x.com", entity.OTPTypeEmailVerification, "new", now)

	if res := consume(t, c, "a@x.com", entity.OTPTypeEmailVerification, "old", now); res.Consumed {
		t.Fatal("old code must be gone after reissue")
	}

	issue(t, c, 3, "a@x.com", entity.OTPTypeEmailVerification, "new", now)
	res := consume(t, c, "a@x.com", entity.OTPTypeEmailVerification, "new", now)
	if !res.Consumed || res.OTP.ID != 3 {
		t.Fatalf("fresh record: %+v", res)
	}
}

func TestCache_AttemptsExhausted(t *testing.T) {
	c, _ := newTestCache(t)
	now := testNow

	issue(t, c, 1, "a@x.com", entity.OTPTypeLoginVerification, "good", now)
	for i := 1; i <= entity.MaxOTPAttempts; i++ {
		res := consume(t, c, "a@x.com", entity.OTPTypeLoginVerification, "bad", now)
		if int(res.OTP.Attempts) != i {
			t.Fatalf("attempt %d recorded as %d", i, res.OTP.Attempts)
		}
	}

	res := consume(t, c, "a@x.com", entity.OTPTypeLoginVerification, "good", now)
	if res.Consumed || res.Reason != entity.RejectReasonAttemptsExhausted || res.OTP.Attempts != entity.MaxOTPAttempts {
		t.Fatalf("exhausted: %+v otp=%+v", res, res.OTP)
	}
}

func TestCache_ExpiredPenalized(t *testing.T) {
	c, mr := newTestCache(t)
	now := testNow

	issue(t, c, 1, "a@x.com", entity.OTPTypePasswordReset, "good", now)

	res := consume(t, c, "a@x.com", entity.OTPTypePasswordReset, "good", now.Add(16*time.Minute))
	if res.Consumed || res.Reason != entity.RejectReasonExpired || res.OTP.Attempts != 1 {
		t.Fatalf("expired: %+v otp=%+v", res, res.OTP)
	}

	if got := mr.HGet(c.key("a@x.com", entity.OTPTypePasswordReset), "attempts"); got != "1" {
		t.Fatalf("stored attempts = %q", got)
	}
}

func TestCache_ConcurrentConsume(t *testing.T) {
	c, _ := newTestCache(t)
	now := testNow

	issue(t, c, 1, "a@x.com", entity.OTPTypeLoginVerification, "good", now)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		consumed int
	)
	for range 10 {
		wg.Go(func() {
			res, err := c.ConsumeOTP(context.Background(), "a@x.com", entity.OTPTypeLoginVerification, "good", now)
			if err != nil {
				t.Errorf("ConsumeOTP() error = %v", err)
				return
			}
			if res.Consumed {
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if consumed != 1 {
		t.Fatalf("consumed %d times, want 1", consumed)
	}
}

func TestCache_DeleteOTP(t *testing.T) {
	c, mr := newTestCache(t)
	now := testNow

	issue(t, c, 1, "a@x.com", entity.OTPTypePasswordReset, "good", now)
	if err := c.DeleteOTP(context.Background(), "a@x.com", entity.OTPTypePasswordReset); err != nil {
		t.Fatalf("DeleteOTP() error = %v", err)
	}
	if mr.Exists(c.key("a@x.com", entity.OTPTypePasswordReset)) {
		t.Fatal("record still present")
	}

	res := consume(t, c, "a@x.com", entity.OTPTypePasswordReset, "good", now)
	if res.Reason != entity.RejectReasonNotFound {
		t.Fatalf("after delete: %+v", res)
	}
}
