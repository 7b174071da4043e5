// Package cache keeps OTP records in Redis as an alternative to the
// PostgreSQL store. Accounts always live in PostgreSQL.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// retention keeps a dead record around after expiry so late submissions are
// still counted against it, then lets Redis reclaim the key.
const retention = 24 * time.Hour

// consumeOTPLua consumes or penalizes the record atomically.
// KEYS[1] = record key
// ARGV[1] = code hash
// ARGV[2] = now, unix milliseconds
// ARGV[3] = max attempts
//
// Returns {consumed, id, expires_at, created_at, attempts, code_match, prev_attempts}
// or {-1} when there is no unused record.
var consumeOTPLua = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'id', 'code', 'expires_at', 'created_at', 'is_used', 'attempts')
if not rec[1] or rec[5] == '1' then
  return {-1}
end

local now = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local expires = tonumber(rec[3])
local attempts = tonumber(rec[6])
local match = 0
if rec[2] == ARGV[1] then match = 1 end

if match == 1 and expires > now and attempts < max then
  redis.call('HSET', KEYS[1], 'is_used', '1')
  return {1, rec[1], rec[3], rec[4], attempts, 1, attempts}
end

local next = attempts + 1
if next > max then next = max end
redis.call('HSET', KEYS[1], 'attempts', next)
return {0, rec[1], rec[3], rec[4], next, match, attempts}
`)

type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
	prefix string
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins, prefix: "identity:otp"}
}

func (c *Cache) key(email string, t entity.OTPType) string {
	return c.prefix + ":" + strconv.Itoa(int(t)) + ":" + email
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("identity.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// IssueOTP overwrites the record of (email, type) inside MULTI/EXEC so a
// reader never sees a mix of the old and new fields.
func (c *Cache) IssueOTP(ctx context.Context, otp entity.OTP) (err error) {
	ctx, span := c.startSpan(ctx, "IssueOTP")
	defer func() { c.endSpan(span, err) }()

	key := c.key(otp.Email, otp.Type)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"id", otp.ID,
			"code", otp.Code,
			"expires_at", otp.ExpiresAt.UnixMilli(),
			"created_at", otp.CreatedAt.UnixMilli(),
			"is_used", "0",
			"attempts", 0,
		)
		pipe.PExpireAt(ctx, key, otp.ExpiresAt.Add(retention))
		return nil
	})
	if err != nil {
		return fmt.Errorf("identity: cache issue otp: %w", err)
	}

	return nil
}

func (c *Cache) DeleteOTP(ctx context.Context, email string, t entity.OTPType) (err error) {
	ctx, span := c.startSpan(ctx, "DeleteOTP")
	defer func() { c.endSpan(span, err) }()

	if err = c.client.Del(ctx, c.key(email, t)).Err(); err != nil {
		return fmt.Errorf("identity: cache delete otp: %w", err)
	}
	return nil
}

func (c *Cache) ConsumeOTP(ctx context.Context, email string, t entity.OTPType, code string, now time.Time) (_ *entity.OTPVerification, err error) {
	ctx, span := c.startSpan(ctx, "ConsumeOTP")
	defer func() { c.endSpan(span, err) }()

	res, err := consumeOTPLua.Run(ctx, c.client,
		[]string{c.key(email, t)},
		code,
		now.UnixMilli(),
		entity.MaxOTPAttempts,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("identity: cache consume otp: %w", err)
	}
	if isNoRecordReply(res) {
		return &entity.OTPVerification{Reason: entity.RejectReasonNotFound}, nil
	}

	vals, err := toInt64s(res)
	if err != nil {
		return nil, fmt.Errorf("identity: cache consume otp: %w", err)
	}

	otp := &entity.OTP{
		ID:        vals[1],
		Email:     email,
		Type:      t,
		ExpiresAt: time.UnixMilli(vals[2]).UTC(),
		CreatedAt: time.UnixMilli(vals[3]).UTC(),
		IsUsed:    vals[0] == 1,
		Attempts:  int16(vals[4]),
	}

	if otp.IsUsed {
		otp.Code = code
		return &entity.OTPVerification{Consumed: true, OTP: otp}, nil
	}

	return &entity.OTPVerification{
		Reason: entity.ClassifyRejection(int16(vals[6]), otp.ExpiresAt, now, vals[5] == 1),
		OTP:    otp,
	}, nil
}

// noRecordReply marks a pair without an unused record.
const noRecordReply int64 = -1

func isNoRecordReply(res []any) bool {
	if len(res) != 1 {
		return false
	}
	n, ok := res[0].(int64)
	return ok && n == noRecordReply
}

// toInt64s reads the script reply. Redis hands hash fields back as strings
// and Lua numbers as integers.
func toInt64s(res []any) ([]int64, error) {
	if len(res) != 7 {
		return nil, fmt.Errorf("unexpected reply length %d", len(res))
	}

	out := make([]int64, len(res))
	for i, v := range res {
		switch n := v.(type) {
		case int64:
			out[i] = n
		case string:
			parsed, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("reply field %d: %w", i, err)
			}
			out[i] = parsed
		default:
			return nil, fmt.Errorf("reply field %d has type %T", i, v)
		}
	}

	return out, nil
}
