package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandler_MasksAndTags(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", nil, []string{"code", "Password"}))

	ctx := SetCorrelationID(context.Background(), "cid-123")
	logger.InfoContext(ctx, "otp issued",
		"email", "admin@example.com",
		"code", "123456",
		"body", map[string]any{"password": "hunter22", "nested": map[string]any{"code": "654321"}},
		"raw", `{"password":"x","keep":"y"}`,
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not json: %v (%s)", err, buf.String())
	}

	if rec["code"] != Masked {
		t.Fatalf("code = %v, want masked", rec["code"])
	}
	if rec["email"] != "admin@example.com" {
		t.Fatalf("email = %v", rec["email"])
	}
	body, _ := rec["body"].(map[string]any)
	if body["password"] != Masked {
		t.Fatalf("body.password = %v", body["password"])
	}
	nested, _ := body["nested"].(map[string]any)
	if nested["code"] != Masked {
		t.Fatalf("body.nested.code = %v", nested["code"])
	}
	if rec["raw"] != `{"keep":"y","password":"***"}` {
		t.Fatalf("raw = %v", rec["raw"])
	}
	if rec["_cID"] != "cid-123" || rec["service"] != "otpgate" {
		t.Fatalf("missing context attrs: %v", rec)
	}
	if _, ok := rec["ts"]; !ok {
		t.Fatalf("expected ts key: %v", rec)
	}
	if _, ok := rec["severity"]; !ok {
		t.Fatalf("expected severity key: %v", rec)
	}
}

func TestHandler_MasksWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "", nil, []string{"token"})).With("token", "abc")
	logger.Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if rec["token"] != Masked {
		t.Fatalf("token = %v, want masked", rec["token"])
	}
}

func TestCorrelationID(t *testing.T) {
	if GetCorrelationID(context.Background()) != "" {
		t.Fatal("expected empty correlation id")
	}
	if got := GetCorrelationID(SetCorrelationID(context.Background(), "x")); got != "x" {
		t.Fatalf("GetCorrelationID = %q", got)
	}
}
