package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCompose(t *testing.T) {
	raw, rcpt, err := compose("no-reply@example.com", Message{
		To:       []string{"admin@example.com"},
		Bcc:      []string{"audit@example.com"},
		Subject:  "Your code",
		TextBody: "123456",
		HTMLBody: "<b>123456</b>",
	})
	if err != nil {
		t.Fatalf("compose() error = %v", err)
	}

	if len(rcpt) != 2 || rcpt[1] != "audit@example.com" {
		t.Fatalf("recipients = %v", rcpt)
	}

	msg := string(raw)
	for _, want := range []string{
		"From: no-reply@example.com\r\n",
		"To: admin@example.com\r\n",
		"Subject: Your code\r\n",
		"multipart/alternative; boundary=otpgate-",
		"text/plain; charset=UTF-8\r\n\r\n123456",
		"<b>123456</b>",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "audit@example.com") {
		t.Fatal("bcc recipient leaked into headers")
	}
}

func TestCompose_Errors(t *testing.T) {
	tests := []struct {
		name string
		from string
		msg  Message
		want error
	}{
		{name: "no sender", msg: Message{To: []string{"a@example.com"}}, want: ErrSMTPNoSender},
		{name: "no recipients", from: "x@example.com", want: ErrSMTPNoRecipients},
		{
			name: "subject injection",
			from: "x@example.com",
			msg:  Message{To: []string{"a@example.com"}, Subject: "hi\r\nBcc: evil@example.com"},
			want: ErrSMTPHeaderInjection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := compose(tt.from, tt.msg); !errors.Is(err, tt.want) {
				t.Fatalf("compose() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewSMTP_RequiresHost(t *testing.T) {
	if _, err := NewSMTP(SMTPConfig{}); !errors.Is(err, ErrSMTPHostPortRequired) {
		t.Fatalf("expected ErrSMTPHostPortRequired, got %v", err)
	}
}

func TestLog_Send(t *testing.T) {
	l := NewLog("no-reply@example.com")
	if err := l.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", TextBody: "b"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := l.Send(context.Background(), Message{Subject: "s"}); !errors.Is(err, ErrSMTPNoRecipients) {
		t.Fatalf("expected ErrSMTPNoRecipients, got %v", err)
	}
}
