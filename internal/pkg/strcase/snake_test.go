package strcase

import "testing"

func TestToLowerSnake(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"Email":       "email",
		"NewPassword": "new_password",
		"AccountID":   "account_id",
		"HTTPServer":  "http_server",
		"Code2FA":     "code2_fa",
		"already":     "already",
	}

	for in, want := range tests {
		if got := ToLowerSnake(in); got != want {
			t.Errorf("ToLowerSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
