package entity

import "testing"

func TestPurpose(t *testing.T) {
	tests := []struct {
		raw  string
		want Purpose
	}{
		{raw: "email_verification", want: PurposeEmailVerification},
		{raw: " password_reset ", want: PurposePasswordReset},
		{raw: "login_verification", want: PurposeLoginVerification},
		{raw: "sms", want: PurposeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := PurposeFromString(tt.raw)
			if got != tt.want {
				t.Fatalf("PurposeFromString(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			if got != PurposeUnknown && got.String() != tt.want.String() {
				t.Fatalf("String() = %q", got.String())
			}
			if got.Subject() == "" || got.Intro() == "" {
				t.Fatal("empty wording")
			}
		})
	}
}
