package entity

import "time"

// OTPMail is the content of one code delivery email.
type OTPMail struct {
	AppName      string
	Email        string
	Purpose      Purpose
	Code         string
	ExpiresAt    time.Time
	ValidMinutes int
	SupportEmail string
	Year         string
}
