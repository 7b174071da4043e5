package event

const OTPIssuedDestination string = "identity_otp_issued"
const OTPIssuedConsumerNotification string = "identity_otp_issued_notification"

// OTPIssuedMessage asks for a freshly issued code to be delivered. Code is
// the plaintext the recipient types back.
type OTPIssuedMessage struct {
	OTPID     int64  `json:"otp_id,string"`
	Email     string `json:"email"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	ExpiresAt int64  `json:"expires_at"`
}
