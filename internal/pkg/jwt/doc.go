// Package jwt issues and verifies the signed session tokens handed out after a
// successful login verification.
//
// Tokens are HS512 signed and carry the account id, email and role next to the
// registered claims. The issued-at claim is what the session validator compares
// against an account's password change time.
package jwt
