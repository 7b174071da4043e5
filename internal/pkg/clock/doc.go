// Package clock lets code that compares timestamps (code expiry, token
// staleness) run against a controllable time source in tests.
package clock
