// Package mail sends email. Callers depend on the Mail interface; SMTP is the
// production transport and Log writes messages to slog for local runs.
package mail
