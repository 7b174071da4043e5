// Package uid generates identifiers: snowflake numbers for records and UUID
// strings for correlation and token ids.
package uid

// NumberID generates unique int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}
