// Package config exposes typed access to the service configuration.
package config

import (
	"io"
	"time"
)

// Config retrieves configuration values by dotted key. Missing keys yield the
// zero value of the requested type.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetFloat64(key string) float64
	GetString(key string) string

	// GetArray reads a comma separated value: a,b,c.
	GetArray(key string) []string
	// GetMap reads comma separated pairs: k1:v1,k2:v2.
	GetMap(key string) map[string]string
	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte

	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetDay(key string) time.Duration
}
