// Package stacktrace trims goroutine dumps down to frames inside this module.
package stacktrace

import "strings"

// InternalPaths returns the file:line of every frame under an internal/
// directory, relative to it, e.g. "internal/identity/usecase/otp_verify.go:42".
func InternalPaths(stack []byte) []string {
	var paths []string

	for line := range strings.Lines(string(stack)) {
		line = strings.TrimSpace(line)

		file, _, _ := strings.Cut(line, " +0x")
		if !strings.Contains(file, ".go:") {
			continue
		}

		idx := strings.Index(file, "/internal/")
		if idx == -1 {
			continue
		}
		paths = append(paths, file[idx+1:])
	}

	return paths
}
