//go:build windows

package main

import "os"

// outFileMode on Windows: the unix permission bits in outmode_unix.go don't
// apply, Go's os package maps any mode here to a single read-only attribute.
const outFileMode = os.FileMode(0o644)
