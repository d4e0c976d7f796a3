//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// outFileMode is the permission bits used when --out writes a new file:
// owner read/write, group/other read-only, matching a compiled artifact
// rather than a secret.
const outFileMode = os.FileMode(unix.S_IRUSR | unix.S_IWUSR | unix.S_IRGRP | unix.S_IROTH)
