//go:build unix

package avhttp

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isConnRefused(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED)
}

func isConnReset(err error) bool {
	return errors.Is(err, unix.ECONNRESET)
}
