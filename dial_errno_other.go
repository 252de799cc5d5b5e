//go:build !unix

package avhttp

import (
	"errors"
	"syscall"
)

// isConnRefused/isConnReset fall back to the standard syscall package on
// platforms golang.org/x/sys does not cover with a unix build (e.g.
// windows), where the errno constants still live in syscall itself.
func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

func isConnReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET)
}
