//go:build !linux && !darwin

package device

import (
	"runtime"

	"github.com/cockroachdb/errors"
)

const noCTTY = 0

func makeRaw(fd, baud int) error {
	return errors.Newf("raw serial mode is not supported on %s", runtime.GOOS)
}
