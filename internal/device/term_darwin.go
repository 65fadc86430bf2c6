package device

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

const noCTTY = unix.O_NOCTTY

// makeRaw is the cfmakeraw equivalent plus a fixed line speed. Darwin keeps
// the speed as a plain number in Ispeed/Ospeed.
func makeRaw(fd, baud int) error {
	if baud <= 0 {
		return errors.Newf("unsupported baud rate %d", baud)
	}

	t, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	if err != nil {
		return errors.Wrap(err, "reading termios")
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CLOCAL | unix.CREAD
	t.Ispeed = uint64(baud)
	t.Ospeed = uint64(baud)
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	return errors.Wrap(unix.IoctlSetTermios(fd, unix.TIOCSETA, t), "writing termios")
}
