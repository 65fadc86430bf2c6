package device

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"

	"mindrc-gateway/internal/data"
)

// openPTY returns the master side of a fresh pseudo-terminal and the path of
// its slave, which stands in for /dev/rfcomm0.
func openPTY(t *testing.T) (*os.File, string) {
	t.Helper()
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("no pseudo-terminal support: %v", err)
	}
	t.Cleanup(func() { master.Close() })

	rc, err := master.SyscallConn()
	require.NoError(t, err)
	var n int
	var ioctlErr error
	require.NoError(t, rc.Control(func(fd uintptr) {
		if ioctlErr = unix.IoctlSetPointerInt(int(fd), unix.TIOCSPTLCK, 0); ioctlErr != nil {
			return
		}
		n, ioctlErr = unix.IoctlGetInt(int(fd), unix.TIOCGPTN)
	}))
	require.NoError(t, ioctlErr)
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func TestOpenPathRawMode(t *testing.T) {
	master, slave := openPTY(t)

	dev := NewThinkGear(OpenPath(slave, 57600), 16, zaptest.NewLogger(t).Sugar())
	require.NoError(t, dev.Start(t.Context()))
	defer dev.Stop()

	// 0x04 (EOF), 0x0D (CR) and 0x03 (INTR) are all ordinary bytes here.
	stream := append(packet(codeAttn, 0x0D), packet(codeMed, 0x03)...)
	stream = append(stream, packet(codeAttn, 0x04)...)
	_, err := master.Write(stream)
	require.NoError(t, err)

	want := []data.Event{
		{Kind: data.KindAttention, Value: 0x0D},
		{Kind: data.KindMeditation, Value: 0x03},
		{Kind: data.KindAttention, Value: 0x04},
	}
	for _, w := range want {
		select {
		case ev := <-dev.Events():
			assert.Equal(t, w.Kind, ev.Kind)
			assert.Equal(t, w.Value, ev.Value)
		case <-time.After(5 * time.Second):
			t.Fatalf("no %s event (bad checksums: %d)", w.Kind, dev.badChecksums.Load())
		}
	}
	assert.Zero(t, dev.badChecksums.Load())

	// Nothing is echoed back to the headset.
	require.NoError(t, master.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 64)
	n, _ := master.Read(buf)
	assert.Zero(t, n, "echoed % x", buf[:n])
}

func TestOpenPathRejectsUnknownBaud(t *testing.T) {
	_, slave := openPTY(t)
	_, err := OpenPath(slave, 12345)()
	assert.Error(t, err)
}
