package dispatch

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestMQTTLinkSend(t *testing.T) {
	addr := fmt.Sprintf("127.0.0.1:%d", freePort(t))

	server := mochi.New(&mochi.Options{InlineClient: true})
	require.NoError(t, server.AddHook(new(auth.AllowHook), nil))
	require.NoError(t, server.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "test",
		Address: addr,
	})))
	require.NoError(t, server.Serve())
	t.Cleanup(func() { server.Close() })

	received := make(chan string, 1)
	require.NoError(t, server.Subscribe("rc/command", 1, func(_ *mochi.Client, _ packets.Subscription, pk packets.Packet) {
		received <- string(pk.Payload)
	}))

	link := NewMQTTLink("tcp://"+addr, "rc/command", "mindrc-test")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, link.Send(ctx, 'B'))

	select {
	case got := <-received:
		assert.Equal(t, "B", got)
	case <-time.After(5 * time.Second):
		t.Fatal("broker never saw the command")
	}
}

func TestMQTTLinkUnreachable(t *testing.T) {
	link := NewMQTTLink(fmt.Sprintf("tcp://127.0.0.1:%d", freePort(t)), "rc/command", "mindrc-test")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, link.Send(ctx, 'A'))
}
