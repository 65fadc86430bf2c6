// internal/dispatch/mqtt.go
package dispatch

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const defaultMQTTWait = 5 * time.Second

// MQTTLink publishes each command with QoS 0 over a fresh broker session,
// for cars that listen on a topic instead of running a websocket server.
type MQTTLink struct {
	Broker   string
	Topic    string
	ClientID string
}

func NewMQTTLink(broker, topic, clientID string) *MQTTLink {
	return &MQTTLink{Broker: broker, Topic: topic, ClientID: clientID}
}

func (l *MQTTLink) Send(ctx context.Context, cmd byte) error {
	wait := defaultMQTTWait
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
		if wait <= 0 {
			return errors.Wrap(context.DeadlineExceeded, "mqtt send")
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(l.Broker).
		SetClientID(l.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(wait)
	client := mqtt.NewClient(opts)

	if err := await(ctx, client.Connect(), wait); err != nil {
		return errors.Wrapf(err, "connecting to %s", l.Broker)
	}
	defer client.Disconnect(250)

	if err := await(ctx, client.Publish(l.Topic, 0, false, []byte{cmd}), wait); err != nil {
		return errors.Wrapf(err, "publishing to %s", l.Topic)
	}
	return nil
}

func await(ctx context.Context, tok mqtt.Token, wait time.Duration) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return errors.New("timed out")
	}
}
