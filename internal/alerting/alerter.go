// internal/alerting/alerter.go
package alerting

import (
	"go.uber.org/zap"

	"mindrc-gateway/internal/data"
)

// Publisher is where alerts are broadcast, normally the feed hub.
type Publisher interface {
	Publish(kind string, payload any)
}

type Alerter struct {
	feed   Publisher
	logger *zap.SugaredLogger
}

func NewAlerter(feed Publisher, logger *zap.SugaredLogger) *Alerter {
	return &Alerter{feed: feed, logger: logger}
}

// ProcessAlerts logs each alert and forwards it to the feed, if any.
func (a *Alerter) ProcessAlerts(alerts []data.Alert) {
	for _, alert := range alerts {
		a.logger.Warnw(alert.Message,
			"severity", alert.Severity,
			"score", alert.Score,
			"limit", alert.Limit)
		if a.feed != nil {
			a.feed.Publish("alert", alert)
		}
	}
}
