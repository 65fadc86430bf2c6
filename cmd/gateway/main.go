// cmd/gateway/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mindrc-gateway/internal/alerting"
	"mindrc-gateway/internal/anomaly"
	"mindrc-gateway/internal/api"
	"mindrc-gateway/internal/band"
	"mindrc-gateway/internal/config"
	"mindrc-gateway/internal/data"
	"mindrc-gateway/internal/device"
	"mindrc-gateway/internal/dispatch"
	"mindrc-gateway/internal/ingest"
	"mindrc-gateway/internal/logging"
	"mindrc-gateway/internal/storage"
	"mindrc-gateway/internal/websocket"
)

const shutdownGrace = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configDir string

	cmd := &cobra.Command{
		Use:   "mindrc-gateway",
		Short: "Drive an RC car from EEG attention levels",
		Long: `mindrc-gateway reads attention from a ThinkGear headset, maps it onto
bands A-D using adjustable thresholds and sends the band letter to the car.

The HTTP API on server.port exposes:
  GET  /get_attention   latest attention sample
  GET  /get_ranges      current thresholds
  POST /update_ranges   change any of high, medium, low
  GET  /feed            websocket stream of live telemetry`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configDir)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, logger); err != nil {
				logger.Errorw("gateway stopped with error", "error", err)
				return err
			}
			logger.Infow("gateway stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configDir, "config", ".", "directory containing config.yaml")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("device", "thinkgear", "headset source (thinkgear, sim)")
	flags.String("address", "/dev/rfcomm0", "serial path of the paired headset")
	flags.String("link-url", "ws://172.20.10.2:81", "websocket URL of the car")
	flags.Int("port", 5000, "HTTP API port")

	for key, flag := range map[string]string{
		"log.level":      "log-level",
		"device.kind":    "device",
		"device.address": "address",
		"link.url":       "link-url",
		"server.port":    "port",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	state := storage.NewState(band.Thresholds{
		High:   cfg.Thresholds.High,
		Medium: cfg.Thresholds.Medium,
		Low:    cfg.Thresholds.Low,
	})
	hub := websocket.NewHub(logger.Named("feed"))

	link, err := newLink(cfg.Link)
	if err != nil {
		return err
	}
	dispatcher := dispatch.NewDispatcher(link, cfg.Dispatch.Interval, cfg.Link.Timeout, logger.Named("dispatch"),
		dispatch.WithObserver(func(b band.Band, res data.DispatchResult) {
			state.RecordDispatch(b, res.Timestamp)
			hub.Publish("dispatch", res)
		}))

	pipeline := ingest.NewPipeline(
		state,
		dispatcher,
		anomaly.NewGate(cfg.Anomaly, logger.Named("anomaly")),
		alerting.NewAlerter(hub, logger.Named("alerting")),
		hub,
		logger.Named("ingest"),
	)

	dev, err := newDevice(cfg.Device, logger.Named("device"))
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.SetupRouter(api.NewAPIHandler(state, hub, logger.Named("api"))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Infow("starting configuration API", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "configuration API")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return errors.Wrap(server.Shutdown(shutdownCtx), "shutting down configuration API")
	})

	if err := dev.Start(gctx); err != nil {
		logger.Errorw("headset did not start", "error", err)
		g.Go(func() error { return errors.Wrap(err, "starting headset") })
	} else {
		g.Go(func() error {
			return pipeline.Run(gctx, dev.Events())
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Infow("stopping headset")
			return dev.Stop()
		})
	}

	return g.Wait()
}

func newLink(cfg config.LinkConfig) (dispatch.Link, error) {
	switch cfg.Kind {
	case "", "websocket":
		return dispatch.NewWebsocketLink(cfg.URL), nil
	case "mqtt":
		return dispatch.NewMQTTLink(cfg.MQTT.Broker, cfg.MQTT.Topic, cfg.MQTT.ClientID), nil
	}
	return nil, errors.Newf("unknown link kind %q", cfg.Kind)
}

func newDevice(cfg config.DeviceConfig, logger *zap.SugaredLogger) (device.Device, error) {
	switch cfg.Kind {
	case "", "thinkgear":
		return device.NewThinkGear(device.OpenPath(cfg.Address, cfg.Baud), cfg.Buffer, logger), nil
	case "sim":
		return device.NewSimulator(cfg.Sim.Interval, cfg.Buffer, uint64(time.Now().UnixNano()), logger), nil
	}
	return nil, errors.Newf("unknown device kind %q", cfg.Kind)
}
