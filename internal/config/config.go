// internal/config/config.go
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. MINDRC_LINK_URL.
const EnvPrefix = "MINDRC"

type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Link     LinkConfig `mapstructure:"link"`
	Dispatch struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"dispatch"`
	Thresholds struct {
		High   int `mapstructure:"high"`
		Medium int `mapstructure:"medium"`
		Low    int `mapstructure:"low"`
	} `mapstructure:"thresholds"`
	Device  DeviceConfig  `mapstructure:"device"`
	Anomaly AnomalyConfig `mapstructure:"anomaly"`
	Log     struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// LinkConfig describes the outbound command link to the car.
type LinkConfig struct {
	Kind    string        `mapstructure:"kind"` // websocket | mqtt
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	MQTT    struct {
		Broker   string `mapstructure:"broker"`
		Topic    string `mapstructure:"topic"`
		ClientID string `mapstructure:"client_id"`
	} `mapstructure:"mqtt"`
}

type DeviceConfig struct {
	Kind    string `mapstructure:"kind"` // thinkgear | sim
	Address string `mapstructure:"address"`
	Baud    int    `mapstructure:"baud"`
	Buffer  int    `mapstructure:"buffer"`
	Sim     struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"sim"`
}

type AnomalyConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	FitSize int     `mapstructure:"fit_size"`
	Nu      float64 `mapstructure:"nu"`
}

// Load reads config.yaml from path (if present), applies MINDRC_* environment
// overrides and falls back to built-in defaults for anything unset. A missing
// config file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)

	v.SetDefault("link.kind", "websocket")
	v.SetDefault("link.url", "ws://172.20.10.2:81")
	v.SetDefault("link.timeout", 5*time.Second)
	v.SetDefault("link.mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("link.mqtt.topic", "rc/command")
	v.SetDefault("link.mqtt.client_id", "mindrc")

	v.SetDefault("dispatch.interval", time.Second)

	v.SetDefault("thresholds.high", 75)
	v.SetDefault("thresholds.medium", 50)
	v.SetDefault("thresholds.low", 25)

	v.SetDefault("device.kind", "thinkgear")
	v.SetDefault("device.address", "/dev/rfcomm0")
	v.SetDefault("device.baud", 57600)
	v.SetDefault("device.buffer", 64)
	v.SetDefault("device.sim.interval", 200*time.Millisecond)

	v.SetDefault("anomaly.enabled", true)
	v.SetDefault("anomaly.fit_size", 10)
	v.SetDefault("anomaly.nu", 0.1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
