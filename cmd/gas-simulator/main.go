package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/diwise/gas-monitor/internal/pkg/application/classifier"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/logging"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/mqtt"
)

const serviceName string = "gas-simulator"

const (
	minValue int64 = 300
	maxValue int64 = 2500
)

type settings struct {
	Host     string
	Port     string
	Topic    string
	User     string
	Password string
	TLS      bool
	Interval time.Duration
}

func main() {
	ctx, logger := logging.NewLogger(context.Background(), serviceName, "")

	v := viper.New()
	v.AutomaticEnv()

	s, err := loadSettings(v)
	exitIf(err, logger, "invalid configuration")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, s)
	exitIf(err, logger, "simulator failed")

	logger.Info().Msg("simulator stopped")
}

func loadSettings(v *viper.Viper) (settings, error) {
	v.SetDefault("MQTT_PORT", "1883")
	v.SetDefault("MQTT_TOPIC", "iot/sensor/gas")
	v.SetDefault("PUBLISH_INTERVAL", "2s")

	s := settings{
		Host:     v.GetString("MQTT_HOST"),
		Port:     v.GetString("MQTT_PORT"),
		Topic:    v.GetString("MQTT_TOPIC"),
		User:     v.GetString("MQTT_USER"),
		Password: v.GetString("MQTT_PASS"),
		TLS:      v.GetBool("MQTT_TLS"),
		Interval: v.GetDuration("PUBLISH_INTERVAL"),
	}

	if s.Host == "" {
		return s, errors.New("MQTT_HOST is not set")
	}

	if s.Interval <= 0 {
		return s, fmt.Errorf("PUBLISH_INTERVAL must be positive, got %q", v.GetString("PUBLISH_INTERVAL"))
	}

	return s, nil
}

func run(ctx context.Context, s settings) error {
	log := logging.GetFromContext(ctx)

	broker := mqtt.Config{Host: s.Host, Port: s.Port, TLS: s.TLS}.Broker()

	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(serviceName)
	if s.User != "" {
		opts.SetUsername(s.User)
		opts.SetPassword(s.Password)
	}
	if s.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12, ServerName: s.Host})
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to %s: %w", broker, token.Error())
	}
	defer client.Disconnect(250)

	log.Info().Str("broker", broker).Str("topic", s.Topic).Msgf("publishing values in [%d, %d] every %s", minValue, maxValue, s.Interval)

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	count := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			value := randomValue(rnd)
			count++

			payload, err := newPayload(value)
			if err != nil {
				return err
			}

			token := client.Publish(s.Topic, 0, false, payload)
			if !token.WaitTimeout(5 * time.Second) {
				log.Warn().Int64("value", value).Msg("publish timed out")
				continue
			}
			if err := token.Error(); err != nil {
				log.Error().Err(err).Msg("publish failed")
				continue
			}

			tier := classifier.Classify(value)
			log.Info().Int("count", count).Int64("value", value).Str("level", tier.Level).Msg("published")
		}
	}
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Fatal().Err(err).Msg(msg)
	}
}

func randomValue(rnd *rand.Rand) int64 {
	return minValue + rnd.Int63n(maxValue-minValue+1)
}

func newPayload(value int64) ([]byte, error) {
	return json.Marshal(struct {
		Value int64 `json:"value"`
	}{Value: value})
}
