package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/diwise/gas-monitor/internal/pkg/application/watchdog"
	"github.com/diwise/gas-monitor/internal/pkg/infrastructure/mqtt"
)

var ErrMissingConfig = errors.New("missing required configuration")

const (
	mqttHost       = "MQTT_HOST"
	mqttPort       = "MQTT_PORT"
	mqttTopic      = "MQTT_TOPIC"
	mqttUser       = "MQTT_USER"
	mqttPass       = "MQTT_PASS"
	mqttTLS        = "MQTT_TLS"
	mqttClientID   = "MQTT_CLIENT_ID"
	storeURL       = "STORE_URL"
	storePassword  = "STORE_PASSWORD"
	listenPort     = "LISTEN_PORT"
	deviceID       = "DEVICE_ID"
	valkeyAddr     = "VALKEY_ADDR"
	logLevel       = "LOG_LEVEL"
	otelEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	silenceTimeout = "SENSOR_SILENCE_TIMEOUT"
	inMemoryStore  = "memory"
	defaultDevice  = "esp32_01"
	clientIDPrefix = "gas-monitor-"
)

var requiredKeys = []string{mqttHost, mqttPort, mqttTopic, storeURL, listenPort}

type config struct {
	MQTT          mqtt.Config
	StoreURL      string
	StorePassword string
	ListenPort    string
	DeviceID      string
	ValkeyAddr    string
	LogLevel      string
	OTLPEndpoint  string
	SilenceAfter  time.Duration
}

// MissingConfigError lists every required key that was not set.
type MissingConfigError struct {
	Keys []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingConfig.Error(), strings.Join(e.Keys, ", "))
}

func (e *MissingConfigError) Unwrap() error {
	return ErrMissingConfig
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(deviceID, defaultDevice)
	v.SetDefault(logLevel, "info")
	v.SetDefault(mqttTLS, false)
	v.SetDefault(silenceTimeout, watchdog.DefaultTimeout.String())

	return v
}

func loadConfig(v *viper.Viper) (config, error) {
	missing := lo.Filter(requiredKeys, func(key string, _ int) bool {
		return strings.TrimSpace(v.GetString(key)) == ""
	})

	if len(missing) > 0 {
		return config{}, &MissingConfigError{Keys: missing}
	}

	clientID := v.GetString(mqttClientID)
	if clientID == "" {
		clientID = clientIDPrefix + strings.Split(uuid.NewString(), "-")[0]
	}

	return config{
		MQTT: mqtt.Config{
			Host:     v.GetString(mqttHost),
			Port:     v.GetString(mqttPort),
			Topic:    v.GetString(mqttTopic),
			User:     v.GetString(mqttUser),
			Password: v.GetString(mqttPass),
			ClientID: clientID,
			TLS:      v.GetBool(mqttTLS),
		},
		StoreURL:      v.GetString(storeURL),
		StorePassword: v.GetString(storePassword),
		ListenPort:    v.GetString(listenPort),
		DeviceID:      v.GetString(deviceID),
		ValkeyAddr:    v.GetString(valkeyAddr),
		LogLevel:      v.GetString(logLevel),
		OTLPEndpoint:  v.GetString(otelEndpoint),
		SilenceAfter:  v.GetDuration(silenceTimeout),
	}, nil
}
