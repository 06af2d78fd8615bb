package types

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for timestamps on the live feed.
const TimestampLayout string = "2006-01-02T15:04:05.000Z07:00"

// AlertPrefix is written before the JSON body of every live frame whose tier is alert-worthy.
const AlertPrefix string = "ALERT:"

type Reading struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"deviceID"`
	Value      int64     `json:"value"`
	ObservedAt time.Time `json:"observedAt"`
}

type Alert struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"deviceID"`
	TierRank  int       `json:"tierRank"`
	Level     string    `json:"level"`
	Value     int64     `json:"value"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// LiveUpdate is the structured body pushed to connected viewers.
type LiveUpdate struct {
	Value     int64  `json:"value"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message,omitempty"`
}

// Frame encodes the update as a text frame. Alert frames carry AlertPrefix as their first bytes.
func (u LiveUpdate) Frame(alert bool) ([]byte, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}

	if !alert {
		return b, nil
	}

	frame := make([]byte, 0, len(AlertPrefix)+len(b))
	frame = append(frame, AlertPrefix...)
	return append(frame, b...), nil
}

type Status struct {
	Status    string          `json:"status"`
	MQTT      MQTTStatus      `json:"mqtt"`
	WebSocket WebSocketStatus `json:"websocket"`
	Store     StoreStatus     `json:"store"`
	Sensor    SensorStatus    `json:"sensor"`
	Timestamp string          `json:"timestamp"`
}

type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

type WebSocketStatus struct {
	ActiveConnections int `json:"active_connections"`
}

type StoreStatus struct {
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

type SensorStatus struct {
	DeviceID    string `json:"device_id"`
	LastReading string `json:"last_reading,omitempty"`
	Silent      bool   `json:"silent"`
}
