package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrMalformedPayload = errors.New("malformed payload")

// Decode extracts the sensor value from a message payload. Accepted forms are a decimal
// integer, optionally surrounded by whitespace, and a JSON object {"value": <integer>}.
// Values beyond the int64 range are clamped to its bounds.
func Decode(payload []byte) (int64, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}

	if trimmed[0] != '{' {
		return parseInteger(trimmed)
	}

	body := struct {
		Value json.RawMessage `json:"value"`
	}{}

	if err := json.Unmarshal(trimmed, &body); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}

	if len(body.Value) == 0 {
		return 0, fmt.Errorf("%w: no value field", ErrMalformedPayload)
	}

	return parseInteger(body.Value)
}

// parseInteger saturates integers outside the int64 range, they still classify.
func parseInteger(b []byte) (int64, error) {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return v, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformedPayload, truncate(b, 32))
	}
	return v, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
