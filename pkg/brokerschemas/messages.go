package brokerschemas

import (
	"github.com/google/uuid"
	"time"
)

type MeasurementMessage struct {
	RequestID   uuid.UUID `json:"request_id"`
	ClientID    string    `json:"client_id"`
	SepalLength float64   `json:"sepal_length"`
	SepalWidth  float64   `json:"sepal_width"`
	PetalLength float64   `json:"petal_length"`
	PetalWidth  float64   `json:"petal_width"`
	Timestamp   time.Time `json:"timestamp"`
}

// PredictionMessage answers a MeasurementMessage. Exactly one of Species and
// Error is set.
type PredictionMessage struct {
	RequestID  uuid.UUID `json:"request_id"`
	ClientID   string    `json:"client_id"`
	Species    string    `json:"species,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
