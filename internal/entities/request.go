package entities

import (
	"github.com/google/uuid"
	"time"
)

type PredictionRequest struct {
	RequestID uuid.UUID
	ClientID  string
	Record    MeasurementRecord
	Timestamp time.Time
}

type PredictionOutcome struct {
	Species    Species
	Error      string
	ErrorKind  string
	StatusCode int
}

func (o PredictionOutcome) Failed() bool {
	return o.Error != ""
}
