package ucase

import (
	"context"
	"github.com/nextlevelmlops/iris-ml-classification/internal/entities"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	SpeciesUCase interface {
		PredictSpecies(ctx context.Context, record entities.MeasurementRecord) (entities.Species, error)
	}

	NotifierUCase interface {
		Publish(ctx context.Context, request entities.PredictionRequest, outcome entities.PredictionOutcome) error
	}
)

type BrokerUseCase struct {
	species  SpeciesUCase
	notifier NotifierUCase

	logger *zap.Logger
	tracer trace.Tracer
}

func NewBrokerUseCase(species SpeciesUCase, notifier NotifierUCase, logger *zap.Logger) *BrokerUseCase {
	return &BrokerUseCase{
		species:  species,
		notifier: notifier,
		logger:   logger.Named("broker-ucase"),
		tracer:   otel.GetTracerProvider().Tracer("BrokerUseCase"),
	}
}

// Process always publishes an outcome; the returned error only reports a
// failure to publish.
func (b BrokerUseCase) Process(ctx context.Context, request entities.PredictionRequest) error {
	ctx, span := b.tracer.Start(ctx, "ProcessRequest")
	defer span.End()

	outcome := b.outcome(ctx, request)

	if err := b.notifier.Publish(ctx, request, outcome); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "notifier.Publish")
	}

	return nil
}

func (b BrokerUseCase) outcome(ctx context.Context, request entities.PredictionRequest) entities.PredictionOutcome {
	if err := request.Record.Validate(); err != nil {
		return entities.PredictionOutcome{Error: err.Error(), ErrorKind: "validation"}
	}

	species, err := b.species.PredictSpecies(ctx, request.Record)
	if err != nil {
		failure := Classify(err)
		b.logger.Warn("prediction failed",
			zap.String("requestID", request.RequestID.String()),
			zap.Stringer("kind", failure.Kind),
			zap.Error(err),
		)

		return entities.PredictionOutcome{
			Error:      failure.Message(),
			ErrorKind:  failure.Kind.String(),
			StatusCode: failure.StatusCode,
		}
	}

	return entities.PredictionOutcome{Species: species}
}
