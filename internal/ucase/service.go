package ucase

import (
	"context"
	"github.com/nextlevelmlops/iris-ml-classification/internal/entities"
	"github.com/nextlevelmlops/iris-ml-classification/pkg/mlserving"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	TokenUCase interface {
		FetchToken(ctx context.Context) (mlserving.AccessToken, error)
	}

	PredictorUCase interface {
		Predict(ctx context.Context, token mlserving.AccessToken, record mlserving.Tabular) (mlserving.PredictionResponse, error)
	}

	LabelUCase interface {
		Resolve(ctx context.Context, predictions []string) (entities.Species, error)
	}
)

type UseCase struct {
	tokens    TokenUCase
	predictor PredictorUCase
	labels    LabelUCase

	logger *zap.Logger
	tracer trace.Tracer
}

func NewUseCase(
	tokens TokenUCase,
	predictor PredictorUCase,
	labels LabelUCase,
	logger *zap.Logger,
) *UseCase {
	return &UseCase{
		tokens:    tokens,
		predictor: predictor,
		labels:    labels,
		logger:    logger.Named("ucase"),
		tracer:    otel.GetTracerProvider().Tracer("uCase"),
	}
}

// PredictSpecies fetches a fresh token, sends record to the serving endpoint
// and resolves the first prediction. Any failure stops the sequence.
func (u UseCase) PredictSpecies(ctx context.Context, record entities.MeasurementRecord) (entities.Species, error) {
	ctx, span := u.tracer.Start(ctx, "PredictSpecies")
	defer span.End()

	run := newStageRun(u.logger)

	fail := func(err error, op string) (entities.Species, error) {
		run.fail(err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("ucase.failed_after", run.lastGood.String()))
		return entities.Species{}, errors.Wrap(err, op)
	}

	run.advance(StageTokenRequested)
	token, err := u.tokens.FetchToken(ctx)
	if err != nil {
		return fail(err, "tokens.FetchToken")
	}
	run.advance(StageTokenObtained)

	run.advance(StageInferenceRequested)
	resp, err := u.predictor.Predict(ctx, token, record)
	if err != nil {
		return fail(err, "predictor.Predict")
	}

	species, err := u.labels.Resolve(ctx, resp.Predictions)
	if err != nil {
		return fail(err, "labels.Resolve")
	}
	run.advance(StageCompleted)

	span.SetAttributes(attribute.String("iris.species", species.Name))

	return species, nil
}
