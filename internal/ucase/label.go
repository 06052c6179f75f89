package ucase

import (
	"context"
	"github.com/nextlevelmlops/iris-ml-classification/internal/entities"
	"github.com/nextlevelmlops/iris-ml-classification/pkg/mlserving"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type LabelUseCase struct {
	tracer trace.Tracer
}

var (
	_ LabelUCase = LabelUseCase{}
)

func NewLabelUseCase() *LabelUseCase {
	return &LabelUseCase{
		otel.GetTracerProvider().Tracer("LabelUseCase"),
	}
}

// Resolve maps the first prediction to a known species. Only index 0 is used.
func (l LabelUseCase) Resolve(ctx context.Context, predictions []string) (entities.Species, error) {
	_, span := l.tracer.Start(ctx, "Resolve")
	defer span.End()

	if len(predictions) == 0 {
		err := mlserving.ProtocolError("LabelUseCase.Resolve", "predictions are empty")
		span.RecordError(err)
		return entities.Species{}, err
	}

	species, ok := entities.LookupSpecies(predictions[0])
	if !ok {
		err := mlserving.UnknownLabelError("LabelUseCase.Resolve", predictions[0])
		span.RecordError(err)
		return entities.Species{}, err
	}

	return species, nil
}
