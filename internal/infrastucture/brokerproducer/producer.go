package brokerproducer

import (
	"context"
	"encoding/json"
	"github.com/Shopify/sarama"
	"github.com/nextlevelmlops/iris-ml-classification/internal/entities"
	"github.com/nextlevelmlops/iris-ml-classification/pkg/brokerschemas"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/Shopify/sarama/otelsarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"time"
)

type KafkaProducer struct {
	topic    string
	tracer   trace.Tracer
	producer sarama.SyncProducer
	logger   *zap.Logger
	now      func() time.Time
}

func NewKafkaProducer(logger *zap.Logger, producer sarama.SyncProducer, topic string) *KafkaProducer {
	tracer := otel.Tracer("msbroker")

	return &KafkaProducer{
		tracer:   tracer,
		producer: producer,
		logger:   logger.Named("kafka-producer"),
		topic:    topic,
		now:      time.Now,
	}
}

func (k KafkaProducer) Publish(ctx context.Context, request entities.PredictionRequest, outcome entities.PredictionOutcome) error {
	ctx, span := k.tracer.Start(ctx, "msbroker.Send")
	defer span.End()

	msg := brokerschemas.PredictionMessage{
		RequestID:  request.RequestID,
		ClientID:   request.ClientID,
		Species:    outcome.Species.Name,
		Error:      outcome.Error,
		ErrorKind:  outcome.ErrorKind,
		StatusCode: outcome.StatusCode,
		Timestamp:  k.now().UTC(),
	}

	msgBytes, err := json.Marshal(&msg)
	if err != nil {
		return errors.Wrap(err, "json.Marshal")
	}

	producerMsg := &sarama.ProducerMessage{
		Topic:     k.topic,
		Key:       sarama.StringEncoder(msg.RequestID.String()),
		Value:     sarama.ByteEncoder(msgBytes),
		Timestamp: k.now(),
	}

	otel.GetTextMapPropagator().Inject(ctx, otelsarama.NewProducerMessageCarrier(producerMsg))

	partition, offset, err := k.producer.SendMessage(producerMsg)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "can't send message into kafka")
	}

	k.logger.Info(
		"prediction successfully send to broker",
		zap.String("requestID", msg.RequestID.String()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

func (k KafkaProducer) Close() error {
	return k.producer.Close()
}
