package brokerproducer

import (
	"context"
	"encoding/json"
	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/google/uuid"
	"github.com/nextlevelmlops/iris-ml-classification/internal/entities"
	"github.com/nextlevelmlops/iris-ml-classification/pkg/brokerschemas"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"testing"
	"time"
)

func newMockProducer(t *testing.T) *mocks.SyncProducer {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true

	return mocks.NewSyncProducer(t, cfg)
}

func TestKafkaProducer_Publish(t *testing.T) {
	request := entities.PredictionRequest{RequestID: uuid.New(), ClientID: "greenhouse-1"}

	t.Run("publishes species", func(t *testing.T) {
		mock := newMockProducer(t)
		mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var msg brokerschemas.PredictionMessage
			if err := json.Unmarshal(val, &msg); err != nil {
				return err
			}
			if msg.Species != "setosa" || msg.RequestID != request.RequestID || msg.Error != "" {
				return errors.Errorf("unexpected message %+v", msg)
			}
			return nil
		})

		producer := NewKafkaProducer(zaptest.NewLogger(t), mock, "IrisPredictionOutput")
		producer.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

		err := producer.Publish(context.Background(), request, entities.PredictionOutcome{
			Species: entities.Species{Name: "setosa"},
		})

		require.NoError(t, err)
		require.NoError(t, producer.Close())
	})

	t.Run("publishes classified error", func(t *testing.T) {
		mock := newMockProducer(t)
		mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var msg brokerschemas.PredictionMessage
			if err := json.Unmarshal(val, &msg); err != nil {
				return err
			}
			if msg.Species != "" || msg.StatusCode != 401 || msg.ErrorKind != "authentication" {
				return errors.Errorf("unexpected message %+v", msg)
			}
			return nil
		})

		producer := NewKafkaProducer(zaptest.NewLogger(t), mock, "IrisPredictionOutput")

		err := producer.Publish(context.Background(), request, entities.PredictionOutcome{
			Error:      "API Error: 401 - denied",
			ErrorKind:  "authentication",
			StatusCode: 401,
		})

		require.NoError(t, err)
		require.NoError(t, producer.Close())
	})

	t.Run("broker failure", func(t *testing.T) {
		mock := newMockProducer(t)
		mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		producer := NewKafkaProducer(zaptest.NewLogger(t), mock, "IrisPredictionOutput")

		err := producer.Publish(context.Background(), request, entities.PredictionOutcome{
			Species: entities.Species{Name: "virginica"},
		})

		assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
		require.NoError(t, producer.Close())
	})
}
