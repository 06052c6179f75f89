package mlserving

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/nextlevelmlops/iris-ml-classification/internal/config"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"io"
	"net/http"
	"net/url"
	"time"
)

type PredictionResponse struct {
	Predictions []string `json:"predictions"`
}

type predictionEnvelope struct {
	Predictions *[]string `json:"predictions"`
}

type InferenceClient struct {
	endpoint   string
	payloadKey string

	httpClient *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
}

func NewInferenceClient(cfg *config.Config, httpClient *http.Client, logger *zap.Logger) *InferenceClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	payloadKey := cfg.Endpoint.PayloadKey
	if payloadKey == "" {
		payloadKey = DefaultPayloadKey
	}

	endpoint := ""
	if cfg.Databricks.Host != "" {
		endpoint = cfg.ServingEndpoint()
	}

	return &InferenceClient{
		endpoint:   endpoint,
		payloadKey: payloadKey,
		httpClient: httpClient,
		tracer:     otel.Tracer("mlserving-client"),
		logger:     logger.Named("inference-client"),
	}
}

// NewHTTPClient returns the client shared by the token provider and the
// inference client, bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (c *InferenceClient) Predict(ctx context.Context, token AccessToken, record Tabular) (PredictionResponse, error) {
	const op = "InferenceClient.Predict"

	ctx, span := c.tracer.Start(ctx, "InferenceClient.Predict")
	defer span.End()

	u, err := url.Parse(c.endpoint)
	if c.endpoint == "" || err != nil || !u.IsAbs() {
		e := ConfigurationError(op, "serving endpoint "+c.endpoint+" is not an absolute URL")
		span.RecordError(e)
		return PredictionResponse{}, e
	}

	body, err := EncodeRequest(c.payloadKey, record)
	if err != nil {
		span.RecordError(err)
		return PredictionResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return PredictionResponse{}, newError(KindConfiguration, op, errors.Wrap(err, "http.NewRequest"))
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("serving endpoint unreachable", zap.String("endpoint", c.endpoint), zap.Error(err))
		return PredictionResponse{}, newError(KindTransport, op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return PredictionResponse{}, newError(KindTransport, op, errors.Wrap(err, "read inference response"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := newStatusError(KindInference, op, resp.StatusCode, respBody)
		span.RecordError(e)
		c.logger.Warn("serving endpoint returned error", zap.Int("status", resp.StatusCode))
		return PredictionResponse{}, e
	}

	var envelope predictionEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return PredictionResponse{}, newError(KindProtocol, op, errors.Wrap(err, "decode inference response"))
	}

	if envelope.Predictions == nil {
		return PredictionResponse{}, ProtocolError(op, "predictions field is missing from inference response")
	}

	c.logger.Debug("prediction received", zap.Int("predictions", len(*envelope.Predictions)))

	return PredictionResponse{Predictions: *envelope.Predictions}, nil
}
