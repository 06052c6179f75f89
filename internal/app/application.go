package app

import (
	"context"
	"github.com/Shopify/sarama"
	"github.com/avast/retry-go"
	"github.com/nextlevelmlops/iris-ml-classification/internal/config"
	"github.com/nextlevelmlops/iris-ml-classification/internal/controller/brokerconsumer"
	"github.com/nextlevelmlops/iris-ml-classification/internal/controller/healthcheck"
	"github.com/nextlevelmlops/iris-ml-classification/internal/controller/httpserver"
	"github.com/nextlevelmlops/iris-ml-classification/internal/infrastucture/brokerproducer"
	"github.com/nextlevelmlops/iris-ml-classification/internal/ucase"
	"github.com/nextlevelmlops/iris-ml-classification/pkg/mlserving"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/Shopify/sarama/otelsarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const (
	serviceName = "iris-prediction-service"

	producerAttempts = 5
	producerDelay    = 2 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func createTraceProvider(ctx context.Context, cfg config.OTELConfig) (func(context.Context) error, error) {
	exporter, err := otlptrace.New(
		ctx,
		otlptracegrpc.NewClient(
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(net.JoinHostPort(cfg.Host, cfg.Port)),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating trace exporter")
	}

	resources, err := resource.New(
		ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating trace resources")
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)

	return exporter.Shutdown, nil
}

// createKafkaProducer dials the brokers, retrying while they come up.
func createKafkaProducer(ctx context.Context, cfg config.KafkaProducerConfig, logger *zap.Logger) (sarama.SyncProducer, error) {
	kfkCfg := sarama.NewConfig()
	kfkCfg.Version = sarama.V3_3_0_0
	kfkCfg.Producer.Return.Successes = true

	var producer sarama.SyncProducer

	if err := retry.Do(
		func() error {
			var err error

			producer, err = sarama.NewSyncProducer(strings.Split(cfg.Peers, ","), kfkCfg)
			return err
		},
		retry.Attempts(producerAttempts),
		retry.Delay(producerDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("kafka producer not ready", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	); err != nil {
		return nil, errors.Wrap(err, "error during create producer")
	}

	return otelsarama.WrapSyncProducer(kfkCfg, producer), nil
}

func Run(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := NewLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Debug("logger initialized")

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	shutdownTraceProvider := func(context.Context) error { return nil }
	if cfg.OTEL.Enabled() {
		shutdown, err := createTraceProvider(ctx, cfg.OTEL)
		if err != nil {
			logger.Fatal("error creating trace provider", zap.Error(err))
		}
		shutdownTraceProvider = shutdown
		logger.Debug("trace provider created")
	}

	if cfg.Databricks.Host == "" {
		logger.Warn("DATABRICKS_HOST is not set, predictions will fail until it is configured")
	}

	httpClient := mlserving.NewHTTPClient(cfg.Endpoint.Timeout)

	uCase := ucase.NewUseCase(
		mlserving.NewTokenProvider(cfg.Databricks, httpClient, logger),
		mlserving.NewInferenceClient(cfg, httpClient, logger),
		ucase.NewLabelUseCase(),
		logger,
	)

	httpServer := httpserver.NewServer(cfg.HTTP, uCase, logger)
	go func() {
		if err := httpServer.Run(ctx); err != nil {
			logger.Fatal("error running http server", zap.Error(err))
		}
	}()

	var healthServer *healthcheck.Server

	if cfg.GRPC.Enabled() {
		healthServer = healthcheck.NewServer(cfg.GRPC.Addr, logger)
		go func() {
			if err := healthServer.Run(ctx); err != nil {
				logger.Fatal("error running grpc health server", zap.Error(err))
			}
		}()
	} else {
		logger.Info("GRPC_ADDR is empty, grpc health server disabled")
	}

	var notifier *brokerproducer.KafkaProducer

	if cfg.Consumer.Enabled() {
		producerCfg := cfg.Producer
		if !producerCfg.Enabled() {
			producerCfg.Peers = cfg.Consumer.Peers
		}

		producer, err := createKafkaProducer(ctx, producerCfg, logger)
		if err != nil {
			logger.Fatal("error creating Kafka producer", zap.Error(err))
		}

		notifier = brokerproducer.NewKafkaProducer(logger, producer, producerCfg.Topic)

		consumer, err := brokerconsumer.NewKafkaConsumer(
			cfg.Consumer, logger, ucase.NewBrokerUseCase(uCase, notifier, logger),
		)
		if err != nil {
			logger.Fatal("error creating Kafka consumer", zap.Error(err))
		}

		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Fatal("error running consumer", zap.Error(err))
			}
		}()

		logger.Debug("kafka consumer run")
	}

	<-ctx.Done()

	shCtx, shCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shCancel()

	if err := httpServer.Shutdown(shCtx); err != nil {
		logger.Error("error stopping http server", zap.Error(err))
	}

	if healthServer != nil {
		if err := healthServer.Shutdown(shCtx); err != nil {
			logger.Error("error stopping grpc health server", zap.Error(err))
		}
	}

	if notifier != nil {
		if err := notifier.Close(); err != nil {
			logger.Error("error closing Kafka producer", zap.Error(err))
		}
	}

	if err := shutdownTraceProvider(shCtx); err != nil {
		logger.Error("error stopping trace provider", zap.Error(err))
	}
}
