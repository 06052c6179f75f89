package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"os"
	"strings"
	"time"
)

// DatabricksConfig holds the workspace host and the service principal used
// for the OAuth client-credentials exchange.
type DatabricksConfig struct {
	Host         string
	ClientID     string `split_words:"true"`
	ClientSecret string `split_words:"true"`
	GrantType    string `split_words:"true" default:"client_credentials"`
	Scope        string `default:"all-apis"`
}

type EndpointConfig struct {
	Name       string        `default:"iris-classification-model-serving"`
	PayloadKey string        `split_words:"true" default:"dataframe_split"`
	Timeout    time.Duration `default:"10s"`
}

type HTTPConfig struct {
	Addr string `default:":8501"`
}

type GRPCConfig struct {
	Addr string `default:":8502"`
}

type LogConfig struct {
	Level  string `default:"info"`
	Format string `default:"console"`
}

type OTELConfig struct {
	Host string
	Port string `default:"4317"`
}

type KafkaConsumerConfig struct {
	Peers     string
	Topic     string `default:"IrisMeasurementInput"`
	GroupName string `split_words:"true" default:"iris-prediction-workers"`
}

type KafkaProducerConfig struct {
	Peers string
	Topic string `default:"IrisPredictionOutput"`
}

type Config struct {
	Databricks DatabricksConfig
	Endpoint   EndpointConfig
	HTTP       HTTPConfig
	GRPC       GRPCConfig
	Log        LogConfig
	OTEL       OTELConfig
	Producer   KafkaProducerConfig
	Consumer   KafkaConsumerConfig
}

// New loads the given .env files (missing ones are skipped) and then decodes
// the process environment into a Config.
func New(envFiles ...string) (*Config, error) {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, errors.Wrap(err, "error while load from .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "error while transfer env to config")
	}

	cfg.Databricks.Host = NormalizeHost(cfg.Databricks.Host)

	return &cfg, nil
}

// NormalizeHost prefixes a bare host with https:// and drops trailing
// slashes. An explicit http:// or https:// scheme is kept, lowercased.
func NormalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}

	for _, scheme := range []string{"https://", "http://"} {
		if len(host) >= len(scheme) && strings.EqualFold(host[:len(scheme)], scheme) {
			return scheme + host[len(scheme):]
		}
	}

	return "https://" + host
}

func (c Config) ServingEndpoint() string {
	return fmt.Sprintf("%s/serving-endpoints/%s/invocations", c.Databricks.Host, c.Endpoint.Name)
}

func (c KafkaConsumerConfig) Enabled() bool {
	return strings.TrimSpace(c.Peers) != ""
}

func (c KafkaProducerConfig) Enabled() bool {
	return strings.TrimSpace(c.Peers) != ""
}

func (c GRPCConfig) Enabled() bool {
	return c.Addr != ""
}

func (c OTELConfig) Enabled() bool {
	return c.Host != ""
}
