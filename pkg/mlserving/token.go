package mlserving

import (
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
	"os"
	"strings"
	"time"
)

const (
	DefaultGrantType = "client_credentials"
	DefaultScope     = "all-apis"

	EnvClientID     = "DATABRICKS_CLIENT_ID"
	EnvClientSecret = "DATABRICKS_CLIENT_SECRET"

	tokenPath = "/oidc/v1/token"
)

type Credentials struct {
	ClientID     string
	ClientSecret string
}

// AccessToken is an opaque bearer token, fetched fresh for every request.
type AccessToken struct {
	Value      string
	ObtainedAt time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type TokenProvider struct {
	host        string
	credentials Credentials
	grantType   string
	scope       string

	httpClient *http.Client
	tracer     trace.Tracer
	logger     *zap.Logger
	now        func() time.Time
}

func NewTokenProvider(cfg config.DatabricksConfig, httpClient *http.Client, logger *zap.Logger) *TokenProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	grantType := cfg.GrantType
	if grantType == "" {
		grantType = DefaultGrantType
	}

	scope := cfg.Scope
	if scope == "" {
		scope = DefaultScope
	}

	return &TokenProvider{
		host:        cfg.Host,
		credentials: Credentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret},
		grantType:   grantType,
		scope:       scope,
		httpClient:  httpClient,
		tracer:      otel.Tracer("mlserving-token"),
		logger:      logger.Named("token-provider"),
		now:         time.Now,
	}
}

// resolveCredentials falls back to the process environment for any field
// left empty in the configuration.
func (p *TokenProvider) resolveCredentials() (Credentials, error) {
	creds := p.credentials
	if creds.ClientID == "" {
		creds.ClientID = os.Getenv(EnvClientID)
	}
	if creds.ClientSecret == "" {
		creds.ClientSecret = os.Getenv(EnvClientSecret)
	}

	if creds.ClientID == "" {
		return Credentials{}, ConfigurationError("TokenProvider.FetchToken", EnvClientID+" is not set")
	}
	if creds.ClientSecret == "" {
		return Credentials{}, ConfigurationError("TokenProvider.FetchToken", EnvClientSecret+" is not set")
	}

	return creds, nil
}

func (p *TokenProvider) endpoint() (string, error) {
	if p.host == "" {
		return "", ConfigurationError("TokenProvider.FetchToken", "host is not set")
	}

	u, err := url.Parse(p.host)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", ConfigurationError("TokenProvider.FetchToken", "host "+p.host+" is not an absolute URL")
	}

	return strings.TrimRight(p.host, "/") + tokenPath, nil
}

// FetchToken exchanges the client credentials for a bearer token. Every call
// issues exactly one request; nothing is cached.
func (p *TokenProvider) FetchToken(ctx context.Context) (AccessToken, error) {
	const op = "TokenProvider.FetchToken"

	ctx, span := p.tracer.Start(ctx, "TokenProvider.FetchToken")
	defer span.End()

	endpoint, err := p.endpoint()
	if err != nil {
		span.RecordError(err)
		return AccessToken{}, err
	}

	creds, err := p.resolveCredentials()
	if err != nil {
		span.RecordError(err)
		return AccessToken{}, err
	}

	form := url.Values{}
	form.Set("grant_type", p.grantType)
	form.Set("scope", p.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, newError(KindConfiguration, op, errors.Wrap(err, "http.NewRequest"))
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		p.logger.Error("token endpoint unreachable", zap.String("endpoint", endpoint), zap.Error(err))
		return AccessToken{}, newError(KindTransport, op, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return AccessToken{}, newError(KindTransport, op, errors.Wrap(err, "read token response"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := newStatusError(KindAuthentication, op, resp.StatusCode, body)
		span.RecordError(e)
		p.logger.Warn("token endpoint rejected credentials", zap.Int("status", resp.StatusCode))
		return AccessToken{}, e
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return AccessToken{}, newError(KindProtocol, op, errors.Wrap(err, "decode token response"))
	}

	if tr.AccessToken == "" {
		return AccessToken{}, ProtocolError(op, "access_token is missing from token response")
	}

	p.logger.Debug("token obtained")

	return AccessToken{Value: tr.AccessToken, ObtainedAt: p.now()}, nil
}
