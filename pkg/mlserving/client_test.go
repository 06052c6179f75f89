package mlserving

import (
	"context"
	"github.com/nextlevelmlops/iris-ml-classification/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type row struct {
	columns []string
	values  []float64
}

func (r row) Columns() []string { return r.columns }
func (r row) Row() []float64    { return r.values }

var irisRow = row{
	columns: []string{"sepal length (cm)", "sepal width (cm)", "petal length (cm)", "petal width (cm)"},
	values:  []float64{6.1, 2.8, 4.7, 1.2},
}

func newTestInferenceClient(t *testing.T, host, payloadKey string) *InferenceClient {
	t.Helper()

	cfg := &config.Config{
		Databricks: config.DatabricksConfig{Host: host},
		Endpoint:   config.EndpointConfig{Name: "iris", PayloadKey: payloadKey},
	}

	return NewInferenceClient(cfg, NewHTTPClient(5*time.Second), zaptest.NewLogger(t))
}

func TestInferenceClient_Predict(t *testing.T) {
	t.Run("successful prediction", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/serving-endpoints/iris/invocations", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer fake_token", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"dataframe_split": {
				"columns": ["sepal length (cm)", "sepal width (cm)", "petal length (cm)", "petal width (cm)"],
				"data": [[6.1, 2.8, 4.7, 1.2]]
			}}`, string(body))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"predictions": ["setosa"]}`))
		}))
		defer server.Close()

		client := newTestInferenceClient(t, server.URL, "")
		resp, err := client.Predict(context.Background(), AccessToken{Value: "fake_token"}, irisRow)

		require.NoError(t, err)
		assert.Equal(t, []string{"setosa"}, resp.Predictions)
	})

	t.Run("custom payload key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			values, err := DecodeSplit("inputs_split", body)
			require.NoError(t, err)
			assert.Equal(t, 1.2, values["petal width (cm)"])

			_, _ = w.Write([]byte(`{"predictions": ["virginica"]}`))
		}))
		defer server.Close()

		client := newTestInferenceClient(t, server.URL, "inputs_split")
		resp, err := client.Predict(context.Background(), AccessToken{Value: "t"}, irisRow)

		require.NoError(t, err)
		assert.Equal(t, []string{"virginica"}, resp.Predictions)
	})

	t.Run("bad request preserves body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_code": "BAD_REQUEST", "message": "missing column"}`))
		}))
		defer server.Close()

		_, err := newTestInferenceClient(t, server.URL, "").
			Predict(context.Background(), AccessToken{Value: "t"}, irisRow)

		require.Error(t, err)
		e, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindInference, e.Kind)
		assert.Equal(t, http.StatusBadRequest, e.StatusCode)
		assert.Contains(t, e.Body, "missing column")
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("missing predictions field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"outputs": ["setosa"]}`))
		}))
		defer server.Close()

		_, err := newTestInferenceClient(t, server.URL, "").
			Predict(context.Background(), AccessToken{Value: "t"}, irisRow)

		assert.Equal(t, KindProtocol, KindOf(err))
	})

	t.Run("empty predictions are passed through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"predictions": []}`))
		}))
		defer server.Close()

		resp, err := newTestInferenceClient(t, server.URL, "").
			Predict(context.Background(), AccessToken{Value: "t"}, irisRow)

		require.NoError(t, err)
		assert.Empty(t, resp.Predictions)
	})

	t.Run("malformed json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"predictions": [`))
		}))
		defer server.Close()

		_, err := newTestInferenceClient(t, server.URL, "").
			Predict(context.Background(), AccessToken{Value: "t"}, irisRow)

		assert.Equal(t, KindProtocol, KindOf(err))
	})

	t.Run("connection error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		host := server.URL
		server.Close()

		_, err := newTestInferenceClient(t, host, "").
			Predict(context.Background(), AccessToken{Value: "t"}, irisRow)

		assert.Equal(t, KindTransport, KindOf(err))
	})

	t.Run("timeout is a transport error", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		cfg := &config.Config{
			Databricks: config.DatabricksConfig{Host: server.URL},
			Endpoint:   config.EndpointConfig{Name: "iris"},
		}
		client := NewInferenceClient(cfg, NewHTTPClient(50*time.Millisecond), zaptest.NewLogger(t))

		_, err := client.Predict(context.Background(), AccessToken{Value: "t"}, irisRow)

		assert.Equal(t, KindTransport, KindOf(err))
	})

	t.Run("unconfigured host", func(t *testing.T) {
		_, err := newTestInferenceClient(t, "", "").
			Predict(context.Background(), AccessToken{Value: "t"}, irisRow)

		assert.Equal(t, KindConfiguration, KindOf(err))
	})

	t.Run("mismatched record is rejected before sending", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))
		defer server.Close()

		_, err := newTestInferenceClient(t, server.URL, "").
			Predict(context.Background(), AccessToken{Value: "t"}, row{columns: []string{"a", "b"}, values: []float64{1}})

		assert.Equal(t, KindProtocol, KindOf(err))
		assert.False(t, called)
	})
}
