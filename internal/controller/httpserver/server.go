package httpserver

import (
	"context"
	"embed"
	"github.com/gin-gonic/gin"
	"github.com/nextlevelmlops/iris-ml-classification/internal/config"
	"github.com/nextlevelmlops/iris-ml-classification/internal/entities"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates
var templatesFS embed.FS

type SpeciesPredictor interface {
	PredictSpecies(ctx context.Context, record entities.MeasurementRecord) (entities.Species, error)
}

// NewRouter wires the form, the JSON API and the liveness probe.
func NewRouter(predictor SpeciesPredictor, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(logger), recovery(logger))

	router.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.tmpl")))

	h := newHandler(predictor, logger)

	router.GET("/", h.Form)
	router.POST("/predict", h.SubmitForm)
	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict", h.PredictJSON)
	}

	return router
}

type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(cfg config.HTTPConfig, predictor SpeciesPredictor, logger *zap.Logger) *Server {
	logger = logger.Named("http-server")

	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(predictor, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		return nil
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
