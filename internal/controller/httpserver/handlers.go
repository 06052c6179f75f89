package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/nextlevelmlops/iris-ml-classification/internal/entities"
	"github.com/nextlevelmlops/iris-ml-classification/internal/ucase"
	"go.uber.org/zap"
	"net/http"
	"strconv"
)

type formField struct {
	Name  string
	Label string
	Emoji string
	Min   float64
	Max   float64
	Value float64
}

type pageData struct {
	Fields  []formField
	Species *entities.Species
	Error   string
}

type predictRequest struct {
	SepalLength *float64 `json:"sepal_length" binding:"required"`
	SepalWidth  *float64 `json:"sepal_width" binding:"required"`
	PetalLength *float64 `json:"petal_length" binding:"required"`
	PetalWidth  *float64 `json:"petal_width" binding:"required"`
}

type predictResponse struct {
	Species string `json:"species"`
	Title   string `json:"title"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

type handler struct {
	predictor SpeciesPredictor
	logger    *zap.Logger
}

func newHandler(predictor SpeciesPredictor, logger *zap.Logger) *handler {
	return &handler{predictor: predictor, logger: logger}
}

var formLayout = []struct {
	name, column, label, emoji string
}{
	{"sepal_length", entities.ColumnSepalLength, "Sepal length (cm)", "🌱"},
	{"sepal_width", entities.ColumnSepalWidth, "Sepal width (cm)", "🌿"},
	{"petal_length", entities.ColumnPetalLength, "Petal length (cm)", "🌸"},
	{"petal_width", entities.ColumnPetalWidth, "Petal width (cm)", "💮"},
}

// fields returns the sliders with values; a nil record puts every slider at
// its minimum.
func fields(record *entities.MeasurementRecord) []formField {
	var values []float64
	if record != nil {
		values = record.Row()
	}

	out := make([]formField, len(formLayout))
	for i, l := range formLayout {
		r := entities.FeatureRanges[l.column]
		f := formField{Name: l.name, Label: l.label, Emoji: l.emoji, Min: r.Min, Max: r.Max, Value: r.Min}
		if values != nil {
			f.Value = values[i]
		}
		out[i] = f
	}

	return out
}

func (h *handler) Form(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", pageData{Fields: fields(nil)})
}

func (h *handler) SubmitForm(c *gin.Context) {
	values := make([]float64, len(formLayout))
	for i, l := range formLayout {
		v, err := strconv.ParseFloat(c.PostForm(l.name), 64)
		if err != nil {
			c.HTML(http.StatusBadRequest, "index.tmpl", pageData{
				Fields: fields(nil),
				Error:  l.label + " must be a number",
			})
			return
		}
		values[i] = v
	}

	record := entities.MeasurementRecord{
		SepalLength: values[0],
		SepalWidth:  values[1],
		PetalLength: values[2],
		PetalWidth:  values[3],
	}

	if err := record.Validate(); err != nil {
		c.HTML(http.StatusBadRequest, "index.tmpl", pageData{Fields: fields(&record), Error: err.Error()})
		return
	}

	species, err := h.predictor.PredictSpecies(c.Request.Context(), record)
	if err != nil {
		failure := ucase.Classify(err)
		h.logger.Warn("prediction failed", zap.Stringer("kind", failure.Kind), zap.Error(err))
		c.HTML(statusFor(failure), "index.tmpl", pageData{Fields: fields(&record), Error: failure.Message()})
		return
	}

	c.HTML(http.StatusOK, "index.tmpl", pageData{Fields: fields(&record), Species: &species})
}

func (h *handler) PredictJSON(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error(), Kind: "validation"})
		return
	}

	record := entities.MeasurementRecord{
		SepalLength: *req.SepalLength,
		SepalWidth:  *req.SepalWidth,
		PetalLength: *req.PetalLength,
		PetalWidth:  *req.PetalWidth,
	}

	if err := record.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "validation"})
		return
	}

	species, err := h.predictor.PredictSpecies(c.Request.Context(), record)
	if err != nil {
		failure := ucase.Classify(err)
		h.logger.Warn("prediction failed", zap.Stringer("kind", failure.Kind), zap.Error(err))
		c.JSON(statusFor(failure), errorResponse{
			Error:      failure.Message(),
			Kind:       failure.Kind.String(),
			StatusCode: failure.StatusCode,
		})
		return
	}

	c.JSON(http.StatusOK, predictResponse{Species: species.Name, Title: species.Title()})
}

func (h *handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(f ucase.Failure) int {
	if f.Tier == ucase.TierUpstream {
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
