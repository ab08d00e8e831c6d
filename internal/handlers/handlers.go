package handlers

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"image"
	"net/http"

	"github.com/Brownie44l1/leaf-api/internal/apperr"
	"github.com/Brownie44l1/leaf-api/internal/model"
	"github.com/Brownie44l1/leaf-api/internal/preprocess"
	"github.com/Brownie44l1/leaf-api/internal/report"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var page = template.Must(template.New("index.html").
	Funcs(template.FuncMap{"displayLabel": report.DisplayLabel}).
	ParseFS(templateFS, "templates/index.html"))

// ModelSource hands out the memoized classifier and label map.
type ModelSource interface {
	Get() (model.Classifier, model.LabelMap, error)
}

type Options struct {
	// Threshold is used as given; 0 puts every prediction in the high tier.
	Threshold      float64
	MaxUploadBytes int64
}

type Handler struct {
	models ModelSource
	opts   Options
	logger *zap.Logger
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type pageData struct {
	Fatal    string
	Error    string
	Result   *report.Report
	Preview  template.URL
	Filename string
}

func NewHandler(models ModelSource, opts Options, logger *zap.Logger) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{
		models: models,
		opts:   opts,
		logger: logger.Named("handlers"),
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Router registers the page, API and health routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/predict", h.PredictPage).Methods(http.MethodPost)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(enableCORS)
	api.HandleFunc("/predict", h.PredictAPI).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet, http.MethodOptions)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, _, err := h.models.Get(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// Index shows the uploader, or only the load error when the model is
// unavailable.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if _, _, err := h.models.Get(); err != nil {
		h.render(w, http.StatusServiceUnavailable, pageData{Fatal: err.Error()})
		return
	}
	h.render(w, http.StatusOK, pageData{})
}

func (h *Handler) PredictPage(w http.ResponseWriter, r *http.Request) {
	classifier, labels, err := h.models.Get()
	if err != nil {
		h.render(w, http.StatusServiceUnavailable, pageData{Fatal: err.Error()})
		return
	}

	img, filename, err := h.readUpload(w, r)
	if err != nil {
		h.render(w, http.StatusBadRequest, pageData{Error: err.Error()})
		return
	}

	rep, err := h.classify(classifier, labels, img)
	if err != nil {
		status, _ := h.classifyError(err)
		h.render(w, status, pageData{Error: err.Error()})
		return
	}

	data := pageData{Result: &rep, Filename: filename}
	if uri, err := report.Preview(img); err != nil {
		h.logger.Warn("preview failed", zap.Error(err))
	} else {
		data.Preview = template.URL(uri)
	}
	h.render(w, http.StatusOK, data)
}

func (h *Handler) PredictAPI(w http.ResponseWriter, r *http.Request) {
	classifier, labels, err := h.models.Get()
	if err != nil {
		sendErrorResponse(w, "model_unavailable", err.Error(), http.StatusServiceUnavailable)
		return
	}

	img, _, err := h.readUpload(w, r)
	if err != nil {
		code := "invalid_request"
		if apperr.IsInput(err) {
			code = "invalid_image"
		}
		sendErrorResponse(w, code, err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := h.classify(classifier, labels, img)
	if err != nil {
		status, code := h.classifyError(err)
		sendErrorResponse(w, code, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

// readUpload pulls the "image" form file and decodes it.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (image.Image, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		return nil, "", errors.New("failed to parse upload form")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", errors.New("no image file provided, use 'image' as the form field name")
	}
	defer file.Close()

	img, format, err := preprocess.Decode(file)
	if err != nil {
		h.logger.Info("rejected upload", zap.String("file", header.Filename), zap.Error(err))
		return nil, "", err
	}

	h.logger.Debug("received image",
		zap.String("file", header.Filename),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)
	return img, header.Filename, nil
}

func (h *Handler) classify(classifier model.Classifier, labels model.LabelMap, img image.Image) (report.Report, error) {
	tensor := preprocess.Tensorize(img)

	pred, err := model.Invoke(classifier, labels, tensor)
	if err != nil {
		return report.Report{}, err
	}

	h.logger.Info("prediction",
		zap.String("label", pred.Label),
		zap.Int("class_index", pred.ClassIndex),
		zap.Float32("confidence", pred.Confidence),
	)
	return report.Build(pred, h.opts.Threshold), nil
}

func (h *Handler) classifyError(err error) (int, string) {
	if errors.Is(err, model.ErrUnknownClass) {
		h.logger.Error("model and label map are inconsistent", zap.Error(err))
		return http.StatusInternalServerError, "consistency_error"
	}
	h.logger.Error("prediction failed", zap.Error(err))
	return http.StatusInternalServerError, "prediction_failed"
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Execute(w, data); err != nil {
		h.logger.Error("render page", zap.Error(err))
	}
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	})
}
