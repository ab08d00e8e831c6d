package model

import (
	"context"
	"sync"
	"time"

	"github.com/Brownie44l1/leaf-api/internal/apperr"
	"go.uber.org/zap"
)

// Loader produces the classifier and label map. It runs at most once per
// Provider.
type Loader func() (Classifier, LabelMap, error)

// Provider memoizes a Loader. Concurrent first callers all wait for the one
// load in flight; a failed load is remembered and never retried.
type Provider struct {
	once       sync.Once
	load       Loader
	classifier Classifier
	labels     LabelMap
	err        error
}

func NewProvider(load Loader) *Provider {
	return &Provider{load: load}
}

func (p *Provider) Get() (Classifier, LabelMap, error) {
	p.once.Do(func() {
		p.classifier, p.labels, p.err = p.load()
	})
	return p.classifier, p.labels, p.err
}

// Close releases the classifier if it was loaded.
func (p *Provider) Close() {
	p.once.Do(func() {
		p.err = apperr.Fatal("provider closed", nil)
	})
	if p.classifier != nil {
		p.classifier.Close()
	}
}

// Ensurer makes sure a file exists locally, fetching it from url if needed.
type Ensurer interface {
	Ensure(ctx context.Context, path, url string) error
}

type LoaderConfig struct {
	ModelPath  string
	ModelURL   string
	LabelsPath string
	ONNX       ONNXOptions
}

// classCounter is implemented by classifiers that know their output width.
type classCounter interface {
	Classes() int
}

// NewLoader wires the ensure-then-load sequence: fetch the model artifact if
// absent, parse the label map, open the ONNX session.
func NewLoader(cfg LoaderConfig, ensurer Ensurer, logger *zap.Logger) Loader {
	return newLoader(cfg, ensurer, logger, func(path string, opts ONNXOptions) (Classifier, error) {
		return NewONNXClassifier(path, opts)
	})
}

type openFunc func(path string, opts ONNXOptions) (Classifier, error)

func newLoader(cfg LoaderConfig, ensurer Ensurer, logger *zap.Logger, open openFunc) Loader {
	logger = logger.Named("provider")

	return func() (Classifier, LabelMap, error) {
		start := time.Now()

		if err := ensurer.Ensure(context.Background(), cfg.ModelPath, cfg.ModelURL); err != nil {
			return nil, nil, apperr.Fatal("model artifact unavailable", err)
		}

		labels, err := LoadLabelMap(cfg.LabelsPath)
		if err != nil {
			return nil, nil, apperr.Fatal("label map unavailable", err)
		}

		classifier, err := open(cfg.ModelPath, cfg.ONNX)
		if err != nil {
			return nil, nil, apperr.Fatal("failed to load model", err)
		}

		fields := []zap.Field{
			zap.String("model", cfg.ModelPath),
			zap.Int("labels", len(labels)),
			zap.Duration("took", time.Since(start)),
		}
		if cc, ok := classifier.(classCounter); ok {
			fields = append(fields, zap.Int("classes", cc.Classes()))
			if missing := labels.Missing(cc.Classes()); len(missing) > 0 {
				logger.Warn("label map does not cover every class", zap.Ints("missing", missing))
			}
		}
		logger.Info("model loaded", fields...)

		return classifier, labels, nil
	}
}
