package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Brownie44l1/leaf-api/internal/apperr"
	"github.com/Brownie44l1/leaf-api/internal/model"
	"github.com/Brownie44l1/leaf-api/internal/preprocess"
	"github.com/Brownie44l1/leaf-api/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newClassifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <image>...",
		Short: "Classify one or more leaf images and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.classify(cmd.OutOrStdout(), args)
		},
	}
}

// classify runs every file through the pipeline. Unreadable images are
// reported and skipped; a model/label mismatch stops the run.
func (a *app) classify(out io.Writer, paths []string) error {
	provider := a.provider()
	defer provider.Close()

	classifier, labels, err := provider.Get()
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range paths {
		rep, err := classifyFile(classifier, labels, path, a.cfg.Report.Threshold)
		if err != nil {
			fmt.Fprintln(out, report.RenderTerminalError(path, err))
			if errors.Is(err, model.ErrUnknownClass) {
				return err
			}
			a.logger.Debug("classify failed", zap.String("file", path), zap.Error(err))
			failed++
			continue
		}
		fmt.Fprintln(out, report.RenderTerminal(path, rep))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images could not be classified", failed, len(paths))
	}
	return nil
}

func classifyFile(c model.Classifier, labels model.LabelMap, path string, threshold float64) (report.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return report.Report{}, apperr.Input("open image", err)
	}
	defer f.Close()

	_, tensor, err := preprocess.FromReader(f)
	if err != nil {
		return report.Report{}, err
	}

	pred, err := model.Invoke(c, labels, tensor)
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(pred, threshold), nil
}
