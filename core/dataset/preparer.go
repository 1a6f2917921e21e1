package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"

	"training-launcher/core/logger"
	"training-launcher/core/models"

	"github.com/spf13/afero"
)

// Local file names of the two slices
const (
	TrainFile      = "train.csv"
	ValidationFile = "validation.csv"
)

// Request describes one preparation: which dataset, which rows, and where to
// write them
type Request struct {
	Dataset    Ref
	Train      models.RowRange
	Validation models.RowRange
	OutputDir  string
}

// Preparer loads a dataset and writes its train and validation slices as CSV
type Preparer struct {
	source Source
	fs     afero.Fs
}

func NewPreparer(source Source, fs afero.Fs) *Preparer {
	return &Preparer{source: source, fs: fs}
}

// Prepare writes train.csv and validation.csv under req.OutputDir. Only rows
// up to the larger upper bound are loaded. A dataset shorter than a bound
// yields a shorter slice; this is logged but is not an error.
func (p *Preparer) Prepare(ctx context.Context, req Request) (*models.DatasetFiles, error) {
	limit := max(req.Train.End, req.Validation.End)

	table, err := p.source.Load(ctx, req.Dataset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", req.Dataset, err)
	}
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("dataset %s has no columns", req.Dataset)
	}

	train := table.Slice(req.Train)
	validation := table.Slice(req.Validation)

	for _, s := range []struct {
		name  string
		want  models.RowRange
		table *models.Table
	}{{"train", req.Train, train}, {"validation", req.Validation, validation}} {
		if s.table.Len() < s.want.Len() {
			logger.WithFields(map[string]interface{}{
				"dataset":   req.Dataset.String(),
				"slice":     s.name,
				"requested": s.want.String(),
				"rows":      s.table.Len(),
				"available": table.Len(),
			}).Warn("Dataset shorter than requested range, slice truncated")
		}
	}

	if err := p.fs.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", req.OutputDir, err)
	}

	files := &models.DatasetFiles{
		TrainPath:      filepath.Join(req.OutputDir, TrainFile),
		ValidationPath: filepath.Join(req.OutputDir, ValidationFile),
		TrainRows:      train.Len(),
		ValidationRows: validation.Len(),
	}
	if err := p.writeCSV(files.TrainPath, train); err != nil {
		return nil, err
	}
	if err := p.writeCSV(files.ValidationPath, validation); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"train":           files.TrainPath,
		"train_rows":      files.TrainRows,
		"validation":      files.ValidationPath,
		"validation_rows": files.ValidationRows,
	}).Info("Dataset slices written")

	return files, nil
}

func (p *Preparer) writeCSV(path string, table *models.Table) error {
	file, err := p.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("failed to write rows to %s: %w", path, err)
	}
	return file.Close()
}
