package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"training-launcher/core/models"

	"github.com/spf13/afero"
)

// CSVSource reads a local delimited file with a header row. The ref's ID is
// the file path; config and split are ignored.
type CSVSource struct {
	fs afero.Fs
}

var _ Source = (*CSVSource)(nil)

func NewCSVSource(fs afero.Fs) *CSVSource {
	return &CSVSource{fs: fs}
}

func (c *CSVSource) Load(_ context.Context, ref Ref, limit int) (*models.Table, error) {
	file, err := c.fs.Open(ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", ref.ID, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", ref.ID, err)
	}

	table := &models.Table{Columns: header}
	for table.Len() < limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ref.ID, err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}
