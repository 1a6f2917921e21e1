package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"training-launcher/core/logger"
	"training-launcher/core/models"

	"github.com/go-resty/resty/v2"
)

// The datasets server refuses pages larger than this
const maxPageLength = 100

// Ref names one split of a hub dataset
type Ref struct {
	ID     string
	Config string
	Split  string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s/%s", r.ID, r.Config, r.Split)
}

// Source loads the first limit rows of a dataset as a table. A source with
// fewer rows returns what it has.
type Source interface {
	Load(ctx context.Context, ref Ref, limit int) (*models.Table, error)
}

// HubClient reads rows from the Hugging Face datasets server
type HubClient struct {
	client *resty.Client
}

var _ Source = (*HubClient)(nil)

func NewHubClient(baseURL, token string) *HubClient {
	client := resty.New().SetBaseURL(baseURL).SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &HubClient{client: client}
}

type rowsResponse struct {
	Features []struct {
		Index int    `json:"feature_idx"`
		Name  string `json:"name"`
	} `json:"features"`
	Rows []struct {
		Index int                        `json:"row_idx"`
		Row   map[string]json.RawMessage `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Load pages through /rows until limit rows are read or the split ends
func (h *HubClient) Load(ctx context.Context, ref Ref, limit int) (*models.Table, error) {
	limit = max(limit, 0)
	table := &models.Table{}
	total := -1

	// The first page is always fetched so the columns are known even when no
	// rows are wanted.
	for offset := 0; total < 0 || (offset < limit && offset < total); {
		length := max(1, min(maxPageLength, limit-offset))
		page, err := h.fetchPage(ctx, ref, offset, length)
		if err != nil {
			return nil, err
		}

		if table.Columns == nil {
			for _, f := range page.Features {
				table.Columns = append(table.Columns, f.Name)
			}
		}
		total = page.NumRowsTotal

		for _, r := range page.Rows {
			row, err := cells(table.Columns, r.Row)
			if err != nil {
				return nil, fmt.Errorf("row %d of %s: %w", r.Index, ref, err)
			}
			table.Rows = append(table.Rows, row)
		}

		if len(page.Rows) == 0 {
			break
		}
		offset += len(page.Rows)
	}
	if table.Len() > limit {
		table.Rows = table.Rows[:limit]
	}

	logger.WithFields(map[string]interface{}{
		"dataset": ref.String(),
		"rows":    table.Len(),
		"total":   total,
	}).Info("Dataset rows loaded")

	return table, nil
}

func (h *HubClient) fetchPage(ctx context.Context, ref Ref, offset, length int) (*rowsResponse, error) {
	var page rowsResponse
	var apiErr errorResponse

	res, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"dataset": ref.ID,
			"config":  ref.Config,
			"split":   ref.Split,
			"offset":  strconv.Itoa(offset),
			"length":  strconv.Itoa(length),
		}).
		SetResult(&page).
		SetError(&apiErr).
		Get("/rows")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows of %s: %w", ref, err)
	}
	if !res.IsSuccess() {
		msg := apiErr.Error
		if msg == "" {
			msg = res.String()
		}
		return nil, fmt.Errorf("datasets server returned %d for %s: %s", res.StatusCode(), ref, msg)
	}

	return &page, nil
}

// cells renders a row in column order. Strings are kept as is, null becomes
// empty and anything else keeps its JSON text.
func cells(columns []string, row map[string]json.RawMessage) ([]string, error) {
	out := make([]string, len(columns))
	for i, col := range columns {
		raw, ok := row[col]
		if !ok || bytes.Equal(raw, []byte("null")) {
			continue
		}
		if len(raw) > 0 && raw[0] == '"' {
			if err := json.Unmarshal(raw, &out[i]); err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			continue
		}
		out[i] = string(raw)
	}
	return out, nil
}
