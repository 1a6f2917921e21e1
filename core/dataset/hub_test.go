package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDatasetsServer serves total rows of an alpaca-shaped dataset
func fakeDatasetsServer(t *testing.T, total int, token string) (*httptest.Server, *int32) {
	t.Helper()
	var requests int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "application/json")

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"The dataset does not exist, or is not accessible without authentication"}`))
			return
		}
		if r.URL.Path != "/rows" || r.URL.Query().Get("dataset") != "tatsu-lab/alpaca" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not found."}`))
			return
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		length, _ := strconv.Atoi(r.URL.Query().Get("length"))
		if length > maxPageLength {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"Parameter 'length' must not be greater than 100"}`))
			return
		}

		var rows []map[string]interface{}
		for i := offset; i < offset+length && i < total; i++ {
			rows = append(rows, map[string]interface{}{
				"row_idx": i,
				"row": map[string]interface{}{
					"instruction": fmt.Sprintf("instruction %d", i),
					"input":       nil,
					"output":      fmt.Sprintf("output, \"quoted\" %d", i),
					"tokens":      i * 2,
				},
				"truncated_cells": []string{},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"features": []map[string]interface{}{
				{"feature_idx": 0, "name": "instruction"},
				{"feature_idx": 1, "name": "input"},
				{"feature_idx": 2, "name": "output"},
				{"feature_idx": 3, "name": "tokens"},
			},
			"rows":              rows,
			"num_rows_total":    total,
			"num_rows_per_page": 100,
			"partial":           false,
		})
	}))
	t.Cleanup(srv.Close)

	return srv, &requests
}

var alpaca = Ref{ID: "tatsu-lab/alpaca", Config: "default", Split: "train"}

func TestHubClient_LoadPages(t *testing.T) {
	srv, requests := fakeDatasetsServer(t, 52002, "")
	client := NewHubClient(srv.URL, "")

	table, err := client.Load(context.Background(), alpaca, 250)
	require.NoError(t, err)
	assert.Equal(t, []string{"instruction", "input", "output", "tokens"}, table.Columns)
	require.Equal(t, 250, table.Len())
	assert.Equal(t, []string{"instruction 0", "", `output, "quoted" 0`, "0"}, table.Rows[0])
	assert.Equal(t, "instruction 249", table.Rows[249][0])
	assert.Equal(t, "498", table.Rows[249][3])
	assert.Equal(t, int32(3), atomic.LoadInt32(requests))
}

func TestHubClient_StopsAtEndOfSplit(t *testing.T) {
	srv, requests := fakeDatasetsServer(t, 150, "")
	client := NewHubClient(srv.URL, "")

	table, err := client.Load(context.Background(), alpaca, 7000)
	require.NoError(t, err)
	assert.Equal(t, 150, table.Len())
	assert.Equal(t, int32(2), atomic.LoadInt32(requests))
}

func TestHubClient_ZeroLimitStillReadsColumns(t *testing.T) {
	srv, _ := fakeDatasetsServer(t, 10, "")

	table, err := NewHubClient(srv.URL, "").Load(context.Background(), alpaca, 0)
	require.NoError(t, err)
	assert.Len(t, table.Columns, 4)
	assert.Zero(t, table.Len())
}

func TestHubClient_Token(t *testing.T) {
	srv, _ := fakeDatasetsServer(t, 10, "hf_secret")

	_, err := NewHubClient(srv.URL, "").Load(context.Background(), alpaca, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "not accessible without authentication")

	table, err := NewHubClient(srv.URL, "hf_secret").Load(context.Background(), alpaca, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, table.Len())
}

func TestHubClient_UnknownDataset(t *testing.T) {
	srv, _ := fakeDatasetsServer(t, 10, "")

	_, err := NewHubClient(srv.URL, "").Load(context.Background(), Ref{ID: "nobody/nothing", Config: "default", Split: "train"}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
