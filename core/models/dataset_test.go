package models

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTable(n int) *Table {
	t := &Table{Columns: []string{"instruction", "output"}}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i), "out-" + strconv.Itoa(i)})
	}
	return t
}

func TestTable_SliceFixedBounds(t *testing.T) {
	table := makeTable(7000)

	train := table.Slice(RowRange{Start: 0, End: 5000})
	validation := table.Slice(RowRange{Start: 5000, End: 7000})

	require.Equal(t, 5000, train.Len())
	require.Equal(t, 2000, validation.Len())
	assert.Equal(t, "0", train.Rows[0][0])
	assert.Equal(t, "4999", train.Rows[4999][0])
	assert.Equal(t, "5000", validation.Rows[0][0])
	assert.Equal(t, "6999", validation.Rows[1999][0])
	assert.Equal(t, table.Columns, validation.Columns)
}

func TestTable_SliceTruncatesShortSource(t *testing.T) {
	table := makeTable(6000)

	assert.Equal(t, 5000, table.Slice(RowRange{Start: 0, End: 5000}).Len())
	assert.Equal(t, 1000, table.Slice(RowRange{Start: 5000, End: 7000}).Len())
	assert.Equal(t, 0, table.Slice(RowRange{Start: 6500, End: 7000}).Len())
}

func TestTable_SlicesAreDisjointSubsets(t *testing.T) {
	table := makeTable(300)
	pairs := [][2]RowRange{
		{{0, 100}, {100, 200}},
		{{0, 250}, {250, 400}},
		{{50, 60}, {0, 50}},
		{{0, 0}, {0, 10}},
		{{290, 500}, {0, 290}},
	}

	for _, pair := range pairs {
		require.False(t, pair[0].Overlaps(pair[1]), "%s %s", pair[0], pair[1])

		seen := map[string]bool{}
		for _, r := range pair {
			for _, row := range table.Slice(r).Rows {
				idx, err := strconv.Atoi(row[0])
				require.NoError(t, err)
				assert.True(t, idx >= 0 && idx < table.Len(), "row %d not in source", idx)
				assert.False(t, seen[row[0]], "row %s in both slices of %s %s", row[0], pair[0], pair[1])
				seen[row[0]] = true
			}
		}
	}
}

func TestRowRange_Overlaps(t *testing.T) {
	assert.True(t, RowRange{0, 10}.Overlaps(RowRange{9, 20}))
	assert.False(t, RowRange{0, 10}.Overlaps(RowRange{10, 20}))
	assert.False(t, RowRange{5, 5}.Overlaps(RowRange{0, 10}))
	assert.Equal(t, "[0,5000)", RowRange{0, 5000}.String())
}
