package integration_test

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/bitjit"
	"github.com/hupe1980/bitjit/index"
	"github.com/hupe1980/bitjit/queryparser"
	"github.com/hupe1980/bitjit/resource"
	"github.com/hupe1980/bitjit/streamconfig"
	"github.com/hupe1980/bitjit/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const streamsYAML = `
streams:
  body: 0
  title: 1
  author: 2
default_stream: body
case_fold: true
`

const docsYAML = `
- id: 10
  fields: {title: "New York Times", body: "news from new york city", author: "Staff"}
  facts: [english, news]
- id: 20
  fields: {title: "York Press", body: "york minster and the city walls", author: "Staff"}
  facts: [english]
- id: 30
  fields: {title: "Neue Zürcher", body: "nachrichten aus der city", author: "Redaktion"}
  facts: [german, news]
- id: 40
  fields: {title: "Old York Times", body: "archived edition from new york"}
  facts: [english, news]
  deleted: true
`

func loadFixture(t *testing.T) (*streamconfig.Config, *index.MemoryIndex) {
	t.Helper()
	cfg, err := streamconfig.LoadYAML(strings.NewReader(streamsYAML))
	require.NoError(t, err)
	idx, err := index.LoadYAML(strings.NewReader(docsYAML), cfg, index.WithMaxGramSize(2))
	require.NoError(t, err)
	return cfg, idx
}

func TestE2E_YAMLIndex(t *testing.T) {
	cfg, idx := loadFixture(t)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	eng, err := bitjit.New(idx, cfg, 16<<10, 16<<10, bitjit.WithResourceController(rc))
	require.NoError(t, err)
	defer eng.Close()
	interp := bitjit.NewInterpreter(idx, cfg)

	tests := []struct {
		query string
		want  []index.DocID
	}{
		{"city", []index.DocID{10, 20, 30}},
		{"York", []index.DocID{10, 20}},
		{`"new york city"`, []index.DocID{10}},
		{`"new york"`, []index.DocID{10}},
		{`title:"york times"`, []index.DocID{10}},
		{"author:staff -fact:news", []index.DocID{20}},
		{"fact:news", []index.DocID{10, 30}},
		{"fact:english city -(york minster)", []index.DocID{10}},
		{"-city", []index.DocID{}},
		{"archived | edition", []index.DocID{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			for _, qe := range []bitjit.QueryEngine{eng, interp} {
				tree, err := qe.Parse(tt.query)
				require.NoError(t, err)
				results := bitjit.NewResultsBuffer(8)
				require.NoError(t, qe.Run(tree, nil, results))
				assert.Equal(t, tt.want, results.Results())
			}
			eng.Reset()
		})
	}
}

func TestE2E_RandomQueriesAllEngines(t *testing.T) {
	rng := testutil.NewRNG(2024)
	vocab := testutil.Vocabulary(40)
	idx := rng.Index(2000, vocab, 16)
	cfg := streamconfig.Default()

	eng, err := bitjit.New(idx, cfg, 1<<20, 1<<20)
	require.NoError(t, err)
	defer eng.Close()
	interp := bitjit.NewInterpreter(idx, cfg)

	queries := make([]string, 100)
	for i := range queries {
		queries[i] = queryparser.Format(rng.Tree(vocab, 1+rng.Intn(48)), cfg)
	}

	pool, err := bitjit.NewPool(idx, cfg, 3, 1<<20, 1<<20)
	require.NoError(t, err)
	defer pool.Close()
	batch, err := pool.RunBatch(context.Background(), queries, int(idx.RowCount()))
	require.NoError(t, err)

	for i, q := range queries {
		want := bitjit.NewResultsBuffer(int(idx.RowCount()))
		tree, err := interp.Parse(q)
		require.NoError(t, err, q)
		require.NoError(t, interp.Run(tree, nil, want))

		got := bitjit.NewResultsBuffer(int(idx.RowCount()))
		tree, err = eng.Parse(q)
		require.NoError(t, err, q)
		require.NoError(t, eng.Run(tree, nil, got))
		eng.Reset()

		require.Equal(t, want.Results(), got.Results(), q)
		require.NoError(t, batch[i].Err, q)
		require.Equal(t, want.Results(), batch[i].Results, q)
		require.Zero(t, eng.LiveRegisters())
	}
}
