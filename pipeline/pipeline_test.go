package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/semharvest/artifact"
	"github.com/c360studio/semharvest/mapping"
	"github.com/c360studio/semharvest/record"
	"github.com/c360studio/semharvest/resolver"
	"github.com/c360studio/semharvest/sink"
	"github.com/c360studio/semharvest/source"
	"github.com/c360studio/semharvest/sparql"
	"github.com/c360studio/semharvest/store"
	"github.com/c360studio/semharvest/transforms"
	"github.com/c360studio/semharvest/vocabulary/harvest"
	"github.com/c360studio/semstreams/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNDJSON(t *testing.T, path string, recs ...map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		buf.Write(data)
		buf.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func grant(title string) map[string]any {
	return map[string]any{
		"spoNumber":    "12345-A",
		"projectTitle": title,
		"startDate":    "2020-01-01",
		"amount":       150000,
	}
}

func grantsJob(t *testing.T, input, output string) TransformJob {
	t.Helper()
	tr, err := transforms.Grants(transforms.Deps{Resolver: resolver.NewStatic()})
	require.NoError(t, err)
	return TransformJob{
		Name:   tr.Name,
		Graph:  tr.Graph,
		Mapper: tr,
		Format: FormatSPARQL,
		Input:  input,
		Output: output,
	}
}

// recorder is an in-memory RunRecorder.
type recorder struct {
	mu   sync.Mutex
	runs map[string]store.Run
}

func (r *recorder) Save(_ context.Context, run *store.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = make(map[string]store.Run)
	}
	r.runs[run.ID] = *run
	return nil
}

func TestGrantTitleChangeReplacesLabel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	runner := NewRunner(artifact.NewStore(dir), WithWorkers(2))
	mem := store.NewMemory()

	subject := harvest.GrantNamespace + "12345-A"
	// A value written by another process must survive the replace.
	require.NoError(t, mem.Apply(ctx, fmt.Sprintf(
		"INSERT DATA { GRAPH <%s> {\n<%s> <%s> \"curated\" .\n} };\n",
		harvest.GraphGrants, subject, harvest.Description)))

	for i, title := range []string{"T1", "T2"} {
		in := filepath.Join(dir, fmt.Sprintf("grants-%d.ndjson", i))
		out := filepath.Join(dir, fmt.Sprintf("grants-%d.sparql", i))
		writeNDJSON(t, in, grant(title))

		stats, err := runner.Transform(ctx, grantsJob(t, in, out))
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Written)

		stats, err = runner.Load(ctx, LoadJob{Name: "grants", Input: out, Sink: mem})
		require.NoError(t, err)
		assert.Positive(t, stats.Written)
	}

	assert.Equal(t, []string{"T2"}, mem.Values(harvest.GraphGrants, subject, harvest.PrefLabel))
	assert.Equal(t, []string{"12345-A"}, mem.Values(harvest.GraphGrants, subject, harvest.AwardNumber))
	assert.Equal(t, []string{"150000"}, mem.Values(harvest.GraphGrants, subject, harvest.TotalAmount))
	assert.Equal(t, []string{"2020-01-01"}, mem.Values(harvest.GraphGrants, subject, harvest.StartDate))
	assert.Equal(t, []string{"curated"}, mem.Values(harvest.GraphGrants, subject, harvest.Description))
}

func TestTransform_SkipsAndDropsRecords(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	runner := NewRunner(artifact.NewStore(t.TempDir()), WithLogger(logger), WithWorkers(3), WithQueueSize(1))

	input := strings.Join([]string{
		`{"spoNumber":"1","projectTitle":"One"}`,
		`{"projectTitle":"no id"}`,
		`{"spoNumber":"2","projectTitle":"Two","startDate":"not a date"}`,
		`{broken`,
		`{"spoNumber":"3","projectTitle":"Three"}`,
	}, "\n")

	var out bytes.Buffer
	stats, err := runner.TransformStream(context.Background(), grantsJob(t, "", ""), strings.NewReader(input), &out)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Records)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, logs.String(), "line=3")
	assert.Contains(t, logs.String(), "line=4")

	one := strings.Index(out.String(), harvest.GrantNamespace+"1>")
	three := strings.Index(out.String(), harvest.GrantNamespace+"3>")
	require.GreaterOrEqual(t, one, 0)
	assert.Greater(t, three, one, "output keeps input order")

	groups, err := sparql.ReadAll(&out)
	require.NoError(t, err)
	assert.NotEmpty(t, groups)
}

// slowMapper reverses completion order to check output ordering.
type slowMapper struct{}

func (slowMapper) Map(_ context.Context, src mapping.Source) (record.Record, error) {
	n, _ := src["n"].(float64)
	time.Sleep(time.Duration(10-n) * time.Millisecond)
	return record.Record{
		record.KeyID:      fmt.Sprintf("https://example.org/item/%d", int(n)),
		harvest.PrefLabel: fmt.Sprintf("item %d", int(n)),
	}, nil
}

func TestTransformStream_PreservesOrder(t *testing.T) {
	runner := NewRunner(artifact.NewStore(t.TempDir()), WithWorkers(4))

	var input strings.Builder
	for i := range 10 {
		fmt.Fprintf(&input, "{\"n\":%d}\n", i)
	}

	var out bytes.Buffer
	stats, err := runner.TransformStream(context.Background(), TransformJob{
		Name:   "items",
		Graph:  "https://example.org/graph/items",
		Mapper: slowMapper{},
	}, strings.NewReader(input.String()), &out)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Written)

	last := -1
	for i := range 10 {
		idx := strings.Index(out.String(), fmt.Sprintf("<https://example.org/item/%d>", i))
		require.Greater(t, idx, last, "item %d out of order", i)
		last = idx
	}
}

func TestTransformStream_Formats(t *testing.T) {
	runner := NewRunner(artifact.NewStore(t.TempDir()))
	input := `{"spoNumber":"9","projectTitle":"Nine"}` + "\n"

	tests := []struct {
		format Format
		check  func(t *testing.T, out string)
	}{
		{FormatSPARQL, func(t *testing.T, out string) {
			assert.Contains(t, out, "INSERT DATA")
			assert.Contains(t, out, "DELETE {")
		}},
		{FormatJSONLD, func(t *testing.T, out string) {
			var doc map[string]any
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &doc))
			assert.Contains(t, doc, "@context")
		}},
		{FormatNQuads, func(t *testing.T, out string) {
			assert.Contains(t, out, "<"+harvest.GrantNamespace+"9> <"+harvest.PrefLabel+"> \"Nine\" <"+harvest.GraphGrants+"> .")
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			job := grantsJob(t, "", "")
			job.Format = tt.format
			var out bytes.Buffer
			_, err := runner.TransformStream(context.Background(), job, strings.NewReader(input), &out)
			require.NoError(t, err)
			tt.check(t, out.String())
		})
	}

	_, err := ParseFormat("turtle")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

type failingReader struct{ after string }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after == "" {
		return 0, errors.New("disk gone")
	}
	n := copy(p, r.after)
	r.after = r.after[n:]
	return n, nil
}

func TestTransform_FailureLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(artifact.NewStore(dir))
	out := filepath.Join(dir, "grants.sparql")

	err := runner.Artifacts().Write(out, func(w io.Writer) error {
		_, err := runner.TransformStream(context.Background(), grantsJob(t, "", out),
			&failingReader{after: `{"spoNumber":"1","projectTitle":"One"}` + "\n"}, w)
		return err
	})
	require.Error(t, err)

	_, statErr := os.Stat(out)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestTransform_ExistingOutputIsDone(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "grants.ndjson")
	out := filepath.Join(dir, "grants.sparql")
	writeNDJSON(t, in, grant("T1"))
	require.NoError(t, os.WriteFile(out, []byte("# done\n"), 0644))

	stats, err := NewRunner(artifact.NewStore(dir)).Transform(context.Background(), grantsJob(t, in, out))
	require.NoError(t, err)
	assert.True(t, stats.Cached)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "# done\n", string(data))

	stats, err = NewRunner(artifact.NewStore(dir, artifact.WithForce(true))).Transform(context.Background(), grantsJob(t, in, out))
	require.NoError(t, err)
	assert.False(t, stats.Cached)
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INSERT DATA")
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	registry := metric.NewMetricsRegistry()
	runner := NewRunner(artifact.NewStore(dir), WithRunRecorder(rec), WithMetricsRegistry(registry))

	out := filepath.Join(dir, "grants.ndjson")
	stats, err := runner.Extract(context.Background(), ExtractJob{
		Name:      "grants",
		Extractor: source.Static(grant("T1"), grant("T2")),
		Output:    out,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Written)

	var titles []any
	require.NoError(t, source.NewFile(out).Extract(context.Background(), func(r source.Record) error {
		titles = append(titles, r["projectTitle"])
		return nil
	}))
	assert.Equal(t, []any{"T1", "T2"}, titles)

	require.Len(t, rec.runs, 1)
	for _, run := range rec.runs {
		assert.Equal(t, store.RunStatusComplete, run.Status)
		assert.Equal(t, store.StageExtract, run.Stage)
		assert.Equal(t, 2, run.Records)
	}
}

func TestExtract_FailureLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	runner := NewRunner(artifact.NewStore(dir), WithRunRecorder(rec))

	boom := errors.New("api down")
	out := filepath.Join(dir, "people.ndjson")
	_, err := runner.Extract(context.Background(), ExtractJob{
		Name: "people",
		Extractor: source.Func(func(ctx context.Context, emit source.EmitFunc) error {
			if err := emit(source.Record{"profileId": 1}); err != nil {
				return err
			}
			return boom
		}),
		Output: out,
	})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(out)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
	for _, run := range rec.runs {
		assert.Equal(t, store.RunStatusFailed, run.Status)
		assert.Contains(t, run.Error, "api down")
	}
}

func TestLoad_FlushErrorFailsRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "grants.sparql")
	require.NoError(t, os.WriteFile(in, []byte(
		"INSERT DATA { GRAPH <https://g> {\n<https://s> <https://p> \"a\" .\n} };\n"+
			"INSERT DATA { GRAPH <https://g> {\n<https://s> <https://p> \"b\" .\n} };\n"), 0644))

	boom := &sink.ResponseError{Status: 400, Body: "parse error"}
	failing := sink.Func(func(context.Context, []string) error { return boom })

	_, err := NewRunner(artifact.NewStore(dir)).Load(context.Background(), LoadJob{
		Name:  "grants",
		Input: in,
		Sink:  failing,
		Batch: sink.BatcherConfig{BatchSize: 1, Workers: 1, QueueSize: 1},
	})
	require.Error(t, err)
	var respErr *sink.ResponseError
	assert.ErrorAs(t, err, &respErr)
}

func TestLoad_UnterminatedInput(t *testing.T) {
	mem := store.NewMemory()
	text := "INSERT DATA { GRAPH <https://g> {\n<https://s> <https://p> \"a\" .\n} };\nINSERT DATA { GRAPH <https://g> {\n"

	stats, err := NewRunner(artifact.NewStore(t.TempDir())).LoadStream(context.Background(),
		LoadJob{Name: "x", Sink: mem}, strings.NewReader(text))
	require.ErrorIs(t, err, sparql.ErrUnterminated)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 1, mem.Len(), "groups before the bad statement are still flushed")
}
