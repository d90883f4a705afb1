package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semharvest/registry"
)

const grantLine = `{"spoNumber":"12345-A","projectTitle":"Soil Microbes","startDate":"2020-01-01","amount":150000,"sponsor":{"name":"National Science Foundation"}}`

// setupRun writes a config pointing output_dir at a temp dir and returns
// both paths.
func setupRun(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "semharvest.yaml")
	cfg := "pipeline:\n  output_dir: " + dir + "\n  workers: 2\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return dir, cfgPath
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(append(args, "--log-level", "error"))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "semharvest version "+Version+" (build: "+BuildTime+")\n", out)
}

func TestTransformThenLoad(t *testing.T) {
	dir, cfgPath := setupRun(t)
	input := filepath.Join(dir, "grants.ndjson")
	require.NoError(t, os.WriteFile(input, []byte(grantLine+"\n"), 0644))

	_, stderr, err := execute(t, "", "-c", cfgPath, "transform", "call", "grants", "-i", input)
	require.NoError(t, err)
	assert.Contains(t, stderr, "1 records, 1 written")

	updates := filepath.Join(dir, "grants.sparql")
	data, err := os.ReadFile(updates)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DELETE {")
	assert.Contains(t, string(data), "INSERT DATA {")
	assert.Contains(t, string(data), `"Soil Microbes"`)

	// A second run finds the checkpoint and skips.
	_, stderr, err = execute(t, "", "-c", cfgPath, "transform", "call", "grants", "-i", input)
	require.NoError(t, err)
	assert.Contains(t, stderr, "exists, skipped")

	out, stderr, err := execute(t, "", "-c", cfgPath, "load", "call", registry.LoaderStdout, "-i", updates)
	require.NoError(t, err)
	assert.Contains(t, out, "DELETE {")
	assert.Contains(t, out, `"Soil Microbes"`)
	assert.Less(t, strings.Index(out, "DELETE {"), strings.Index(out, "INSERT DATA {"))
	assert.Contains(t, stderr, registry.LoaderStdout+":")
}

func TestTransform_Stdio(t *testing.T) {
	_, cfgPath := setupRun(t)

	out, _, err := execute(t, grantLine+"\n", "-c", cfgPath,
		"transform", "call", "grants", "-i", "-", "-o", "-", "--format", "nquads")
	require.NoError(t, err)
	assert.Contains(t, out, `"Soil Microbes"`)
	assert.NotContains(t, out, "INSERT DATA")
}

func TestTransform_UnknownFormat(t *testing.T) {
	_, cfgPath := setupRun(t)
	_, _, err := execute(t, "", "-c", cfgPath, "transform", "call", "grants", "-i", "-", "--format", "turtle")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestExtract_ConfiguredFileSource(t *testing.T) {
	dir, cfgPath := setupRun(t)
	src := filepath.Join(dir, "orgs.json")
	require.NoError(t, os.WriteFile(src, []byte(`[{"orgCode":"ABCD"},{"orgCode":"HUMS"}]`), 0644))

	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("sources:\n  orgs:\n    path: " + src + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = execute(t, "", "-c", cfgPath, "extract", "call", "orgs", "-o", "out/orgs")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out", "orgs.ndjson"))
	require.NoError(t, err)
	assert.Equal(t, "{\"orgCode\":\"ABCD\"}\n{\"orgCode\":\"HUMS\"}\n", string(data))
}

func TestUnregisteredName(t *testing.T) {
	_, cfgPath := setupRun(t)
	_, _, err := execute(t, "", "-c", cfgPath, "extract", "call", "nope")
	assert.ErrorIs(t, err, registry.ErrNotRegistered)
}

func TestLoad_SPARQLWithoutEndpoint(t *testing.T) {
	_, cfgPath := setupRun(t)
	_, _, err := execute(t, "", "-c", cfgPath, "load", "call", registry.LoaderSPARQL, "-i", "-")
	assert.ErrorContains(t, err, "sparql.endpoint")
}

func TestList(t *testing.T) {
	_, cfgPath := setupRun(t)
	out, _, err := execute(t, "", "-c", cfgPath, "list")
	require.NoError(t, err)
	for _, want := range []string{"grants", "organizations", "people", "publications", "sparql", "nats", "stdout"} {
		assert.Contains(t, out, want)
	}
}

func TestMetricsFile(t *testing.T) {
	dir, cfgPath := setupRun(t)
	metrics := filepath.Join(dir, "metrics.prom")
	input := filepath.Join(dir, "grants.ndjson")
	require.NoError(t, os.WriteFile(input, []byte(grantLine+"\n"), 0644))

	_, _, err := execute(t, "", "-c", cfgPath, "--metrics-file", metrics,
		"transform", "call", "grants", "-i", input)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "semharvest_pipeline_records_total")
}

func TestServe_RequiresEndpointAndNATS(t *testing.T) {
	t.Setenv("NATS_URL", "")
	t.Setenv("SEMHARVEST_NATS_URL", "")
	_, cfgPath := setupRun(t)

	_, _, err := execute(t, "", "-c", cfgPath, "serve")
	assert.ErrorContains(t, err, "sparql.endpoint")

	_, _, err = execute(t, "", "-c", cfgPath, "serve", "--endpoint", "http://localhost:3030/ds/update")
	assert.ErrorContains(t, err, "nats.url")
}
