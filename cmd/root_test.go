package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tika-extractor/internal/config"
	"github.com/JakeFAU/tika-extractor/internal/storage/local"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func tikaStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Header.Get("Content-Type") == "application/geotopic" {
			if string(body) == "fever in Wuhan" {
				_, _ = w.Write([]byte(`[{"Geographic_NAME":"Wuhan"}]`))
				return
			}
			_, _ = w.Write([]byte(`[{}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"X-TIKA:content":"` + string(body) + `"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return cmd.ExecuteContext(ctx)
}

func TestRootCmd_Extracts(t *testing.T) {
	srv := tikaStub(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "covid.csv")
	writeFile(t, in, "doi,title,abstract\n10.1/abc,A,fever in Wuhan\nNaN,B,cough\n10.1/none,C,\n")
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, "ctakes:\n  api: "+srv.URL+"\ngeo:\n  api: "+srv.URL+"/tika\n")
	out := filepath.Join(dir, "out")

	err := runRoot(t,
		"--config", cfgPath,
		"--env-file", filepath.Join(dir, "absent.env"),
		"--input-file", in,
		"--output-dir", out,
		"--num-workers", "2",
	)
	require.NoError(t, err)

	ctakes := filepath.Join(out, config.PipelineCTakes+outputDirSuffix)
	geo := filepath.Join(out, config.PipelineGeo+outputDirSuffix)
	coughStem := "nan_63a9eea4be08b44d2a55851478530318d0e7434c2a89007eb9109ddd"

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(filepath.Join(ctakes, "10.1_abc.json"))
	require.NoError(t, err)
	require.Equal(t, `[{"X-TIKA:content":"fever in Wuhan"}]`, string(data))
	require.FileExists(t, filepath.Join(ctakes, coughStem+".json"))
	require.FileExists(t, filepath.Join(geo, "10.1_abc.json"))
	require.NoFileExists(t, filepath.Join(geo, coughStem+".json"))

	entries, err := os.ReadDir(ctakes)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRootCmd_ExistingOutputDirFails(t *testing.T) {
	srv := tikaStub(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	writeFile(t, in, "doi,abstract\n10.1/a,x\n")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "geo-json"), 0o750))
	t.Setenv("TIKA_GEO_API", srv.URL)
	t.Setenv("TIKA_CTAKES_API", srv.URL)

	err := runRoot(t, "--input-file", in, "--output-dir", out, "--env-file", filepath.Join(dir, "none"))
	require.ErrorIs(t, err, local.ErrOutputExists)
}

func TestRootCmd_RequiresInputAndOutput(t *testing.T) {
	dir := t.TempDir()
	err := runRoot(t, "--output-dir", dir, "--env-file", filepath.Join(dir, "none"))
	require.ErrorContains(t, err, "input_file")

	err = runRoot(t, "--input-file", filepath.Join(dir, "in.csv"), "--env-file", filepath.Join(dir, "none"))
	require.ErrorContains(t, err, "output_dir")
}

func TestRootCmd_RejectsInvalidWorkers(t *testing.T) {
	dir := t.TempDir()
	err := runRoot(t, "--input-file", "x.csv", "--output-dir", dir, "--num-workers", "0", "--env-file", filepath.Join(dir, "none"))
	require.ErrorContains(t, err, "workers")
}

func TestRootCmd_MissingInputFile(t *testing.T) {
	dir := t.TempDir()
	err := runRoot(t, "--input-file", filepath.Join(dir, "missing.csv"), "--output-dir", filepath.Join(dir, "out"), "--env-file", filepath.Join(dir, "none"))
	require.ErrorContains(t, err, "open input")
}

func TestPipelineDefsOrder(t *testing.T) {
	t.Parallel()

	defs := pipelineDefs(config.Config{})
	require.Len(t, defs, 2)
	require.Equal(t, config.PipelineGeo, defs[0].name)
	require.Equal(t, config.PipelineCTakes, defs[1].name)
	require.NotNil(t, defs[0].filter)
	require.Nil(t, defs[1].filter)
}
