package cli_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/xstack/internal/cli"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/process/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const okManifest = `
name: ok
processes:
  - use: context.set
    with: {values: {greeting: hello}}
  - use: noop
`

const failingManifest = `
name: broken
processes:
  - use: context.set
    with: {values: {greeting: hello}}
  - use: fail
    with: {message: out of coffee}
`

func TestExecute_Completed(t *testing.T) {
	var out bytes.Buffer
	res, err := cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: writeManifest(t, okManifest),
		Context:      `{"user": "ada"}`,
		Stdout:       &out,
		Stderr:       &bytes.Buffer{},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StackCompleted, res.Status)
	assert.Equal(t, "ada", res.Context.Get("user", nil))
	assert.Contains(t, out.String(), "==> stack_started ok")
	assert.Contains(t, out.String(), "# ok: completed")
}

func TestExecute_RolledBackIsAnError(t *testing.T) {
	var out bytes.Buffer
	res, err := cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: writeManifest(t, failingManifest),
		Stdout:       &out,
		Stderr:       &bytes.Buffer{},
	})
	require.ErrorIs(t, err, cli.ErrNotCompleted)
	require.NotNil(t, res)
	assert.Equal(t, domain.StackRolledBack, res.Status)
	assert.False(t, res.Context.Has("greeting"))
	assert.Contains(t, out.String(), "out of coffee")
}

func TestExecute_NoRollback(t *testing.T) {
	res, err := cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: writeManifest(t, failingManifest),
		NoRollback:   true,
		Stdout:       &bytes.Buffer{},
		Stderr:       &bytes.Buffer{},
	})
	require.ErrorIs(t, err, cli.ErrNotCompleted)
	assert.Equal(t, domain.StackFailed, res.Status)
	assert.Equal(t, "hello", res.Context.Get("greeting", nil))
}

func TestExecute_JSON(t *testing.T) {
	var out bytes.Buffer
	_, err := cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: writeManifest(t, okManifest),
		JSON:         true,
		Stdout:       &out,
		Stderr:       &bytes.Buffer{},
	})
	require.NoError(t, err)

	var types []string
	var last map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line), scanner.Text())
		if typ, ok := line["type"].(string); ok {
			types = append(types, typ)
		}
		last = line
	}
	assert.Equal(t, "stack_started", types[0])
	assert.Equal(t, "stack_completed", types[len(types)-1])
	assert.Equal(t, "completed", last["status"], "the final line is the run result")
}

func TestExecute_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	res, err := cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: writeManifest(t, okManifest),
		RedisAddr:    mr.Addr(),
		Stdout:       &bytes.Buffer{},
		Stderr:       &bytes.Buffer{},
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("xstack:run:"+res.RunID), "events are journaled")
	assert.True(t, mr.Exists("xstack:result:"+res.RunID), "the result is kept in the history")
	members, err := mr.ZMembers("xstack:results")
	require.NoError(t, err)
	assert.Equal(t, []string{res.RunID}, members)
}

func TestExecute_Errors(t *testing.T) {
	_, err := cli.Execute(context.Background(), cli.RunOptions{ManifestPath: "does-not-exist.yaml"})
	assert.Error(t, err)

	_, err = cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: writeManifest(t, okManifest),
		Context:      "{",
		Stderr:       &bytes.Buffer{},
	})
	assert.ErrorContains(t, err, "--context")
}

func TestList(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cli.List(&out, builtin.NewRegistry(), false))
	assert.Contains(t, out.String(), "context.set  Writes values")
	assert.Contains(t, out.String(), "noop         Does nothing")

	out.Reset()
	require.NoError(t, cli.List(&out, builtin.NewRegistry(), true))
	assert.True(t, strings.HasPrefix(out.String(), `[{"id":"context.set"`))
}

func TestGraph(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, cli.Graph(&out, builtin.NewRegistry(), writeManifest(t, okManifest)))
	assert.Contains(t, out.String(), `p0_context_set[["context.set"]]`)
	assert.Contains(t, out.String(), "p1_noop -. undo .-> p0_context_set")
}

func TestServeHandler(t *testing.T) {
	handler, closer, err := cli.NewServeHandler(cli.ServeOptions{Stderr: &bytes.Buffer{}})
	require.NoError(t, err)
	defer closer()

	body := `{"manifest": {"name": "served", "processes": [{"use": "noop"}]}}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `xstack_stack_runs_total{outcome="completed"} 1`)
	assert.Contains(t, w.Body.String(), `xstack_process_total{outcome="succeeded",process="noop"} 1`)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cli.Serve(ctx, cli.ServeOptions{Port: "0", Stderr: &bytes.Buffer{}})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestEnvDefault(t *testing.T) {
	t.Setenv(cli.EnvLogLevel, "debug")
	assert.Equal(t, "debug", cli.EnvDefault(cli.EnvLogLevel, "info"))
	assert.Equal(t, "x", cli.EnvDefault("XSTACK_SURELY_UNSET", "x"))
}

func TestExecute_InlineExecRequiresOptIn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	marker := filepath.Join(t.TempDir(), "ran")
	path := writeManifest(t, `
name: inline
processes:
  - use: exec
    with: {command: touch, args: [`+marker+`]}
`)

	_, err := cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: path,
		Stdout:       &bytes.Buffer{},
		Stderr:       &bytes.Buffer{},
	})
	require.ErrorIs(t, err, builtin.ErrInlineExecDisabled)
	assert.NoFileExists(t, marker)

	res, err := cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: path,
		Exec:         cli.ExecOptions{AllowInline: true},
		Stdout:       &bytes.Buffer{},
		Stderr:       &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StackCompleted, res.Status)
	assert.FileExists(t, marker)
}

func TestExecute_RegisteredCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	commands := filepath.Join(t.TempDir(), "commands.yaml")
	require.NoError(t, os.WriteFile(commands, []byte(`
commands:
  greet:
    command: sh
    args: ["-c", "echo hi $XSTACK_CTX_WHO"]
`), 0o644))

	res, err := cli.Execute(context.Background(), cli.RunOptions{
		ManifestPath: writeManifest(t, `
name: registered
context: {who: gopher}
processes:
  - use: exec
    with: {run: greet}
`),
		Exec:   cli.ExecOptions{CommandsPath: commands},
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi gopher", res.Context.Get(domain.ResultKey("exec"), nil))
}

func TestLoadCommands_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := cli.LoadCommands(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("commands:\n  build: {args: [x]}\n"), 0o644))
	_, err = cli.LoadCommands(bad)
	assert.ErrorContains(t, err, "build: command is required")

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("tools: {}\n"), 0o644))
	_, err = cli.LoadCommands(unknown)
	assert.Error(t, err)
}

func TestServeHandler_RejectsInlineExec(t *testing.T) {
	handler, closer, err := cli.NewServeHandler(cli.ServeOptions{Stderr: &bytes.Buffer{}})
	require.NoError(t, err)
	defer closer()

	marker := filepath.Join(t.TempDir(), "owned")
	body := `{"manifest": {"name": "x", "processes": [{"use": "exec", "with": {"command": "sh", "args": ["-c", "id > ` + marker + `"]}}]}}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "inline commands are disabled")
	assert.NoFileExists(t, marker)
}
