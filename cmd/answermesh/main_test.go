package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/answermesh/config"
	"github.com/hupe1980/answermesh/internal/testutil"
	"github.com/hupe1980/answermesh/results"
)

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "Elapsed time: 5.25 seconds", formatElapsed(5250*time.Millisecond))
	assert.Equal(t, "Elapsed time: 0.00 seconds", formatElapsed(0))
	assert.Equal(t, "Elapsed time: 2 minutes 3.50 seconds", formatElapsed(2*time.Minute+3500*time.Millisecond))
	assert.Equal(t, "Elapsed time: 1 minutes 0.00 seconds", formatElapsed(time.Minute))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\t\tc", 0))
	assert.Equal(t, "abcdefg", oneLine("abcdefg", 7))
	assert.Equal(t, "abc...", oneLine("abcdefghij", 6))
}

func TestPrintResults(t *testing.T) {
	set := testutil.NewResultSetBuilder("alice").
		Done("t1", "What is 2+2?", "4").
		Done("t2", "Capital\nof France?", "Paris").
		Build()

	var buf bytes.Buffer
	require.NoError(t, printResults(&buf, set))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "TASK_ID")
	assert.Contains(t, string(lines[1]), "What is 2+2?")
	assert.Contains(t, string(lines[2]), "Capital of France?")
	assert.Contains(t, string(lines[2]), "Paris")
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, closeStore, err := openStore(ctx, &config.Settings{ResultStore: config.StoreMemory}, afero.NewMemMapFs())
		require.NoError(t, err)
		assert.IsType(t, &results.InMemoryStore{}, store)
		assert.NoError(t, closeStore())
	})

	t.Run("file", func(t *testing.T) {
		store, _, err := openStore(ctx, &config.Settings{ResultStore: config.StoreFile, ResultStoreDSN: "out"}, afero.NewMemMapFs())
		require.NoError(t, err)
		require.IsType(t, &results.FileStore{}, store)
		assert.Equal(t, filepath.Join("out", "answers_alice.json"), store.(*results.FileStore).Path("alice"))
	})

	t.Run("sqlite", func(t *testing.T) {
		store, closeStore, err := openStore(ctx, &config.Settings{ResultStore: config.StoreSQLite, ResultStoreDSN: ":memory:"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &results.SQLiteStore{}, store)
		assert.NoError(t, closeStore())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, closeStore, err := openStore(ctx, &config.Settings{ResultStore: config.StoreRedis, ResultStoreDSN: "redis://" + mr.Addr()}, nil)
		require.NoError(t, err)
		assert.IsType(t, &results.RedisStore{}, store)
		assert.NoError(t, closeStore())
	})

	t.Run("unsupported", func(t *testing.T) {
		_, closeStore, err := openStore(ctx, &config.Settings{ResultStore: "s3"}, nil)
		require.ErrorIs(t, err, config.ErrInvalidSettings)
		assert.NotNil(t, closeStore)
	})
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnswersCmd(t *testing.T) {
	dir := t.TempDir()
	envFile := writeEnvFile(t, "RESULT_STORE=file\nRESULT_STORE_DSN="+dir+"\nLOG_LEVEL=error\n")
	t.Setenv("RESULT_STORE", "file")
	t.Setenv("RESULT_STORE_DSN", dir)

	out, err := executeRoot(t, "answers", "--env-file", envFile, "--username", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "No answers stored for alice.")

	set := testutil.NewResultSetBuilder("alice").Done("t1", "What is 2+2?", "4").Build()
	require.NoError(t, results.NewFileStore(afero.NewOsFs(), dir).Save(context.Background(), "alice", set))

	out, err = executeRoot(t, "answers", "--env-file", envFile, "--username", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "TASK_ID")
	assert.Contains(t, out, "What is 2+2?")
}

func TestIdentityRequired(t *testing.T) {
	envFile := writeEnvFile(t, "RESULT_STORE=memory\n")
	t.Setenv("USERNAME", "")
	t.Setenv("RESULT_STORE", "memory")

	_, err := executeRoot(t, "answers", "--env-file", envFile)
	require.ErrorIs(t, err, errNoIdentity)
}

func TestSubmitRequiresSpaceID(t *testing.T) {
	envFile := writeEnvFile(t, "RESULT_STORE=memory\n")
	t.Setenv("SPACE_ID", "")
	t.Setenv("RESULT_STORE", "memory")

	_, err := executeRoot(t, "submit", "--env-file", envFile, "--username", "alice")
	require.ErrorIs(t, err, config.ErrInvalidSettings)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(&config.Settings{LogLevel: "debug", LogFormat: "json", LogBackend: "slog"})
	require.NoError(t, err)

	_, err = newLogger(&config.Settings{LogLevel: "info", LogFormat: "text", LogBackend: "zap"})
	require.NoError(t, err)

	logFile := filepath.Join(t.TempDir(), "answermesh.log")
	l, err := newLogger(&config.Settings{LogLevel: "info", LogFormat: "json", LogBackend: "slog", LogFile: logFile})
	require.NoError(t, err)
	l.Info("cli.test.line", "k", "v")
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cli.test.line")

	_, err = newLogger(&config.Settings{LogLevel: "info", LogBackend: "logrus"})
	require.Error(t, err)

	_, err = newLogger(&config.Settings{LogLevel: "verbose"})
	require.Error(t, err)
}
