package apps_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz/internal/app/apps"
	"quiz/internal/app/cfg"

	"github.com/stretchr/testify/require"
)

func writeBankFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.csv")
	require.NoError(t, os.WriteFile(path, []byte("question,answer\n2+2,4\n"), 0o600))
	return path
}

func TestServerApp(t *testing.T) {
	app, err := apps.NewServerApp(
		cfg.NewPortCfg(0),
		cfg.NewBankPathCfg(writeBankFile(t)),
		cfg.NewPoolSizeCfg(2),
	)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Run(ctx, nil))
}

func TestServerAppMissingBankDegrades(t *testing.T) {
	app, err := apps.NewServerApp(
		cfg.NewPortCfg(0),
		cfg.NewBankPathCfg(filepath.Join(t.TempDir(), "missing.csv")),
		cfg.NewPoolSizeCfg(2),
	)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	// a bank that fails to load serves an empty bank, not an error
	require.NoError(t, app.Run(ctx, nil))
}

func TestClientAppDefaults(t *testing.T) {
	app, err := apps.NewClientApp(cfg.NewPortCfg(7777))
	require.NoError(t, err)
	require.Equal(t, "localhost", app.Host)
	require.Equal(t, uint16(7777), app.Port)
}
