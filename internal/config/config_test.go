package config

import (
	"os"
	"path/filepath"
	"testing"

	"luckyroll/internal/address"

	"github.com/stretchr/testify/require"
)

const (
	ownerAddr  = "0x00000000000000000000000000000000000000a0"
	oracleAddr = "0x00000000000000000000000000000000000000b0"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "luckyroll.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, 10000, cfg.Outbox.Limit)

	// Owner and oracle have no sensible default.
	require.Error(t, cfg.Validate(address.HexValidator{}))
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luckyroll.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
ListenAddress = ":9000"
DataDir = "/var/lib/luckyroll"
Owner = "`+ownerAddr+`"

[Round]
Oracle = "`+oracleAddr+`"
TimeStart = "2026-03-01T10:00:00Z"
TimeEnd = "2026-03-01T12:00:00Z"
`), 0o644))

	t.Setenv("LUCKYROLL_LISTEN", ":9100")
	t.Setenv("LUCKYROLL_VERBOSE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.ListenAddress)
	require.Equal(t, "/var/lib/luckyroll", cfg.DataDir)
	require.True(t, cfg.Verbose)
	require.NoError(t, cfg.Validate(address.HexValidator{}))

	start, end, err := cfg.Round.Window()
	require.NoError(t, err)
	require.Equal(t, 2, int(end.Sub(start).Hours()))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luckyroll.toml")
	require.NoError(t, os.WriteFile(path, []byte("ListenAddres = \":1\"\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		ListenAddress: ":8080",
		DataDir:       "data",
		Owner:         ownerAddr,
		Round: RoundConfig{
			Oracle:    oracleAddr,
			TimeStart: "2026-03-01T10:00:00Z",
			TimeEnd:   "2026-03-01T12:00:00Z",
		},
	}
	v := address.HexValidator{}
	require.NoError(t, base.Validate(v))

	bad := base
	bad.Round.TimeEnd = "2026-03-01T09:00:00Z"
	require.Error(t, bad.Validate(v))

	bad = base
	bad.Round.Oracle = "nois"
	require.ErrorIs(t, bad.Validate(v), address.ErrInvalidAddress)

	bad = base
	bad.Round.TimeStart = "tomorrow"
	require.Error(t, bad.Validate(v))

	bad = base
	bad.DataDir = " "
	require.Error(t, bad.Validate(v))
}

func TestInvalidEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luckyroll.toml")
	require.NoError(t, WriteDefault(path))
	t.Setenv("LUCKYROLL_OUTBOX_LIMIT", "lots")
	_, err := Load(path)
	require.Error(t, err)
}
