package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, filepath.Join("./output", "downloads"), cfg.DownloadsDir)
	assert.Equal(t, "{type}_{key}_{timestamp}.xml", cfg.FilenameFormat)
	assert.Equal(t, []string{"ZBM", "VM", "OTP3"}, cfg.KnownMessageTypes)
	assert.Equal(t, "UZS", cfg.Header.DestinationApplication)
	assert.Equal(t, "2", cfg.Defaults.IndAlleenControleUzs)
	assert.Equal(t, "WG", cfg.Defaults.CdSrtIndiener)
	assert.Equal(t, 50, cfg.Zip.MaxFiles)
	assert.Equal(t, int64(10<<20), cfg.Zip.MaxFileBytes)
	assert.Equal(t, time.Hour, cfg.MaxDownloadAge())
	assert.True(t, cfg.ExtensionFieldsEnabled())
	assert.NoError(t, validateMainConfig(cfg))

	_, ok := cfg.FixedTime()
	assert.False(t, ok)
}

func TestLoadMainConfig_YAML(t *testing.T) {
	p := writeFile(t, "config.yaml", `
output_dir: /tmp/out
schema_path: schemas/body.xsd
workers: 4
emit_extension_fields: false
header:
  external_reference: NOCOREFLEX
  fixed_timestamp: "2025-10-28T13:00:00+02:00"
defaults:
  naam_software_pakket: Loonpakket
csv_settings:
  delimiter: ";"
  encoding: Windows-1252
transformation_rules:
  - field: IBAN
    actions:
      - type: uppercase
      - type: remove_spaces
`)

	cfg, err := LoadMainConfig(p)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, filepath.Join("/tmp/out", "v0428"), cfg.OutputDirFor("zbm"))
	assert.Equal(t, filepath.Join("/tmp/out", "UwvZwMelding_MQ_V0428"), cfg.OutputDirFor("OTP3"))
	assert.Equal(t, "/tmp/out", cfg.OutputDirFor("XYZ"))
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.ExtensionFieldsEnabled())
	assert.Equal(t, "NOCOREFLEX", cfg.Header.ExternalReference)
	assert.Equal(t, "Loonpakket", cfg.Defaults.NaamSoftwarePakket)
	assert.Equal(t, "1.0", cfg.Defaults.VersieSoftwarePakket)
	assert.Equal(t, 2, cfg.CSVSettings.DataStartRow)
	require.Len(t, cfg.TransformationRules, 1)
	assert.Len(t, cfg.TransformationRules[0].Actions, 2)

	fixed, ok := cfg.FixedTime()
	require.True(t, ok)
	assert.Equal(t, "2025-10-28T11:00:00Z", fixed.UTC().Format(time.RFC3339))
}

func TestLoadMainConfig_TOML(t *testing.T) {
	p := writeFile(t, "config.toml", `
output_dir = "/srv/xml"
default_sender = "VM"
known_message_types = ["ZBM", "VM"]

[header]
destination_application = "UZS-TEST"

[zip]
max_files = 10
`)

	cfg, err := LoadMainConfig(p)
	require.NoError(t, err)

	assert.Equal(t, "/srv/xml", cfg.OutputDir)
	assert.Equal(t, "VM", cfg.DefaultSender)
	assert.Equal(t, "UZS-TEST", cfg.Header.DestinationApplication)
	assert.Equal(t, 10, cfg.Zip.MaxFiles)
	assert.True(t, cfg.IsKnownMessageType("vm"))
	assert.False(t, cfg.IsKnownMessageType("OTP3"))
}

func TestLoadMainConfig_Errors(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "output_dir: [unterminated"},
		{"bad log level", "log_level: verbose"},
		{"bad encoding", "csv_settings:\n  encoding: EBCDIC"},
		{"bad duration", "downloads_max_age: soon"},
		{"bad timestamp", "header:\n  fixed_timestamp: yesterday"},
		{"rows out of order", "csv_settings:\n  header_row: 3\n  data_start_row: 2"},
		{"too many workers", "workers: 1000"},
		{"rule without actions", "transformation_rules:\n  - field: IBAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMainConfig(writeFile(t, "config.yaml", tt.content))
			assert.Error(t, err)
		})
	}
}
