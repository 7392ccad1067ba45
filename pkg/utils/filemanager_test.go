package utils

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
)

func testManager(t *testing.T) *FileManager {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.DownloadsDir = filepath.Join(cfg.OutputDir, "downloads")
	cfg.EventsFile = filepath.Join(cfg.OutputDir, "xml_events.jsonl")
	fm := NewFileManager(cfg)
	fm.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return fm
}

func TestEnsureDirectories(t *testing.T) {
	fm := testManager(t)
	require.NoError(t, fm.EnsureDirectories())

	for _, dir := range []string{"v0428", "UwvZwMelding_MQ_V0428", "downloads"} {
		info, err := os.Stat(filepath.Join(fm.OutputDir, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSave_PerTypeDirectoryAndEvent(t *testing.T) {
	fm := testManager(t)

	path, err := fm.Save("OTP3", "digipoort_bulk_20240301_093000.xml", []byte("<x/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "UwvZwMelding_MQ_V0428", "digipoort_bulk_20240301_093000.xml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<x/>", string(data))

	path, err = fm.Save("XYZ", "xyz.xml", []byte("<y/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "xyz.xml"), path)

	raw, err := os.ReadFile(fm.EventsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	assert.Equal(t, "2024-03-01T09:30:00Z", ev["tijdstip"])
	assert.Equal(t, "digipoort_bulk_20240301_093000.xml", ev["filename"])
	assert.Equal(t, "OTP3", ev["aanvraag_type"])
	assert.Equal(t, float64(4), ev["size"])
	assert.Equal(t, true, ev["success"])
}

func TestSave_NeverOverwrites(t *testing.T) {
	fm := testManager(t)
	name := "zbm_bulk_20240301_093000.xml"

	first, err := fm.Save("ZBM", name, []byte("<first/>"))
	require.NoError(t, err)
	second, err := fm.Save("ZBM", name, []byte("<second/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "v0428", "zbm_bulk_20240301_093000_2.xml"), second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "<first/>", string(data))
	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "<second/>", string(data))

	// Identical content reuses the existing file.
	again, err := fm.Save("ZBM", name, []byte("<second/>"))
	require.NoError(t, err)
	assert.Equal(t, second, again)

	entries, err := os.ReadDir(filepath.Join(fm.OutputDir, "v0428"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	raw, err := os.ReadFile(fm.EventsFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"filename":"zbm_bulk_20240301_093000_2.xml"`)
}

func TestSave_RejectsPaths(t *testing.T) {
	fm := testManager(t)

	_, err := fm.Save("ZBM", "../escape.xml", []byte("x"))
	assert.Error(t, err)
	_, err = fm.Save("ZBM", "", []byte("x"))
	assert.Error(t, err)
}

func TestSave_FailureIsLogged(t *testing.T) {
	fm := testManager(t)
	// A file where the type directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(fm.OutputDir, "v0428"), []byte("x"), 0o644))

	_, err := fm.Save("ZBM", "zbm.xml", []byte("<x/>"))
	require.Error(t, err)

	rate, ok := SuccessRate(fm.EventsFile)
	require.True(t, ok)
	assert.Equal(t, "0%", rate)
}

func TestSuccessRate(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "events.jsonl")
	content := `{"success": true}
{"success": false}

not json
{"success": true}
`
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	rate, ok := SuccessRate(p)
	require.True(t, ok)
	assert.Equal(t, "67%", rate)

	_, ok = SuccessRate(filepath.Join(dir, "missing.jsonl"))
	assert.False(t, ok)

	empty := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, ok = SuccessRate(empty)
	assert.False(t, ok)
}

func TestGenerateOutputFileName(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC)

	tests := []struct {
		name   string
		format string
		params map[string]string
		want   string
	}{
		{"default", "{type}_{key}_{timestamp}.xml", map[string]string{"type": "zbm", "key": "bulk"}, "zbm_bulk_20240301_093005.xml"},
		{"adds extension", "{type}_{date}", map[string]string{"type": "vm"}, "vm_20240301.xml"},
		{"strips directories", "../{key}.xml", map[string]string{"key": "123456789_r3"}, "123456789_r3.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateOutputFileName(tt.format, tt.params, now, false))
		})
	}

	withID := GenerateOutputFileName("{uuid}", nil, now, false)
	assert.Regexp(t, `^[0-9a-f-]{36}\.xml$`, withID)
	assert.NotEqual(t, withID, GenerateOutputFileName("{uuid}", nil, now, false))
}

func TestGenerateOutputFileName_DeterministicUUID(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC)
	params := map[string]string{"type": "zbm", "key": "bulk"}

	first := GenerateOutputFileName("{type}_{uuid}", params, now, true)
	assert.Regexp(t, `^zbm_[0-9a-f-]{36}\.xml$`, first)
	assert.Equal(t, first, GenerateOutputFileName("{type}_{uuid}", params, now, true))

	other := GenerateOutputFileName("{type}_{uuid}", map[string]string{"type": "zbm", "key": "123456789_r2"}, now, true)
	assert.NotEqual(t, first, other)
	assert.NotEqual(t, first, GenerateOutputFileName("{type}_{uuid}", params, now.Add(time.Second), true))
}

func TestArchiveName(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC)
	assert.Equal(t, "bulk_digipoort_20240301_093005.zip", ArchiveName("digipoort", now))
}

func writeFiles(t *testing.T, dir string, sizes map[string]int) []string {
	t.Helper()
	var paths []string
	for name, size := range sizes {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("a", size)), 0o644))
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestBuildZip_Idempotent(t *testing.T) {
	dir := t.TempDir()
	files := writeFiles(t, dir, map[string]int{"a.xml": 10, "b.xml": 20})
	zipPath := filepath.Join(dir, "downloads", "bulk_zbm_20240301_093000.zip")
	limits := config.Default().Zip

	require.NoError(t, BuildZip(zipPath, files, limits))
	assert.Equal(t, []string{"a.xml", "b.xml"}, zipEntries(t, zipPath))

	require.NoError(t, BuildZip(zipPath, files[:1], limits))
	assert.Equal(t, []string{"a.xml"}, zipEntries(t, zipPath))
}

func TestBuildZip_Limits(t *testing.T) {
	dir := t.TempDir()
	files := writeFiles(t, dir, map[string]int{"a.xml": 10, "b.xml": 20, "c.xml": 30})
	zipPath := filepath.Join(dir, "out.zip")

	tests := []struct {
		name   string
		limits config.ZipSettings
	}{
		{"too many files", config.ZipSettings{MaxFiles: 2, MaxTotalBytes: 1000, MaxFileBytes: 1000}},
		{"file too large", config.ZipSettings{MaxFiles: 10, MaxTotalBytes: 1000, MaxFileBytes: 25}},
		{"total too large", config.ZipSettings{MaxFiles: 10, MaxTotalBytes: 50, MaxFileBytes: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := BuildZip(zipPath, files, tt.limits)
			assert.ErrorIs(t, err, ErrZipLimit)
			assert.False(t, FileExists(zipPath))
		})
	}

	assert.Error(t, BuildZip(zipPath, nil, config.Default().Zip))
}

func TestCleanOldArchives(t *testing.T) {
	dir := t.TempDir()
	files := writeFiles(t, dir, map[string]int{"old.zip": 1, "new.zip": 1})
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.zip"), old, old))

	removed, err := CleanOldArchives(dir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, FileExists(filepath.Join(dir, "old.zip")))
	assert.True(t, FileExists(files[0]))

	removed, err = CleanOldArchives(filepath.Join(dir, "missing"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
