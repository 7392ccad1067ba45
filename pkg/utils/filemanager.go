// =============================================================================
// UWV Sickness Notification XML Generator - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the generator:
//   - Saving generated envelopes into per-message-type directories
//   - The JSON-lines event log of saved files and its success rate
//   - Bulk download archives with file-count and size limits
//   - Cleanup of stale downloads
//   - File naming utilities
//
// DIRECTORY LAYOUT (defaults):
//
//   output/
//     v0428/                      ZBM and VM envelopes
//     UwvZwMelding_MQ_V0428/      OTP3 (Digipoort) envelopes
//     downloads/                  bulk_<type>_<timestamp>.zip
//     xml_events.jsonl            one line per save attempt
//
// =============================================================================

package utils

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the generator.
type FileManager struct {
	// OutputDir is the root directory for generated files.
	OutputDir string

	// OutputDirs maps a message-type code to a subdirectory of OutputDir.
	OutputDirs map[string]string

	// DownloadsDir holds the batch archives.
	DownloadsDir string

	// EventsFile is the JSON-lines event log. Empty disables it.
	EventsFile string

	mu  sync.Mutex
	now func() time.Time
}

// NewFileManager creates a FileManager from the configuration.
func NewFileManager(cfg *config.MainConfig) *FileManager {
	return &FileManager{
		OutputDir:    cfg.OutputDir,
		OutputDirs:   cfg.OutputDirs,
		DownloadsDir: cfg.DownloadsDir,
		EventsFile:   cfg.EventsFile,
		now:          time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output, per-type and downloads directories.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.OutputDir, fm.DownloadsDir}
	for _, sub := range fm.OutputDirs {
		if sub != "" {
			dirs = append(dirs, filepath.Join(fm.OutputDir, sub))
		}
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DirFor returns the directory for a message-type code.
func (fm *FileManager) DirFor(messageType string) string {
	if sub, ok := fm.OutputDirs[strings.ToUpper(messageType)]; ok && sub != "" {
		return filepath.Join(fm.OutputDir, sub)
	}
	return fm.OutputDir
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes data as filename in the directory of messageType and records
// the attempt in the event log. An existing file is never overwritten: if it
// holds the same bytes it is reused, otherwise data is saved under the first
// free name with a _2, _3... suffix.
//
// PARAMETERS:
//   - messageType: The message-type code (ZBM, VM, OTP3).
//   - filename: The base file name.
//   - data: The serialized envelope.
//
// RETURNS:
//   - The path written, whose base name may differ from filename.
//   - An error if the file cannot be written. The event is still logged,
//     with success false.
func (fm *FileManager) Save(messageType, filename string, data []byte) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("failed to save output: invalid file name %q", filename)
	}

	dir := fm.DirFor(messageType)
	path := filepath.Join(dir, filename)

	err := os.MkdirAll(dir, 0o755)
	if err == nil {
		var written string
		if written, err = writeFileExclusive(path, data); err == nil {
			path = written
		}
	}

	ev := Event{
		Timestamp:   fm.clock().Format(time.RFC3339),
		Filename:    filepath.Base(path),
		MessageType: messageType,
		OutputPath:  path,
		Size:        int64(len(data)),
		Success:     err == nil,
	}
	if logErr := fm.AppendEvent(ev); logErr != nil && err == nil {
		err = logErr
	}

	if err != nil {
		return "", fmt.Errorf("failed to save output: %w", err)
	}
	return path, nil
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// maxNameAttempts bounds the numbered names tried by writeFileExclusive.
const maxNameAttempts = 1000

// writeFileExclusive writes to a temporary file and hard-links it into
// place. The link fails when the target exists, so a concurrent writer
// cannot be overwritten either.
func writeFileExclusive(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	candidate := path
	for n := 2; n <= maxNameAttempts; n++ {
		err := os.Link(tmp.Name(), candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		if existing, readErr := os.ReadFile(candidate); readErr == nil && bytes.Equal(existing, data) {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
	return "", fmt.Errorf("no free name for %s", filepath.Base(path))
}

// =============================================================================
// EVENT LOG
// =============================================================================

// Event is one line of the event log.
type Event struct {
	Timestamp   string `json:"tijdstip"`
	Filename    string `json:"filename"`
	MessageType string `json:"aanvraag_type"`
	OutputPath  string `json:"output_path"`
	Size        int64  `json:"size"`
	Success     bool   `json:"success"`
}

// AppendEvent appends one event to the event log.
func (fm *FileManager) AppendEvent(ev Event) error {
	if fm.EventsFile == "" {
		return nil
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fm.EventsFile), 0o755); err != nil {
		return fmt.Errorf("failed to create event log directory: %w", err)
	}
	f, err := os.OpenFile(fm.EventsFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event log: %w", err)
	}
	return nil
}

// SuccessRate summarizes an event log as a rounded percentage ("67%").
// Unreadable lines are skipped.
//
// RETURNS:
//   - The percentage and true, or "" and false when the log is missing or
//     holds no events.
func SuccessRate(eventsPath string) (string, bool) {
	f, err := os.Open(eventsPath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	total, success := 0, 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		total++
		if ev.Success {
			success++
		}
	}
	if total == 0 {
		return "", false
	}
	pct := (success*100*2 + total) / (total * 2)
	return fmt.Sprintf("%d%%", pct), true
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName fills a file name template.
//
// PARAMETERS:
//   - format: The template, e.g. "{type}_{key}_{timestamp}.xml".
//   - params: Custom placeholder values, keyed without braces.
//   - now: The batch time.
//   - deterministic: Derive {uuid} from now and params instead of
//     generating a random one.
//
// RETURNS:
//   - The file name, always ending in .xml.
//
// EXAMPLE:
//   GenerateOutputFileName("{type}_{key}_{timestamp}.xml",
//       map[string]string{"type": "zbm", "key": "bulk"}, t, false)
//   -> "zbm_bulk_20240301_093000.xml"
func GenerateOutputFileName(format string, params map[string]string, now time.Time, deterministic bool) string {
	id := uuid.New()
	if deterministic {
		id = nameID(params, now)
	}

	replacements := map[string]string{
		"{uuid}":      id.String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	result = filepath.Base(result)

	if !strings.HasSuffix(strings.ToLower(result), ".xml") {
		result += ".xml"
	}
	return result
}

// nameID is a name-based UUID over the batch time and the placeholder
// values.
func nameID(params map[string]string, now time.Time) uuid.UUID {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{now.Format(time.RFC3339Nano)}
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(parts, "|")))
}

// =============================================================================
// DOWNLOAD ARCHIVES
// =============================================================================

// ErrZipLimit is returned when a requested archive exceeds a limit.
var ErrZipLimit = errors.New("zip limit exceeded")

// ArchiveName returns the bulk archive name for a batch.
func ArchiveName(friendlyType string, now time.Time) string {
	return fmt.Sprintf("bulk_%s_%s.zip", friendlyType, now.Format("20060102_150405"))
}

// BuildZip writes the given files into an archive at zipPath. Limits are
// checked before anything is written. An existing archive with the same
// name is replaced.
//
// PARAMETERS:
//   - zipPath: The archive path.
//   - files: Paths of the files to include, stored under their base name.
//   - limits: File count and size limits.
//
// RETURNS:
//   - An error wrapping ErrZipLimit when a limit is exceeded, or any I/O
//     error.
func BuildZip(zipPath string, files []string, limits config.ZipSettings) error {
	if len(files) == 0 {
		return fmt.Errorf("failed to build zip: no files")
	}
	if limits.MaxFiles > 0 && len(files) > limits.MaxFiles {
		return fmt.Errorf("%w: te veel bestanden (%d, max %d)", ErrZipLimit, len(files), limits.MaxFiles)
	}

	var total int64
	seen := make(map[string]bool, len(files))
	for _, p := range files {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("failed to build zip: %w", err)
		}
		if limits.MaxFileBytes > 0 && info.Size() > limits.MaxFileBytes {
			return fmt.Errorf("%w: bestand te groot: %s (max %d bytes)", ErrZipLimit, filepath.Base(p), limits.MaxFileBytes)
		}
		total += info.Size()
		if seen[filepath.Base(p)] {
			return fmt.Errorf("failed to build zip: duplicate entry %s", filepath.Base(p))
		}
		seen[filepath.Base(p)] = true
	}
	if limits.MaxTotalBytes > 0 && total > limits.MaxTotalBytes {
		return fmt.Errorf("%w: totale grootte %d bytes (max %d bytes)", ErrZipLimit, total, limits.MaxTotalBytes)
	}

	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return fmt.Errorf("failed to create downloads directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(zipPath), ".zip-*")
	if err != nil {
		return fmt.Errorf("failed to create zip: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, p := range files {
		if err := addToZip(zw, p); err != nil {
			zw.Close()
			tmp.Close()
			return fmt.Errorf("failed to add %s to zip: %w", filepath.Base(p), err)
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finish zip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to finish zip: %w", err)
	}
	if err := os.Rename(tmp.Name(), zipPath); err != nil {
		return fmt.Errorf("failed to move zip into place: %w", err)
	}
	return nil
}

func addToZip(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.Base(path), Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// CleanOldArchives removes files older than maxAge from archiveDir. A
// missing directory is not an error.
//
// PARAMETERS:
//   - archiveDir: The directory to clean (not recursive).
//   - maxAge: The maximum age of files to keep.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to clean archives: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(archiveDir, e.Name())); err != nil {
				return removed, fmt.Errorf("failed to clean archives: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}
