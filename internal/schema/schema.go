// Package schema validates message bodies against the external XSD.
//
// The compiled schema is loaded lazily, once, and shared read-only by every
// caller. Loading first tries a strict pass that refuses DTDs and remote
// schema locations in the schema and in every local file it includes or
// imports; only if that fails is the schema compiled permissively. A
// permissive compile may fetch remote locations.
// The reason for any fallback or failure is kept as a diagnostic. When no
// schema can be compiled, validation is skipped rather than failing rows.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/lestrrat-go/libxml2"
	"github.com/lestrrat-go/libxml2/parser"
	"github.com/lestrrat-go/libxml2/xsd"
	"go.uber.org/zap"
)

// ErrSchemaUnavailable is returned by Load when no schema could be compiled.
var ErrSchemaUnavailable = errors.New("schema unavailable")

// Mode records how the schema was compiled.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeStrict     Mode = "strict"
	ModePermissive Mode = "permissive"
)

var (
	doctypePattern  = regexp.MustCompile(`(?i)<!DOCTYPE`)
	locationPattern = regexp.MustCompile(`schemaLocation\s*=\s*["']([^"']+)["']`)
)

// Validator validates serialized message bodies.
type Validator struct {
	path   string
	logger *zap.Logger

	once       sync.Once
	schema     *xsd.Schema
	mode       Mode
	diagnostic string
	loadErr    error
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Validator for the XSD at path. Nothing is read until the
// first Load or Validate call.
func New(path string, opts ...Option) *Validator {
	v := &Validator{path: path, logger: zap.NewNop(), mode: ModeNone}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load compiles the schema on first use and returns ErrSchemaUnavailable
// (wrapped with the cause) when it cannot be compiled.
func (v *Validator) Load() error {
	v.once.Do(v.load)
	return v.loadErr
}

func (v *Validator) load() {
	if strings.TrimSpace(v.path) == "" {
		v.fail(errors.New("no schema path configured"))
		return
	}

	strictErr := v.loadStrict()
	if strictErr == nil {
		v.mode = ModeStrict
		v.logger.Debug("schema compiled", zap.String("path", v.path), zap.String("mode", string(v.mode)))
		return
	}

	s, err := xsd.ParseFromFile(v.path)
	if err != nil {
		v.fail(fmt.Errorf("strict: %v; permissive: %w", strictErr, err))
		return
	}
	v.schema = s
	v.mode = ModePermissive
	v.diagnostic = fmt.Sprintf("schema %s compiled permissively (strict load failed: %v)", v.path, strictErr)
	v.logger.Warn("schema compiled permissively", zap.String("path", v.path), zap.Error(strictErr))
}

// loadStrict refuses DTDs and remote imports before compiling.
func (v *Validator) loadStrict() error {
	if err := checkReferences(v.path, map[string]bool{}); err != nil {
		return err
	}

	data, err := os.ReadFile(v.path)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	doc, err := libxml2.Parse(data, parser.XMLParseNoNet)
	if err != nil {
		return fmt.Errorf("failed to parse schema document: %w", err)
	}
	doc.Free()

	s, err := xsd.ParseFromFile(v.path)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	v.schema = s
	return nil
}

// checkReferences scans path and, recursively, every local schema it
// references for DTDs and remote locations. Relative locations resolve
// against the referencing file.
func checkReferences(path string, seen map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}
	if seen[abs] {
		return nil
	}
	seen[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	name := filepath.Base(abs)
	if doctypePattern.Match(data) {
		return fmt.Errorf("schema %s declares a DTD", name)
	}

	for _, m := range locationPattern.FindAllSubmatch(data, -1) {
		loc := string(m[1])
		lower := strings.ToLower(loc)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "ftp://") {
			return fmt.Errorf("schema %s imports remote location %s", name, loc)
		}
		local := strings.TrimPrefix(loc, "file://")
		if !filepath.IsAbs(local) {
			local = filepath.Join(filepath.Dir(abs), local)
		}
		if err := checkReferences(local, seen); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) fail(err error) {
	v.loadErr = fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	v.diagnostic = fmt.Sprintf("XSD-validatie overgeslagen: %v", err)
	v.logger.Warn("schema unavailable, validation skipped", zap.String("path", v.path), zap.Error(err))
}

// Available reports whether a compiled schema is in use.
func (v *Validator) Available() bool {
	return v.Load() == nil
}

// Mode returns how the schema was compiled.
func (v *Validator) Mode() Mode {
	_ = v.Load()
	return v.mode
}

// Diagnostic returns the load diagnostic, empty when the strict load
// succeeded.
func (v *Validator) Diagnostic() string {
	_ = v.Load()
	return v.diagnostic
}

// Validate checks one serialized message body. When no schema is available
// the body is reported valid; callers surface Diagnostic instead.
func (v *Validator) Validate(body []byte) (bool, []string) {
	if v.Load() != nil {
		return true, nil
	}

	doc, err := libxml2.Parse(bytes.TrimSpace(body), parser.XMLParseNoNet)
	if err != nil {
		return false, []string{fmt.Sprintf("XML kon niet worden gelezen: %v", err)}
	}
	defer doc.Free()

	if err := v.schema.Validate(doc); err != nil {
		var sve xsd.SchemaValidationError
		if errors.As(err, &sve) {
			msgs := make([]string, 0, len(sve.Errors()))
			for _, e := range sve.Errors() {
				msgs = append(msgs, strings.TrimSpace(e.Error()))
			}
			return false, msgs
		}
		return false, []string{strings.TrimSpace(err.Error())}
	}
	return true, nil
}

// Close releases the compiled schema.
func (v *Validator) Close() {
	if v.schema != nil {
		v.schema.Free()
		v.schema = nil
	}
}
