// =============================================================================
// UWV Sickness Notification XML Generator - Converter Module
// =============================================================================
//
// This module is the batch orchestrator. It takes the rows of one upload
// through the whole pipeline and reports the fate of every row.
//
// CONVERSION PIPELINE (per row):
//   1. Normalize the raw row into a canonical record       -> NORMALIZED
//   2. Apply the configured transformation rules
//   3. Skip rows without any identity-bearing value        -> SKIPPED_BLANK
//   4. Pre-flight validation of required fields            -> VALIDATED / REJECTED
//   5. Resolve the message type and build the body         -> BUILT
//   6. Validate the body against the XSD (when requested)  -> REJECTED on failure
//
// OUTPUT (per batch):
//   - More than one built body: one bulk envelope, key "bulk"
//   - Exactly one built body: one single-message envelope, key BSN + row
//   - A file name already issued by this Converter gets a _2, _3... suffix
//   - Saving marks the built rows SAVED or SAVE_FAILED
//
// FAILURE SEMANTICS:
//   No row failure aborts the batch. Every failure becomes a RowError on
//   that row; a panic inside a row is recovered into one.
//
// CONCURRENCY:
//   With workers > 1 rows are processed through an errgroup. Results land
//   in an index-addressed slice, so the order of rows and errors does not
//   depend on scheduling. Saving is sequential.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/uwv-zw-xml/internal/config"
	"github.com/ginjaninja78/uwv-zw-xml/internal/normalizer"
	"github.com/ginjaninja78/uwv-zw-xml/internal/types"
	"github.com/ginjaninja78/uwv-zw-xml/internal/validation"
	"github.com/ginjaninja78/uwv-zw-xml/internal/xmlwriter"
	"github.com/ginjaninja78/uwv-zw-xml/pkg/utils"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// SchemaValidator validates one serialized message body.
type SchemaValidator interface {
	Validate(body []byte) (bool, []string)
	Diagnostic() string
}

// Store persists one generated file.
type Store interface {
	Save(messageType, filename string, data []byte) (string, error)
}

// =============================================================================
// ROW STATE
// =============================================================================

// RowState is the position of a row in the pipeline.
type RowState string

const (
	RowPending      RowState = "PENDING"
	RowNormalized   RowState = "NORMALIZED"
	RowValidated    RowState = "VALIDATED"
	RowSkippedBlank RowState = "SKIPPED_BLANK"
	RowRejected     RowState = "REJECTED"
	RowBuilt        RowState = "BUILT"
	RowSaved        RowState = "SAVED"
	RowSaveFailed   RowState = "SAVE_FAILED"
)

// Stages reported in RowError.
const (
	StageValidation = "validatie"
	StageSchema     = "schema"
	StageBuild      = "opbouw"
	StageSave       = "opslaan"
)

// RowError is the failure of one row.
type RowError struct {
	// Row is the 1-based sheet row.
	Row int

	// Stage is where the row failed.
	Stage string

	// Messages are joined with "; ".
	Messages []string
}

// Error renders "Regel N: msg1; msg2".
func (e *RowError) Error() string {
	return fmt.Sprintf("Regel %d: %s", e.Row, strings.Join(e.Messages, "; "))
}

// RowOutcome is the fate of one row.
type RowOutcome struct {
	Row         int
	State       RowState
	MessageType string

	// Err is set for REJECTED and SAVE_FAILED rows.
	Err *RowError

	// Warnings are pre-flight findings that did not reject the row.
	Warnings []string

	// File is the output file name the row's body went into.
	File string

	message *xmlwriter.Message
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Output describes one generated file.
type Output struct {
	Filename    string
	Path        string
	MessageType string
	Bodies      int
	Size        int
	Data        []byte
}

// BatchResult is the outcome of one upload.
type BatchResult struct {
	// Generated lists the generated file names.
	Generated []string

	// Errors holds one "Regel N: ..." entry per failed row, in row order.
	Errors []string

	// Diagnostic explains why schema validation did not (fully) happen.
	Diagnostic string

	Rows         []RowOutcome
	Outputs      []Output
	FormulaCount int

	// MessageType is the upload-level message type.
	MessageType string
}

// Count returns the number of rows in state s.
func (r *BatchResult) Count(s RowState) int {
	n := 0
	for _, row := range r.Rows {
		if row.State == s {
			n++
		}
	}
	return n
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Params are the upload-time inputs.
type Params struct {
	// Sender is the upload selection: "Digipoort", "ZBM" or "VM". Empty
	// uses the configured default sender.
	Sender string

	// Validate enables XSD validation of every body.
	Validate bool

	// TesterName feeds the envelope message reference. Empty uses the
	// configured tester name.
	TesterName string

	// FixedTime enables deterministic output.
	FixedTime *time.Time
}

// Converter runs uploads through the pipeline.
type Converter struct {
	cfg         *config.MainConfig
	logger      *zap.Logger
	schema      SchemaValidator
	store       Store
	now         func() time.Time
	transformer *Transformer
	validator   *validation.Validator
	bodies      *xmlwriter.BodyBuilder
	envelopes   *xmlwriter.EnvelopeBuilder

	namesMu sync.Mutex
	issued  map[string]bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSchemaValidator enables XSD validation through v.
func WithSchemaValidator(v SchemaValidator) Option {
	return func(c *Converter) { c.schema = v }
}

// WithStore sets where generated files are saved. Without a store nothing
// is written and built rows stay BUILT.
func WithStore(s Store) Option {
	return func(c *Converter) { c.store = s }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		if now != nil {
			c.now = now
		}
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Converter.
//
// PARAMETERS:
//   - cfg: The main configuration.
//   - opts: Logger, schema validator, store and clock.
//
// RETURNS:
//   - The Converter.
//   - An error if the transformation rules are invalid.
func New(cfg *config.MainConfig, opts ...Option) (*Converter, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	transformer, err := NewTransformer(cfg.TransformationRules)
	if err != nil {
		return nil, fmt.Errorf("failed to load transformation rules: %w", err)
	}

	c := &Converter{
		cfg:         cfg,
		logger:      zap.NewNop(),
		now:         time.Now,
		transformer: transformer,
		validator:   validation.NewValidator(),
		bodies:      xmlwriter.NewBodyBuilder(cfg.Defaults, cfg.ExtensionFieldsEnabled()),
		issued:      map[string]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.envelopes = xmlwriter.NewEnvelopeBuilder(cfg.Header, xmlwriter.WithClock(c.now))
	return c, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run processes every record of sheet.
//
// PARAMETERS:
//   - ctx: Cancels scheduling of further rows.
//   - sheet: The upload as read by a reader.
//   - params: The upload-time inputs.
//
// RETURNS:
//   - The BatchResult, covering every row.
//   - An error only if sheet is nil or ctx was cancelled.
func (c *Converter) Run(ctx context.Context, sheet *types.Sheet, params Params) (*BatchResult, error) {
	if sheet == nil {
		return nil, fmt.Errorf("failed to run batch: no sheet")
	}
	if params.TesterName == "" {
		params.TesterName = c.cfg.TesterName
	}
	if params.FixedTime == nil {
		if ts, ok := c.cfg.FixedTime(); ok {
			params.FixedTime = &ts
		}
	}

	result := &BatchResult{
		FormulaCount: sheet.FormulaCount,
		MessageType:  c.uploadType(params.Sender),
	}

	validate := params.Validate && c.schema != nil
	if params.Validate {
		if c.schema == nil {
			result.Diagnostic = "XSD-validatie overgeslagen: geen schema geconfigureerd"
		} else {
			result.Diagnostic = c.schema.Diagnostic()
		}
		if result.Diagnostic != "" {
			c.logger.Warn("schema validation degraded", zap.String("diagnostic", result.Diagnostic))
		}
	}
	if sheet.FormulaCount > 0 {
		c.logger.Info("formula cells sanitized", zap.Int("count", sheet.FormulaCount))
	}

	norm := normalizer.New(normalizer.WithDate1904(sheet.Date1904))
	outcomes := make([]RowOutcome, len(sheet.Records))

	process := func(i int) {
		outcomes[i] = c.processRow(norm, sheet.Records[i], i, params, validate)
	}

	if c.cfg.Workers > 1 && len(sheet.Records) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Workers)
		for i := range sheet.Records {
			if gctx.Err() != nil {
				break
			}
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				process(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("batch cancelled: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch cancelled: %w", err)
		}
	} else {
		for i := range sheet.Records {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("batch cancelled: %w", err)
			}
			process(i)
		}
	}

	c.writeOutput(outcomes, params, result)

	result.Rows = outcomes
	for _, o := range outcomes {
		if o.Err != nil {
			result.Errors = append(result.Errors, o.Err.Error())
		}
	}

	c.logger.Info("batch processed",
		zap.Int("rows", len(outcomes)),
		zap.Int("generated", len(result.Generated)),
		zap.Int("errors", len(result.Errors)),
		zap.Int("skipped", result.Count(RowSkippedBlank)),
	)
	return result, nil
}

// processRow takes one row from PENDING to BUILT, SKIPPED_BLANK or
// REJECTED.
func (c *Converter) processRow(norm *normalizer.Normalizer, raw types.RawRecord, index int, params Params, validate bool) (out RowOutcome) {
	row := raw.Row
	if row <= 0 {
		row = index + 2
	}
	out = RowOutcome{Row: row, State: RowPending}

	defer func() {
		if r := recover(); r != nil {
			out.State = RowRejected
			out.message = nil
			out.Err = &RowError{Row: row, Stage: StageBuild, Messages: []string{fmt.Sprintf("onverwachte fout: %v", r)}}
			c.logger.Error("row panicked", zap.Int("row", row), zap.Any("panic", r))
		}
	}()

	rec := norm.Normalize(raw)
	rec.Row = row
	out.State = RowNormalized

	c.transformer.Apply(rec)

	if rec.IsBlank() {
		out.State = RowSkippedBlank
		c.logger.Debug("blank row skipped", zap.Int("row", row))
		return out
	}

	vr := c.validator.ValidateRecord(rec)
	for _, w := range vr.Warnings() {
		out.Warnings = append(out.Warnings, w.Message)
		c.logger.Warn("row warning", zap.Int("row", row), zap.String("field", string(w.Field)), zap.String("message", w.Message))
	}
	if !vr.IsValid {
		return c.reject(out, StageValidation, vr.Messages())
	}
	out.State = RowValidated

	out.MessageType = c.resolveType(rec, params.Sender)
	msg, err := c.bodies.Build(rec, out.MessageType)
	if err != nil {
		return c.reject(out, StageBuild, []string{fmt.Sprintf("fout bij opbouwen bericht: %v", err)})
	}

	if validate {
		data, err := xmlwriter.BodyBytes(msg.Element)
		if err != nil {
			return c.reject(out, StageBuild, []string{fmt.Sprintf("fout bij opbouwen bericht: %v", err)})
		}
		if ok, errs := c.schema.Validate(data); !ok {
			return c.reject(out, StageSchema, []string{"XSD-validatie mislukt: " + strings.Join(errs, "; ")})
		}
	}

	out.message = msg
	out.State = RowBuilt
	return out
}

func (c *Converter) reject(out RowOutcome, stage string, msgs []string) RowOutcome {
	out.State = RowRejected
	out.Err = &RowError{Row: out.Row, Stage: stage, Messages: msgs}
	c.logger.Warn("row rejected", zap.Int("row", out.Row), zap.String("stage", stage), zap.Strings("messages", msgs))
	return out
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// uploadType is the message type implied by the upload selection, falling
// back to the configured default sender and then ZBM.
func (c *Converter) uploadType(sender string) string {
	if t := xmlwriter.SenderType(sender); t != "" {
		return t
	}
	if t := xmlwriter.SenderType(c.cfg.DefaultSender); t != "" {
		return t
	}
	return xmlwriter.TypeZBM
}

// resolveType applies the override rule: a Digipoort selection forces
// OTP3; otherwise a known code on the record is kept and anything else
// gets the upload type.
func (c *Converter) resolveType(rec *normalizer.Record, sender string) string {
	if xmlwriter.SenderType(sender) == xmlwriter.TypeOTP3 {
		return xmlwriter.TypeOTP3
	}
	if code, explicit := xmlwriter.ResolveMessageType(rec); explicit && c.cfg.IsKnownMessageType(code) {
		return strings.ToUpper(code)
	}
	return c.uploadType(sender)
}

// =============================================================================
// OUTPUT
// =============================================================================

var keyInvalid = regexp.MustCompile(`[^0-9A-Za-z]`)

// writeOutput wraps the built bodies into one envelope and saves it.
func (c *Converter) writeOutput(outcomes []RowOutcome, params Params, result *BatchResult) {
	var built []int
	for i := range outcomes {
		if outcomes[i].State == RowBuilt {
			built = append(built, i)
		}
	}
	if len(built) == 0 {
		return
	}

	messages := make([]*xmlwriter.Message, 0, len(built))
	for _, i := range built {
		messages = append(messages, outcomes[i].message)
	}

	messageType := outcomes[built[0]].MessageType
	for _, i := range built[1:] {
		if outcomes[i].MessageType != messageType {
			messageType = result.MessageType
			break
		}
	}

	var key string
	if len(built) > 1 {
		key = "bulk"
	} else {
		first := outcomes[built[0]]
		bsn := keyInvalid.ReplaceAllString(first.message.BSN, "")
		if bsn == "" {
			bsn = "onbekend"
		}
		key = bsn + "_r" + strconv.Itoa(first.Row)
	}

	batchTime := c.now()
	if params.FixedTime != nil {
		batchTime = *params.FixedTime
	}
	filename := c.reserveName(utils.GenerateOutputFileName(c.cfg.FilenameFormat, map[string]string{
		"type": xmlwriter.FriendlyType(messageType),
		"key":  key,
	}, batchTime, params.FixedTime != nil))

	fail := func(state RowState, stage, msg string) {
		for _, i := range built {
			outcomes[i].State = state
			outcomes[i].Err = &RowError{Row: outcomes[i].Row, Stage: stage, Messages: []string{msg}}
		}
		c.logger.Error("output failed", zap.String("file", filename), zap.String("error", msg))
	}

	env, err := c.envelopes.Build(messages, xmlwriter.EnvelopeParams{
		Sender:     params.Sender,
		TesterName: params.TesterName,
		FixedTime:  params.FixedTime,
		Seed:       filename,
	})
	if err != nil {
		fail(RowRejected, StageBuild, fmt.Sprintf("fout bij opbouwen envelop: %v", err))
		return
	}
	data, err := env.Bytes()
	if err != nil {
		fail(RowRejected, StageBuild, fmt.Sprintf("fout bij opbouwen envelop: %v", err))
		return
	}

	out := Output{
		Filename:    filename,
		MessageType: messageType,
		Bodies:      env.Bodies,
		Size:        len(data),
		Data:        data,
	}

	if c.store != nil {
		path, err := c.store.Save(messageType, filename, data)
		if err != nil {
			fail(RowSaveFailed, StageSave, fmt.Sprintf("fout bij opslaan: %v", err))
			return
		}
		out.Path = path
		if name := filepath.Base(path); name != filename {
			c.logger.Warn("output renamed", zap.String("file", filename), zap.String("saved_as", name))
			filename = name
			out.Filename = name
		}
		c.logger.Info("output saved", zap.String("file", filename), zap.String("path", path), zap.Int("bodies", env.Bodies))
	}

	for _, i := range built {
		if c.store != nil {
			outcomes[i].State = RowSaved
		}
		outcomes[i].File = filename
	}
	result.Generated = append(result.Generated, filename)
	result.Outputs = append(result.Outputs, out)
}

// reserveName returns name, or name with a numeric suffix when this
// Converter already issued it. Uploads sharing a batch second or a fixed
// timestamp therefore never overwrite each other.
func (c *Converter) reserveName(name string) string {
	c.namesMu.Lock()
	defer c.namesMu.Unlock()

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for n := 2; c.issued[candidate]; n++ {
		candidate = base + "_" + strconv.Itoa(n) + ext
	}
	c.issued[candidate] = true
	return candidate
}
