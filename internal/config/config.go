// =============================================================================
// UWV Sickness Notification XML Generator - Configuration Module
// =============================================================================
//
// This module loads the application configuration. A single file drives the
// whole pipeline: where the schema lives, where output goes, the defaults
// used when a spreadsheet leaves a required message field empty, and the
// envelope header metadata.
//
// SUPPORTED FORMATS:
//   - YAML (config.yaml, config.yml)
//   - TOML (config.toml)
//
// LOADING:
//   read -> unmarshal -> applyMainConfigDefaults -> validateMainConfig
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// OutputDir is the root directory for generated XML files.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" toml:"output_dir" validate:"required"`

	// OutputDirs maps a message-type code to a subdirectory of OutputDir.
	// Codes without an entry are written to OutputDir itself.
	// Default: ZBM, VM -> "v0428"; OTP3 -> "UwvZwMelding_MQ_V0428"
	OutputDirs map[string]string `yaml:"output_dirs" toml:"output_dirs"`

	// DownloadsDir receives the zip archive built for each batch.
	// Default: "./output/downloads"
	DownloadsDir string `yaml:"downloads_dir" toml:"downloads_dir" validate:"required"`

	// DownloadsMaxAge is how long archives are kept before cleanup.
	// Parsed with time.ParseDuration. Default: "60m"
	DownloadsMaxAge string `yaml:"downloads_max_age" toml:"downloads_max_age"`

	// SchemaPath points at the message body XSD. Empty disables validation
	// with a diagnostic.
	SchemaPath string `yaml:"schema_path" toml:"schema_path"`

	// EventsFile is the JSON-lines log of saved files.
	// Default: "./output/xml_events.jsonl"
	EventsFile string `yaml:"events_file" toml:"events_file"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile adds a file sink to the logger when set.
	LogFile string `yaml:"log_file" toml:"log_file"`

	// LogLevel controls logging verbosity.
	// Valid values: "debug", "info", "warn", "error". Default: "info"
	LogLevel string `yaml:"log_level" toml:"log_level" validate:"oneof=debug info warn error"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// FilenameFormat names generated files.
	// Placeholders:
	//   {type}      - friendly message type (zbm, vm, digipoort)
	//   {key}       - "bulk" or the sanitized BSN plus row number
	//   {timestamp} - batch timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - a random UUID
	// Default: "{type}_{key}_{timestamp}.xml"
	FilenameFormat string `yaml:"filename_format" toml:"filename_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// DefaultSender is the upload selection used when none is given.
	// Default: "ZBM"
	DefaultSender string `yaml:"default_sender" toml:"default_sender" validate:"required"`

	// TesterName feeds the message reference number in the envelope header.
	// Default: "tester"
	TesterName string `yaml:"tester_name" toml:"tester_name"`

	// Workers is the number of rows processed concurrently. 1 is sequential.
	// Default: 1
	Workers int `yaml:"workers" toml:"workers" validate:"min=1,max=64"`

	// KnownMessageTypes lists codes that a record may carry itself without
	// being replaced by the upload default.
	// Default: [ZBM, VM, OTP3]
	KnownMessageTypes []string `yaml:"known_message_types" toml:"known_message_types" validate:"dive,required"`

	// EmitExtensionFields controls whether unrecognized spreadsheet columns
	// are appended to the message body. Default: true
	EmitExtensionFields *bool `yaml:"emit_extension_fields" toml:"emit_extension_fields"`

	// Header holds the envelope header metadata.
	Header HeaderSettings `yaml:"header" toml:"header"`

	// Defaults holds fallbacks for required message leaves.
	Defaults BodyDefaults `yaml:"defaults" toml:"defaults"`

	// CSVSettings applies to .csv uploads.
	CSVSettings CSVSettings `yaml:"csv_settings" toml:"csv_settings"`

	// Zip bounds the batch archive.
	Zip ZipSettings `yaml:"zip" toml:"zip"`

	// TransformationRules are applied to canonical fields after
	// normalization and before validation.
	TransformationRules []TransformationRule `yaml:"transformation_rules" toml:"transformation_rules" validate:"dive"`
}

// =============================================================================
// ENVELOPE HEADER SETTINGS
// =============================================================================

// HeaderSettings configures the envelope header.
type HeaderSettings struct {
	// SourceApplication is used as Bron/ApplicatieNaam when the upload has no
	// sender label. Default: "Digipoort"
	SourceApplication string `yaml:"source_application" toml:"source_application"`

	// DestinationApplication is Bestemming/ApplicatieNaam. Default: "UZS"
	DestinationApplication string `yaml:"destination_application" toml:"destination_application"`

	// ExternalReference fills RefnrGegevensUitwisselingsExtern when set.
	ExternalReference string `yaml:"external_reference" toml:"external_reference"`

	// TestMessage is IndTestbericht. Default: "2"
	TestMessage string `yaml:"test_message" toml:"test_message" validate:"omitempty,oneof=1 2"`

	// MessageName is BerichtType/BerichtNaam. Default: "UwvZwMeldingInternBody"
	MessageName string `yaml:"message_name" toml:"message_name"`

	// VersionMajor, VersionMinor and BuildNr describe the message version.
	// Defaults: "04", "28", "01"
	VersionMajor string `yaml:"version_major" toml:"version_major"`
	VersionMinor string `yaml:"version_minor" toml:"version_minor"`
	BuildNr      string `yaml:"build_nr" toml:"build_nr"`

	// CommunicationType and CommunicationElement. Default: "Melding"
	CommunicationType    string `yaml:"communication_type" toml:"communication_type"`
	CommunicationElement string `yaml:"communication_element" toml:"communication_element"`

	// FixedTimestamp enables deterministic mode when set (RFC 3339).
	FixedTimestamp string `yaml:"fixed_timestamp" toml:"fixed_timestamp"`
}

// =============================================================================
// MESSAGE BODY DEFAULTS
// =============================================================================

// BodyDefaults are used for required leaves a record leaves empty.
type BodyDefaults struct {
	IndAlleenControleUzs string `yaml:"ind_alleen_controle_uzs" toml:"ind_alleen_controle_uzs"`
	CdRolKetenpartij     string `yaml:"cd_rol_ketenpartij" toml:"cd_rol_ketenpartij"`
	CdSrtIndiener        string `yaml:"cd_srt_indiener" toml:"cd_srt_indiener"`
	NaamSoftwarePakket   string `yaml:"naam_software_pakket" toml:"naam_software_pakket"`
	VersieSoftwarePakket string `yaml:"versie_software_pakket" toml:"versie_software_pakket"`
	VolgNr               string `yaml:"volg_nr" toml:"volg_nr"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV uploads.
type CSVSettings struct {
	// Delimiter separates fields. Accepts a character or a name
	// ("tab", "pipe", "semicolon"). Default: ","
	Delimiter string `yaml:"delimiter" toml:"delimiter"`

	// HeaderRow is the 1-based row holding the column headers. Default: 1
	HeaderRow int `yaml:"header_row" toml:"header_row" validate:"min=1"`

	// DataStartRow is the first data row. Default: HeaderRow + 1
	DataStartRow int `yaml:"data_start_row" toml:"data_start_row"`

	// Encoding of the file: "UTF-8", "ISO-8859-1", "ISO-8859-15",
	// "Windows-1252". Default: "UTF-8"
	Encoding string `yaml:"encoding" toml:"encoding" validate:"oneof=UTF-8 ISO-8859-1 ISO-8859-15 Windows-1252"`
}

// =============================================================================
// ZIP SETTINGS
// =============================================================================

// ZipSettings bounds the batch download archive.
type ZipSettings struct {
	MaxFiles      int   `yaml:"max_files" toml:"max_files" validate:"min=1"`
	MaxTotalBytes int64 `yaml:"max_total_bytes" toml:"max_total_bytes" validate:"min=1"`
	MaxFileBytes  int64 `yaml:"max_file_bytes" toml:"max_file_bytes" validate:"min=1"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines transformations applied to one canonical field.
type TransformationRule struct {
	// Field is the canonical field name (e.g. "IBAN", "Personeelsnr").
	Field string `yaml:"field" toml:"field" validate:"required"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions" toml:"actions" validate:"min=1,dive"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "trim", "uppercase", "lowercase", "remove_spaces"
	//   - "prepend_string", "append_string"
	//   - "pad_zeros_to_length", "ensure_length", "truncate"
	//   - "replace", "regex_replace"
	//   - "extract_digits"
	//   - "lookup", "lookup_with_default"
	//   - "if_empty_use_default", "if_empty_use_field"
	Type string `yaml:"type" toml:"type" validate:"required"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value" toml:"value"`

	// Find is used for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty" toml:"find"`

	// LookupTable is used for "lookup" and "lookup_with_default".
	LookupTable map[string]string `yaml:"lookup_table,omitempty" toml:"lookup_table"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the main configuration from a YAML or TOML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. The extension selects
//     the decoder (.toml for TOML, anything else YAML).
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - ErrConfigNotFound (wrapped) if the file does not exist.
//   - An error if the file cannot be parsed or fails validation.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".toml":
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputDirs == nil {
		config.OutputDirs = map[string]string{
			"ZBM":  "v0428",
			"VM":   "v0428",
			"OTP3": "UwvZwMelding_MQ_V0428",
		}
	}
	if config.DownloadsDir == "" {
		config.DownloadsDir = filepath.Join(config.OutputDir, "downloads")
	}
	if config.DownloadsMaxAge == "" {
		config.DownloadsMaxAge = "60m"
	}
	if config.EventsFile == "" {
		config.EventsFile = filepath.Join(config.OutputDir, "xml_events.jsonl")
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.FilenameFormat == "" {
		config.FilenameFormat = "{type}_{key}_{timestamp}.xml"
	}
	if config.DefaultSender == "" {
		config.DefaultSender = "ZBM"
	}
	if config.TesterName == "" {
		config.TesterName = "tester"
	}
	if config.Workers == 0 {
		config.Workers = 1
	}
	if len(config.KnownMessageTypes) == 0 {
		config.KnownMessageTypes = []string{"ZBM", "VM", "OTP3"}
	}
	if config.EmitExtensionFields == nil {
		emit := true
		config.EmitExtensionFields = &emit
	}

	h := &config.Header
	if h.SourceApplication == "" {
		h.SourceApplication = "Digipoort"
	}
	if h.DestinationApplication == "" {
		h.DestinationApplication = "UZS"
	}
	if h.TestMessage == "" {
		h.TestMessage = "2"
	}
	if h.MessageName == "" {
		h.MessageName = "UwvZwMeldingInternBody"
	}
	if h.VersionMajor == "" {
		h.VersionMajor = "04"
	}
	if h.VersionMinor == "" {
		h.VersionMinor = "28"
	}
	if h.BuildNr == "" {
		h.BuildNr = "01"
	}
	if h.CommunicationType == "" {
		h.CommunicationType = "Melding"
	}
	if h.CommunicationElement == "" {
		h.CommunicationElement = "Melding"
	}

	d := &config.Defaults
	if d.IndAlleenControleUzs == "" {
		d.IndAlleenControleUzs = "2"
	}
	if d.CdRolKetenpartij == "" {
		d.CdRolKetenpartij = "01"
	}
	if d.CdSrtIndiener == "" {
		d.CdSrtIndiener = "WG"
	}
	if d.NaamSoftwarePakket == "" {
		d.NaamSoftwarePakket = "Generated"
	}
	if d.VersieSoftwarePakket == "" {
		d.VersieSoftwarePakket = "1.0"
	}
	if d.VolgNr == "" {
		d.VolgNr = "1"
	}

	c := &config.CSVSettings
	if c.Delimiter == "" {
		c.Delimiter = ","
	}
	if c.HeaderRow == 0 {
		c.HeaderRow = 1
	}
	if c.DataStartRow == 0 {
		c.DataStartRow = c.HeaderRow + 1
	}
	if c.Encoding == "" {
		c.Encoding = "UTF-8"
	}

	z := &config.Zip
	if z.MaxFiles == 0 {
		z.MaxFiles = 50
	}
	if z.MaxTotalBytes == 0 {
		z.MaxTotalBytes = 50 << 20
	}
	if z.MaxFileBytes == 0 {
		z.MaxFileBytes = 10 << 20
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if err := structValidator.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if _, err := time.ParseDuration(config.DownloadsMaxAge); err != nil {
		return fmt.Errorf("downloads_max_age: %w", err)
	}
	if config.CSVSettings.DataStartRow <= config.CSVSettings.HeaderRow {
		return fmt.Errorf("csv_settings.data_start_row (%d) must be after header_row (%d)",
			config.CSVSettings.DataStartRow, config.CSVSettings.HeaderRow)
	}
	if config.Header.FixedTimestamp != "" {
		if _, err := time.Parse(time.RFC3339, config.Header.FixedTimestamp); err != nil {
			return fmt.Errorf("header.fixed_timestamp: %w", err)
		}
	}

	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// MaxDownloadAge returns DownloadsMaxAge as a duration.
func (c *MainConfig) MaxDownloadAge() time.Duration {
	d, err := time.ParseDuration(c.DownloadsMaxAge)
	if err != nil {
		return time.Hour
	}
	return d
}

// ExtensionFieldsEnabled reports whether extension fields are emitted.
func (c *MainConfig) ExtensionFieldsEnabled() bool {
	return c.EmitExtensionFields == nil || *c.EmitExtensionFields
}

// FixedTime returns the deterministic header timestamp, if configured.
func (c *MainConfig) FixedTime() (time.Time, bool) {
	if c.Header.FixedTimestamp == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, c.Header.FixedTimestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// OutputDirFor returns the directory for a message-type code.
func (c *MainConfig) OutputDirFor(messageType string) string {
	if sub, ok := c.OutputDirs[strings.ToUpper(messageType)]; ok && sub != "" {
		return filepath.Join(c.OutputDir, sub)
	}
	return c.OutputDir
}

// IsKnownMessageType reports whether code is in KnownMessageTypes.
func (c *MainConfig) IsKnownMessageType(code string) bool {
	for _, k := range c.KnownMessageTypes {
		if strings.EqualFold(k, code) {
			return true
		}
	}
	return false
}
