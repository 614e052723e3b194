package config

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"ledgermerge/internal/matcher"
	"ledgermerge/internal/parsers"
	"ledgermerge/internal/reconciler"
	"ledgermerge/internal/reporter"
	"ledgermerge/internal/synthesis"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// EnvPrefix is prepended to every environment variable read by the CLI
const EnvPrefix = "LEDGERMERGE"

// Settings is the full CLI configuration, read from flags, the config file
// and LEDGERMERGE_ environment variables.
type Settings struct {
	Delimiter string         `mapstructure:"delimiter" validate:"required,len=1"`
	Encoding  string         `mapstructure:"encoding" validate:"oneof=utf-8 utf8 windows-1252 cp1252 latin1 iso-8859-1"`
	Codec     CodecSettings  `mapstructure:"codec"`
	Import    ImportSettings `mapstructure:"import"`

	Matching string `mapstructure:"matching" validate:"oneof=pairwise multiset existence any"`
	Backup   bool   `mapstructure:"backup"`

	Synthesis SynthesisSettings `mapstructure:"synthesis"`
	Report    ReportSettings    `mapstructure:"report"`
	Log       LogSettings       `mapstructure:"log"`

	// MetricsFile receives the merge metrics in the Prometheus text format
	MetricsFile string `mapstructure:"metrics_file" validate:"omitempty,endswith=.prom"`
}

// CodecSettings configures how dates and amounts are written in ledger files
type CodecSettings struct {
	DateDelimiter     string `mapstructure:"date_delimiter" validate:"required"`
	SnapshotDelimiter string `mapstructure:"snapshot_delimiter" validate:"required"`
	DecimalSeparator  string `mapstructure:"decimal_separator" validate:"required,len=1"`
}

// ImportSettings describes the bank export snapshot layout
type ImportSettings struct {
	BalancePrefix string `mapstructure:"balance_prefix"`
	HeaderRows    int    `mapstructure:"header_rows" validate:"gte=1"`
	Encoding      string `mapstructure:"encoding" validate:"oneof=utf-8 utf8 windows-1252 cp1252 latin1 iso-8859-1"`
}

// SynthesisSettings configures report series
type SynthesisSettings struct {
	Smoothing   int  `mapstructure:"smoothing" validate:"gte=0"`
	Step        int  `mapstructure:"step" validate:"gte=1"`
	ApproxTerms bool `mapstructure:"approx_terms"`
}

// ReportSettings configures report output
type ReportSettings struct {
	Format   string `mapstructure:"format" validate:"oneof=markdown md json csv"`
	Currency string `mapstructure:"currency" validate:"len=3,uppercase"`
	Render   bool   `mapstructure:"render"`
	Style    string `mapstructure:"style" validate:"required"`
	WordWrap int    `mapstructure:"word_wrap" validate:"gte=20"`
}

// LogSettings configures logging
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"`
}

// Configure prepares v for the CLI: defaults, LEDGERMERGE_ environment
// variables with nested keys joined by underscores.
func Configure(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// SetDefaults registers the default value of every setting
func SetDefaults(v *viper.Viper) {
	parse := parsers.DefaultParseConfig()
	report := reporter.DefaultReportConfig()
	opts := synthesis.DefaultOptions()

	v.SetDefault("delimiter", string(parse.Delimiter))
	v.SetDefault("encoding", string(parse.Encoding))
	v.SetDefault("codec.date_delimiter", parse.Codec.DateDelimiter)
	v.SetDefault("codec.snapshot_delimiter", parse.Codec.SnapshotDelimiter)
	v.SetDefault("codec.decimal_separator", parse.Codec.DecimalSeparator)
	v.SetDefault("import.balance_prefix", parse.Import.BalancePrefix)
	v.SetDefault("import.header_rows", parse.Import.HeaderRows)
	v.SetDefault("import.encoding", string(parse.Import.Encoding))

	v.SetDefault("matching", matcher.Pairwise.String())
	v.SetDefault("backup", true)

	v.SetDefault("synthesis.smoothing", opts.Smoothing)
	v.SetDefault("synthesis.step", opts.StepDays)
	v.SetDefault("synthesis.approx_terms", opts.ApproxTerms)

	v.SetDefault("report.format", string(report.Format))
	v.SetDefault("report.currency", report.Currency)
	v.SetDefault("report.render", report.Render)
	v.SetDefault("report.style", report.Style)
	v.SetDefault("report.word_wrap", report.WordWrap)

	v.SetDefault("log.level", string(logger.WarnLevel))
	v.SetDefault("log.format", string(logger.TextFormat))
	v.SetDefault("log.file", "")
	v.SetDefault("metrics_file", "")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load unmarshals and validates the settings held by v
func Load(v *viper.Viper) (*Settings, error) {
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "settings", nil, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks the settings. The first failing field is reported as a
// configuration error naming the setting key.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "settings", nil, err)
	}

	fe := validationErrs[0]
	key := settingKey(fe)
	return errors.ConfigurationError(errors.CodeInvalidConfig, key, fe.Value(), err).
		WithSuggestion(fmt.Sprintf("%s %s", key, formatValidationError(fe))).
		WithContext("violations", len(validationErrs))
}

// settingKey turns a validator namespace such as Settings.report.format into
// the viper key report.format
func settingKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// formatValidationError converts a validator.FieldError to a human-readable message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uppercase":
		return "must be upper case"
	case "endswith":
		return fmt.Sprintf("must end with %s", fe.Param())
	default:
		return fmt.Sprintf("failed the '%s' check", fe.Tag())
	}
}

// ParseConfig builds the parser configuration
func (s *Settings) ParseConfig() (*parsers.ParseConfig, error) {
	config := parsers.DefaultParseConfig()

	delimiter, _ := utf8.DecodeRuneInString(s.Delimiter)
	config.Delimiter = delimiter

	encoding, err := parsers.ParseEncoding(s.Encoding)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "encoding", s.Encoding, err)
	}
	config.Encoding = encoding

	config.Codec = parsers.Codec{
		DateDelimiter:     s.Codec.DateDelimiter,
		SnapshotDelimiter: s.Codec.SnapshotDelimiter,
		DecimalSeparator:  s.Codec.DecimalSeparator,
	}

	importEncoding, err := parsers.ParseEncoding(s.Import.Encoding)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "import.encoding", s.Import.Encoding, err)
	}
	config.Import = parsers.ImportLayout{
		BalancePrefix: s.Import.BalancePrefix,
		HeaderRows:    s.Import.HeaderRows,
		Encoding:      importEncoding,
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parse", nil, err)
	}
	return config, nil
}

// MatchingConfig builds the matching configuration
func (s *Settings) MatchingConfig() (*matcher.MatchingConfig, error) {
	mode, err := matcher.ParseMode(s.Matching)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", s.Matching, err)
	}
	config := matcher.DefaultMatchingConfig()
	config.Mode = mode
	return config, nil
}

// SynthesisOptions builds the synthesis options
func (s *Settings) SynthesisOptions() synthesis.Options {
	return synthesis.Options{
		Smoothing:   s.Synthesis.Smoothing,
		StepDays:    s.Synthesis.Step,
		ApproxTerms: s.Synthesis.ApproxTerms,
	}
}

// ReconcilerConfig builds the service configuration
func (s *Settings) ReconcilerConfig() (*reconciler.Config, error) {
	parse, err := s.ParseConfig()
	if err != nil {
		return nil, err
	}
	matching, err := s.MatchingConfig()
	if err != nil {
		return nil, err
	}

	config := reconciler.DefaultConfig()
	config.Parse = parse
	config.Matching = matching
	config.Synthesis = s.SynthesisOptions()
	config.Backup = s.Backup
	return config, nil
}

// ReportConfig builds the report configuration
func (s *Settings) ReportConfig() (*reporter.ReportConfig, error) {
	format, err := reporter.ParseFormat(s.Report.Format)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report.format", s.Report.Format, err)
	}

	config := reporter.DefaultReportConfig()
	config.Format = format
	config.Currency = s.Report.Currency
	config.Render = s.Report.Render
	config.Style = s.Report.Style
	config.WordWrap = s.Report.WordWrap

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", nil, err)
	}
	return config, nil
}

// LoggerConfig builds the logger configuration. verbose forces debug level.
func (s *Settings) LoggerConfig(verbose bool) *logger.Config {
	config := logger.DefaultConfig()
	config.Level = logger.Level(s.Log.Level)
	config.Format = logger.Format(s.Log.Format)
	if s.Log.File != "" {
		config.Output = logger.FileOutput
		config.File = s.Log.File
	}
	if verbose {
		config.Level = logger.DebugLevel
	}
	return config
}
