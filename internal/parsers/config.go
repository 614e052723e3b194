package parsers

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Encoding names the character set of delimited text files
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1252 Encoding = "windows-1252"
)

// ParseEncoding parses an encoding name, accepting common aliases
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "windows-1252", "cp1252", "latin1", "iso-8859-1":
		return EncodingWindows1252, nil
	default:
		return "", fmt.Errorf("unsupported encoding '%s': must be utf-8 or windows-1252", s)
	}
}

// ImportLayout describes the bank export snapshot: a balance row, some
// header rows, then transactions newest first.
type ImportLayout struct {
	// BalancePrefix precedes the snapshot date in the first row's second cell
	BalancePrefix string `json:"balance_prefix" mapstructure:"balance_prefix"`
	// HeaderRows is the number of rows before the first transaction
	HeaderRows int `json:"header_rows" mapstructure:"header_rows"`
	// Encoding applies when the import is a delimited text file
	Encoding Encoding `json:"encoding" mapstructure:"encoding"`
}

// DefaultImportLayout returns the layout of the bank's spreadsheet export
func DefaultImportLayout() ImportLayout {
	return ImportLayout{
		BalancePrefix: "Solde au ",
		HeaderRows:    3,
		Encoding:      EncodingWindows1252,
	}
}

// ParseConfig holds configuration for reading and writing ledger files
type ParseConfig struct {
	Delimiter        rune
	Encoding         Encoding
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	ValidateEncoding bool
	Codec            Codec
	Import           ImportLayout
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:        ';',
		Encoding:         EncodingUTF8,
		TrimLeadingSpace: false,
		SkipEmptyRows:    true,
		ValidateEncoding: true,
		Codec:            DefaultCodec(),
		Import:           DefaultImportLayout(),
	}
}

// Validate checks if the parse configuration is valid
func (pc *ParseConfig) Validate() error {
	if pc.Delimiter == 0 || pc.Delimiter == '\r' || pc.Delimiter == '\n' || pc.Delimiter == '"' || !utf8.ValidRune(pc.Delimiter) {
		return fmt.Errorf("invalid delimiter %q", pc.Delimiter)
	}
	if _, err := ParseEncoding(string(pc.Encoding)); err != nil {
		return err
	}
	if _, err := ParseEncoding(string(pc.Import.Encoding)); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if pc.Import.HeaderRows < 1 {
		return fmt.Errorf("import header rows must be at least 1, got %d", pc.Import.HeaderRows)
	}
	if err := pc.Codec.Validate(); err != nil {
		return fmt.Errorf("codec: %w", err)
	}
	return nil
}

// Clone returns a copy of the configuration
func (pc *ParseConfig) Clone() *ParseConfig {
	clone := *pc
	return &clone
}
