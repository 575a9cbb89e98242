// Package parser decodes uploaded CSV, XLSX and XLS files into a model.Grid.
// Both strategies implement Decoder and are selected by the validated format.
package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/sniffer"
	"github.com/FACorreiaa/schedule-importer/pkg/capability"
)

// Reason classifies a decode failure
type Reason string

const (
	ReasonCorruptWorkbook    Reason = "CorruptWorkbook"
	ReasonMalformedText      Reason = "MalformedText"
	ReasonCapabilityNotReady Reason = "CapabilityNotReady"
	ReasonUnsupportedFormat  Reason = "UnsupportedFormat"
)

var (
	ErrCorruptWorkbook    = errors.New("corrupt workbook")
	ErrMalformedText      = errors.New("malformed delimited text")
	ErrCapabilityNotReady = errors.New("spreadsheet support is not ready")
	ErrUnsupportedFormat  = errors.New("no decoder for format")
)

// DecodeError represents a failure to turn file bytes into a grid
type DecodeError struct {
	Reason Reason
	Detail string
	Row    int // 1-based line or sheet row where decoding stopped, when known
	Err    error
}

func (e *DecodeError) Error() string {
	msg := string(e.Reason)
	if e.Row > 0 {
		msg = fmt.Sprintf("%s at row %d", msg, e.Row)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error for the decode reason
func (e *DecodeError) Is(target error) bool {
	switch e.Reason {
	case ReasonCorruptWorkbook:
		return target == ErrCorruptWorkbook
	case ReasonMalformedText:
		return target == ErrMalformedText
	case ReasonCapabilityNotReady:
		return target == ErrCapabilityNotReady
	case ReasonUnsupportedFormat:
		return target == ErrUnsupportedFormat
	}
	return false
}

// Decoder turns raw file bytes into a grid
type Decoder interface {
	Decode(ctx context.Context, data []byte) (model.Grid, error)
}

// Config configures the decoders
type Config struct {
	Delimiter       rune // CSV delimiter (default: comma)
	DetectDelimiter bool // Sniff ; tab | when set
}

// DefaultConfig returns a config that reads plain comma-separated text
func DefaultConfig() Config {
	return Config{
		Delimiter:       sniffer.DefaultDelimiter,
		DetectDelimiter: false,
	}
}

// Registry selects the decoder for a validated format
type Registry struct {
	csv    *CSVDecoder
	excel  *ExcelDecoder
	legacy *LegacyExcelDecoder
}

// NewRegistry creates both strategies. The spreadsheet gate guards the
// workbook decoder.
func NewRegistry(config Config, spreadsheet *capability.Gate) *Registry {
	return &Registry{
		csv:    NewCSVDecoder(config),
		excel:  NewExcelDecoder(spreadsheet),
		legacy: NewLegacyExcelDecoder(spreadsheet),
	}
}

// ForFormat returns the decoder for format
func (r *Registry) ForFormat(format model.Format) (Decoder, error) {
	switch format {
	case model.FormatCSV:
		return r.csv, nil
	case model.FormatExcel:
		return r.excel, nil
	case model.FormatLegacyExcel:
		return r.legacy, nil
	default:
		return nil, &DecodeError{Reason: ReasonUnsupportedFormat, Detail: format.String()}
	}
}

// Decode dispatches data to the decoder for format
func (r *Registry) Decode(ctx context.Context, format model.Format, data []byte) (model.Grid, error) {
	dec, err := r.ForFormat(format)
	if err != nil {
		return model.Grid{}, err
	}
	return dec.Decode(ctx, data)
}

// CSVDecoder reads RFC4180 delimited text. Every cell is text.
type CSVDecoder struct {
	config Config
}

// NewCSVDecoder creates a delimited-text decoder
func NewCSVDecoder(config Config) *CSVDecoder {
	if config.Delimiter == 0 {
		config.Delimiter = sniffer.DefaultDelimiter
	}
	return &CSVDecoder{config: config}
}

// Decode reads all records. Empty input yields an empty grid, interior
// blank lines become empty rows and trailing blank records are dropped.
func (d *CSVDecoder) Decode(ctx context.Context, data []byte) (model.Grid, error) {
	data = sniffer.Normalize(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return model.Grid{}, nil
	}

	delimiter := d.config.Delimiter
	if d.config.DetectDelimiter {
		delimiter = sniffer.DetectDelimiter(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // Variable field count

	// encoding/csv skips empty lines; they are put back as empty records so
	// row numbers keep matching the source file
	var records [][]string
	line, offset := 1, int64(0)
	for {
		if err := ctx.Err(); err != nil {
			return model.Grid{}, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			row := len(records) + 1
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				row = parseErr.StartLine
			}
			return model.Grid{}, &DecodeError{
				Reason: ReasonMalformedText,
				Detail: err.Error(),
				Row:    row,
				Err:    err,
			}
		}

		start, _ := reader.FieldPos(0)
		for ; line < start; line++ {
			records = append(records, nil)
		}
		records = append(records, record)

		end := reader.InputOffset()
		line += bytes.Count(data[offset:end], []byte{'\n'})
		offset = end
	}

	return model.TextGrid(records).TrimTrailingBlank(), nil
}
