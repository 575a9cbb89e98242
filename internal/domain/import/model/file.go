package model

import (
	"path/filepath"
	"strings"
)

// Format is the decoding strategy a file is routed to
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatExcel       // Office Open XML workbook (.xlsx)
	FormatLegacyExcel // BIFF workbook (.xls)
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "excel"
	case FormatLegacyExcel:
		return "excel-legacy"
	default:
		return "unknown"
	}
}

// RequiresSpreadsheet reports whether decoding needs the spreadsheet capability
func (f Format) RequiresSpreadsheet() bool {
	return f == FormatExcel || f == FormatLegacyExcel
}

// FormatForExtension maps a lower-case extension (".csv") to its format
func FormatForExtension(ext string) Format {
	switch strings.ToLower(ext) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatExcel
	case ".xls":
		return FormatLegacyExcel
	default:
		return FormatUnknown
	}
}

// UploadedFile is the metadata of a selected file. It is immutable once
// selected; a new selection replaces it.
type UploadedFile struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"sizeBytes"`
	MimeHint  Format `json:"-"`
}

// NewUploadedFile builds file metadata with the format hint derived from its name
func NewUploadedFile(name string, size int64) UploadedFile {
	return UploadedFile{
		Name:      name,
		SizeBytes: size,
		MimeHint:  FormatForExtension(filepath.Ext(name)),
	}
}

// Extension returns the lower-cased extension including the dot
func (f UploadedFile) Extension() string {
	return strings.ToLower(filepath.Ext(f.Name))
}
