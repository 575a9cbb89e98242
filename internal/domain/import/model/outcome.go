package model

import (
	"encoding/json"
	"strconv"
)

// Category is the terminal classification of one submission
type Category string

const (
	CategoryProcessing     Category = "Processing"
	CategoryFullSuccess    Category = "FullSuccess"
	CategoryPartialSuccess Category = "PartialSuccess"
	CategoryTotalFailure   Category = "TotalFailure"
	CategoryTransportError Category = "TransportError"
)

// Variant is the presentation severity of a category
func (c Category) Variant() string {
	switch c {
	case CategoryProcessing:
		return "info"
	case CategoryFullSuccess:
		return "success"
	case CategoryPartialSuccess:
		return "warning"
	default:
		return "error"
	}
}

// RowRef is a row number that may be unknown. Unknown rows render as "N/A"
// so that row 0 is never shown as if it meant something.
type RowRef struct {
	Number int
	Known  bool
}

// NotApplicable is the unknown row reference
var NotApplicable = RowRef{}

// RowNumber returns a known row reference
func RowNumber(n int) RowRef {
	return RowRef{Number: n, Known: true}
}

func (r RowRef) String() string {
	if !r.Known {
		return "N/A"
	}
	return strconv.Itoa(r.Number)
}

// MarshalJSON writes a number for known rows and "N/A" otherwise
func (r RowRef) MarshalJSON() ([]byte, error) {
	if !r.Known {
		return json.Marshal("N/A")
	}
	return json.Marshal(r.Number)
}

// UnmarshalJSON is the inverse of MarshalJSON
func (r *RowRef) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = RowNumber(n)
		return nil
	}
	*r = NotApplicable
	return nil
}

// ErrorEntry is a displayable per-row error
type ErrorEntry struct {
	Row     RowRef `json:"row"`
	Message string `json:"message"`
	RowData string `json:"rowData,omitempty"`
}

// Outcome is derived per submission and replaces the previous one in full
type Outcome struct {
	Category  Category     `json:"category"`
	Title     string       `json:"title"`
	Summary   string       `json:"summary"`
	Mode      Mode         `json:"mode"`
	Async     bool         `json:"isAsync"`
	TotalRows int          `json:"totalRows"`
	Created   int          `json:"createdCount"`
	Updated   int          `json:"updatedCount"`
	Failed    int          `json:"failedCount"`
	Succeeded int          `json:"successCount"`
	Errors    []ErrorEntry `json:"errors"`
}

// HasErrors reports whether any error entry is present
func (o Outcome) HasErrors() bool {
	return len(o.Errors) > 0
}

// Success is the flag carried by the lifecycle notification
func (o Outcome) Success() bool {
	return o.Category == CategoryFullSuccess || o.Category == CategoryProcessing
}

// ErrorSectionLabel is the heading shown above the error list
func (o Outcome) ErrorSectionLabel() string {
	return "Errors (" + strconv.Itoa(o.Failed) + ")"
}
