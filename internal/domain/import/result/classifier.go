// Package result turns a remote import response, or the failure to get one,
// into the Outcome shown to the user.
package result

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
)

// Titles per category
const (
	TitleProcessing    = "Processing"
	TitleSuccess       = "Success"
	TitlePartial       = "Partial Success"
	TitleScopedPartial = "Warning"
	TitleFailed        = "Import Failed"
	TitleError         = "Error"
)

const (
	summaryProcessing    = "Large file is being processed in background. You will receive an email when complete."
	summaryGlobalFailure = "No records were imported. Please check the errors below."
	summaryScopedFailure = "Import failed. Please check the error details below."

	fallbackGlobal   = "An unknown error occurred"
	fallbackScoped   = "An unexpected error occurred"
	fallbackRowError = "Unknown error"
)

// StructuredError is implemented by transport errors that carry a decoded
// backend error body.
type StructuredError interface {
	error
	BackendMessage() string
	PageErrors() []string
}

// Classify maps a structurally successful response to an outcome. The first
// matching rule wins: async, no failures, some processed with failures,
// everything else.
func Classify(resp model.ImportResponse, mode model.Mode) model.Outcome {
	processed := resp.Processed()

	out := model.Outcome{
		Mode:      mode,
		Async:     resp.IsAsync,
		TotalRows: resp.TotalRows,
		Created:   resp.CreatedCount,
		Updated:   resp.UpdatedCount,
		Failed:    resp.FailedCount,
		Succeeded: processed,
		Errors:    convertErrors(resp.Errors),
	}
	if mode == model.ModeScoped && resp.SuccessCount != nil {
		out.Succeeded = *resp.SuccessCount
	}

	switch {
	case resp.IsAsync:
		out.Category = model.CategoryProcessing
	case resp.FailedCount == 0:
		out.Category = model.CategoryFullSuccess
	case processed > 0 && resp.FailedCount > 0:
		out.Category = model.CategoryPartialSuccess
	default:
		out.Category = model.CategoryTotalFailure
	}

	out.Title = title(out.Category, mode)
	out.Summary = summary(out)
	return out
}

func title(c model.Category, mode model.Mode) string {
	switch c {
	case model.CategoryProcessing:
		return TitleProcessing
	case model.CategoryFullSuccess:
		return TitleSuccess
	case model.CategoryPartialSuccess:
		if mode == model.ModeScoped {
			return TitleScopedPartial
		}
		return TitlePartial
	case model.CategoryTotalFailure:
		if mode == model.ModeScoped {
			return TitleError
		}
		return TitleFailed
	default:
		return TitleError
	}
}

func summary(o model.Outcome) string {
	processed := o.Created + o.Updated

	if o.Mode == model.ModeScoped {
		switch o.Category {
		case model.CategoryProcessing:
			return summaryProcessing
		case model.CategoryFullSuccess:
			return fmt.Sprintf("Import completed successfully! Created: %d, Updated: %d", o.Created, o.Updated)
		case model.CategoryPartialSuccess:
			return fmt.Sprintf("Import completed with errors. %d succeeded, %d failed", o.Succeeded, o.Failed)
		default:
			return summaryScopedFailure
		}
	}

	switch o.Category {
	case model.CategoryProcessing:
		return summaryProcessing
	case model.CategoryFullSuccess:
		return fmt.Sprintf("Import completed successfully! %d records processed.", processed)
	case model.CategoryPartialSuccess:
		return fmt.Sprintf("%d records processed, %d failed.", processed, o.Failed)
	default:
		return summaryGlobalFailure
	}
}

// convertErrors carries response errors through unchanged. A missing or
// zero row number is not applicable.
func convertErrors(in []model.ResponseError) []model.ErrorEntry {
	out := make([]model.ErrorEntry, 0, len(in))
	for _, e := range in {
		row := model.NotApplicable
		if e.RowNumber != nil && *e.RowNumber != 0 {
			row = model.RowNumber(*e.RowNumber)
		}
		msg := e.Message
		if msg == "" {
			msg = fallbackRowError
		}
		out = append(out, model.ErrorEntry{Row: row, Message: msg, RowData: e.RowData})
	}
	return out
}

// TransportFailure builds the outcome of a submission that never produced a
// response. Scoped imports also get one synthesized row-0 error entry.
func TransportFailure(err error, mode model.Mode) model.Outcome {
	out := model.Outcome{
		Category: model.CategoryTransportError,
		Title:    TitleError,
		Mode:     mode,
		Errors:   []model.ErrorEntry{},
	}

	if mode == model.ModeScoped {
		out.Summary = firstNonEmpty(backendMessage(err), firstPageError(err), errorText(err), fallbackScoped)
		out.Failed = 1
		out.Errors = []model.ErrorEntry{{
			Row:     model.RowNumber(0),
			Message: firstNonEmpty(backendMessage(err), firstPageError(err), errorText(err), fallbackRowError),
		}}
		return out
	}

	out.Summary = firstNonEmpty(backendMessage(err), firstPageError(err), errorText(err), fallbackGlobal)
	return out
}

func backendMessage(err error) string {
	var se StructuredError
	if errors.As(err, &se) {
		return strings.TrimSpace(se.BackendMessage())
	}
	return ""
}

func firstPageError(err error) string {
	var se StructuredError
	if errors.As(err, &se) {
		for _, msg := range se.PageErrors() {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// SuccessMessage lists created and updated counts, for example
// "✓ 3 billing schedules created | ✓ 1 billing schedule updated".
// It is empty when nothing was written.
func SuccessMessage(o model.Outcome) string {
	var parts []string
	if o.Created > 0 {
		parts = append(parts, fmt.Sprintf("✓ %d %s created", o.Created, pluralize(o.Created)))
	}
	if o.Updated > 0 {
		parts = append(parts, fmt.Sprintf("✓ %d %s updated", o.Updated, pluralize(o.Updated)))
	}
	return strings.Join(parts, " | ")
}

func pluralize(n int) string {
	if n == 1 {
		return "billing schedule"
	}
	return "billing schedules"
}
