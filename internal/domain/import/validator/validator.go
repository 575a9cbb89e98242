// Package validator checks uploaded file metadata against the upload policy
// before any parsing is attempted.
package validator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/pkg/capability"
)

// DefaultMaxBytes is the default upload ceiling (5MB)
const DefaultMaxBytes int64 = 5242880

// DefaultExtensions are the accepted upload extensions
var DefaultExtensions = []string{".csv", ".xlsx", ".xls"}

// Reason identifies why a file was rejected
type Reason string

const (
	ReasonUnsupportedFormat  Reason = "UnsupportedFormat"
	ReasonCapabilityNotReady Reason = "CapabilityNotReady"
	ReasonFileTooLarge       Reason = "FileTooLarge"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrCapabilityNotReady = errors.New("spreadsheet support is not ready yet")
	ErrFileTooLarge       = errors.New("file too large")
)

// RejectionError describes a rejected file
type RejectionError struct {
	Reason    Reason
	FileName  string
	Size      int64
	Limit     int64
	Accepted  []string
	Extension string
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case ReasonUnsupportedFormat:
		return fmt.Sprintf("unsupported file format %q: accepted formats are %s",
			e.Extension, strings.Join(e.Accepted, ", "))
	case ReasonCapabilityNotReady:
		return "spreadsheet support is still loading, please try again in a moment"
	case ReasonFileTooLarge:
		return fmt.Sprintf("File size exceeds %s limit. Current size: %s",
			strings.ReplaceAll(FormatSize(e.Limit), " ", ""), FormatSize(e.Size))
	default:
		return "file rejected"
	}
}

// Is matches the sentinel error for the rejection reason
func (e *RejectionError) Is(target error) bool {
	switch e.Reason {
	case ReasonUnsupportedFormat:
		return target == ErrUnsupportedFormat
	case ReasonCapabilityNotReady:
		return target == ErrCapabilityNotReady
	case ReasonFileTooLarge:
		return target == ErrFileTooLarge
	}
	return false
}

// Transient reports whether retrying the same file later may succeed
func (e *RejectionError) Transient() bool {
	return e.Reason == ReasonCapabilityNotReady
}

// Policy holds the configured upload limits
type Policy struct {
	AcceptedExtensions []string
	MaxBytes           int64
}

// DefaultPolicy returns the policy with the default extensions and ceiling
func DefaultPolicy() Policy {
	return Policy{
		AcceptedExtensions: append([]string(nil), DefaultExtensions...),
		MaxBytes:           DefaultMaxBytes,
	}
}

func (p Policy) accepts(ext string) bool {
	for _, a := range p.AcceptedExtensions {
		a = strings.ToLower(strings.TrimSpace(a))
		if !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if a == ext {
			return true
		}
	}
	return false
}

// Validate decides whether file may be decoded. Rules are checked in order:
// extension, spreadsheet capability, size. It has no side effects.
func Validate(file model.UploadedFile, spreadsheetReady bool, policy Policy) (model.Format, error) {
	ext := file.Extension()
	format := model.FormatForExtension(ext)

	if ext == "" || format == model.FormatUnknown || !policy.accepts(ext) {
		return model.FormatUnknown, &RejectionError{
			Reason:    ReasonUnsupportedFormat,
			FileName:  file.Name,
			Extension: ext,
			Accepted:  policy.AcceptedExtensions,
		}
	}

	if format.RequiresSpreadsheet() && !spreadsheetReady {
		return model.FormatUnknown, &RejectionError{
			Reason:    ReasonCapabilityNotReady,
			FileName:  file.Name,
			Extension: ext,
		}
	}

	limit := policy.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if file.SizeBytes > limit {
		return model.FormatUnknown, &RejectionError{
			Reason:    ReasonFileTooLarge,
			FileName:  file.Name,
			Extension: ext,
			Size:      file.SizeBytes,
			Limit:     limit,
		}
	}

	return format, nil
}

// Validator applies a policy using the live spreadsheet capability state
type Validator struct {
	policy      Policy
	spreadsheet *capability.Gate
}

// New creates a validator. A nil gate means spreadsheets are never accepted.
func New(policy Policy, spreadsheet *capability.Gate) *Validator {
	return &Validator{policy: policy, spreadsheet: spreadsheet}
}

// Policy returns the configured policy
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate checks file against the policy and current capability state
func (v *Validator) Validate(file model.UploadedFile) (model.Format, error) {
	ready := v.spreadsheet != nil && v.spreadsheet.Ready()
	return Validate(file, ready, v.policy)
}

// FormatSize renders a byte count for humans ("0 Bytes", "1.5 KB", "5 MB")
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	const k = 1024.0
	sizes := []string{"Bytes", "KB", "MB", "GB"}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	value := math.Round(float64(bytes)/math.Pow(k, float64(i))*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizes[i]
}
