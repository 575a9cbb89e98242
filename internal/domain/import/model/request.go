package model

import "encoding/json"

// Mode distinguishes a global import from one scoped to a parent record
type Mode string

const (
	ModeGlobal Mode = "global"
	ModeScoped Mode = "scoped"
)

// ImportRequest is the only artifact sent to the remote import service
type ImportRequest struct {
	CanonicalPayload string  `json:"csvContent"`
	AssociationKey   *string `json:"projectId"`
}

// NewImportRequest builds a request; an empty key means a global import
func NewImportRequest(payload, associationKey string) ImportRequest {
	req := ImportRequest{CanonicalPayload: payload}
	if associationKey != "" {
		key := associationKey
		req.AssociationKey = &key
	}
	return req
}

// Mode returns the import mode implied by the association key
func (r ImportRequest) Mode() Mode {
	if r.AssociationKey == nil || *r.AssociationKey == "" {
		return ModeGlobal
	}
	return ModeScoped
}

// ImportResponse is the remote service's reply. SuccessCount and IsSuccess
// are only sent for scoped imports.
type ImportResponse struct {
	TotalRows    int             `json:"totalRows"`
	CreatedCount int             `json:"createdCount"`
	UpdatedCount int             `json:"updatedCount"`
	FailedCount  int             `json:"failedCount"`
	SuccessCount *int            `json:"successCount,omitempty"`
	IsAsync      bool            `json:"isAsync"`
	IsSuccess    *bool           `json:"isSuccess,omitempty"`
	Message      string          `json:"message,omitempty"`
	Errors       []ResponseError `json:"errors"`
}

// Processed returns created + updated
func (r ImportResponse) Processed() int {
	return r.CreatedCount + r.UpdatedCount
}

// ResponseError is a per-row error reported by the remote service
type ResponseError struct {
	RowNumber *int   `json:"rowNumber,omitempty"`
	Message   string `json:"message"`
	RowData   string `json:"rowData,omitempty"`
}

const unknownRowError = "Unknown error"

// UnmarshalJSON accepts both "message" and "errorMessage"; the scoped
// endpoint uses the latter.
func (e *ResponseError) UnmarshalJSON(data []byte) error {
	var raw struct {
		RowNumber    *int   `json:"rowNumber"`
		Message      string `json:"message"`
		ErrorMessage string `json:"errorMessage"`
		RowData      string `json:"rowData"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.RowNumber = raw.RowNumber
	e.RowData = raw.RowData
	switch {
	case raw.Message != "":
		e.Message = raw.Message
	case raw.ErrorMessage != "":
		e.Message = raw.ErrorMessage
	default:
		e.Message = unknownRowError
	}
	return nil
}
