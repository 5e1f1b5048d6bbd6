package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind classifies a sync failure.
type Kind string

const (
	// KindRecoverableSkip marks an access path that did not resolve. Never fatal.
	KindRecoverableSkip Kind = "recoverable_skip"
	// KindFieldFallback is raised by a transform asking for the next path.
	KindFieldFallback Kind = "field_fallback"
	// KindParentUnresolved marks a variant whose parent has no target id.
	KindParentUnresolved Kind = "parent_unresolved"
	// KindPolicyExcluded marks a market, client or error-ceiling rejection.
	KindPolicyExcluded Kind = "policy_excluded"
	// KindSchemaMissing aborts the batch.
	KindSchemaMissing Kind = "schema_missing"
	// KindSourceFetchEmpty aborts a diagnostic single-record run.
	KindSourceFetchEmpty Kind = "source_fetch_empty"
	// KindRecordFailed is any other per-record failure.
	KindRecordFailed Kind = "record_failed"
)

type SyncError struct {
	Kind      Kind
	ForeignID string
	Field     string
	Message   string
	cause     error
}

func New(kind Kind, msg string) *SyncError {
	return &SyncError{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *SyncError {
	return &SyncError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap turns err into a SyncError of the given kind. Existing SyncErrors keep
// their kind.
func Wrap(kind Kind, err error) *SyncError {
	if err == nil {
		return nil
	}

	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}

	return &SyncError{Kind: kind, Message: err.Error(), cause: err}
}

func (e *SyncError) Error() string {
	path := []string{}
	if e.ForeignID != "" {
		path = append(path, fmt.Sprintf("record '%s'", e.ForeignID))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *SyncError) Unwrap() error {
	return e.cause
}

func (e *SyncError) AddField(field string) *SyncError {
	e.Field = field
	return e
}

func (e *SyncError) AddForeignID(id string) *SyncError {
	e.ForeignID = id
	return e
}

func (e *SyncError) ToHTTPError() *httperror.HTTPError {
	status := http.StatusUnprocessableEntity
	switch e.Kind {
	case KindSchemaMissing:
		status = http.StatusInternalServerError
	case KindSourceFetchEmpty:
		status = http.StatusNotFound
	}

	return httperror.NewHTTPError(status, e.Error()).
		AddMetaValue("kind", string(e.Kind)).
		AddMetaValue("foreign_id", e.ForeignID).
		AddMetaValue("field", e.Field)
}

// KindOf returns the kind of err, or "" when err is not a SyncError.
func KindOf(err error) Kind {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind
	}
	return ""
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindSchemaMissing, KindSourceFetchEmpty:
		return true
	}
	return false
}

func IsSyncError(err error) bool {
	var syncErr *SyncError
	return errors.As(err, &syncErr)
}
