package telemetry

import (
	"encoding/json"
	"fmt"
)

// FailureKind names a SyncFailure variant on the wire.
type FailureKind string

const (
	FailureShutdown   FailureKind = "shutdownerror"
	FailureOther      FailureKind = "othererror"
	FailureUnexpected FailureKind = "unexpectederror"
	FailureAuth       FailureKind = "autherror"
	FailureHTTP       FailureKind = "httperror"
)

// SyncFailure describes why a sync or an engine failed. Which of Error,
// From and Code is meaningful depends on Kind.
type SyncFailure struct {
	Kind  FailureKind
	Error string
	From  string
	Code  int
}

func ShutdownFailure() SyncFailure { return SyncFailure{Kind: FailureShutdown} }

func OtherFailure(msg string) SyncFailure { return SyncFailure{Kind: FailureOther, Error: msg} }

func UnexpectedFailure(msg string) SyncFailure {
	return SyncFailure{Kind: FailureUnexpected, Error: msg}
}

func AuthFailure(from string) SyncFailure { return SyncFailure{Kind: FailureAuth, From: from} }

func HTTPFailure(code int) SyncFailure { return SyncFailure{Kind: FailureHTTP, Code: code} }

func (f SyncFailure) String() string {
	switch f.Kind {
	case FailureOther, FailureUnexpected:
		return fmt.Sprintf("%s: %s", f.Kind, f.Error)
	case FailureAuth:
		return fmt.Sprintf("%s from %s", f.Kind, f.From)
	case FailureHTTP:
		return fmt.Sprintf("%s %d", f.Kind, f.Code)
	default:
		return string(f.Kind)
	}
}

func (f SyncFailure) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FailureShutdown:
		return json.Marshal(struct {
			Name FailureKind `json:"name"`
		}{f.Kind})
	case FailureOther, FailureUnexpected:
		return json.Marshal(struct {
			Name  FailureKind `json:"name"`
			Error string      `json:"error"`
		}{f.Kind, f.Error})
	case FailureAuth:
		return json.Marshal(struct {
			Name FailureKind `json:"name"`
			From string      `json:"from"`
		}{f.Kind, f.From})
	case FailureHTTP:
		return json.Marshal(struct {
			Name FailureKind `json:"name"`
			Code int         `json:"code"`
		}{f.Kind, f.Code})
	default:
		return nil, fmt.Errorf("unknown sync failure kind %q", f.Kind)
	}
}
