package agent

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a turn produced nothing usable.
type FailureKind string

const (
	KindAffordanceNotFound FailureKind = "affordance_not_found"
	KindUploadFailed       FailureKind = "upload_failed"
	KindNoJSONFound        FailureKind = "no_json_found"
	KindJSONParseError     FailureKind = "json_parse_error"
	KindInteractionTimeout FailureKind = "interaction_timeout"
	KindDocumentInvalid    FailureKind = "document_invalid"
	KindSessionFailed      FailureKind = "session_failed"
)

// TurnError is the typed failure of one turn.
type TurnError struct {
	Kind FailureKind
	Step string
	Err  error
}

func (e *TurnError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("agent: %s at %s", e.Kind, e.Step)
	}
	return fmt.Sprintf("agent: %s at %s: %v", e.Kind, e.Step, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

func newTurnError(kind FailureKind, step string, err error) *TurnError {
	return &TurnError{Kind: kind, Step: step, Err: err}
}

// KindOf returns the failure kind of err, or "" if err is not a TurnError.
func KindOf(err error) FailureKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsKind reports whether err is a TurnError of kind k.
func IsKind(err error, k FailureKind) bool {
	return err != nil && KindOf(err) == k
}

// IsMalformedReply reports whether the agent answered but not with a JSON
// object.
func IsMalformedReply(err error) bool {
	k := KindOf(err)
	return k == KindNoJSONFound || k == KindJSONParseError
}
