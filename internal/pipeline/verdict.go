package pipeline

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/study-extract/internal/model"
)

// ErrVerdictShape is returned for a reply that is JSON but not a verdict.
var ErrVerdictShape = eris.New("reply is not a validation verdict")

const verdictSchemaJSON = `{
  "type": "object",
  "properties": {
    "status": {"type": ["string", "null"]},
    "discrepancies": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "field": {"type": ["string", "number", "null"]},
          "severity": {"type": ["string", "null"]},
          "description": {"type": ["string", "number", "null"]}
        }
      }
    }
  }
}`

var verdictSchema = jsonschema.MustCompileString("verdict.json", verdictSchemaJSON)

type verdict struct {
	Status        string              `json:"status"`
	Discrepancies []model.Discrepancy `json:"discrepancies"`
}

// DecodeVerdict checks a parsed reply against the verdict shape and builds
// the reconciled outcome for sourceID.
func DecodeVerdict(sourceID string, reply map[string]any) (model.ValidationOutcome, error) {
	if err := verdictSchema.Validate(reply); err != nil {
		return model.ValidationOutcome{}, eris.Wrap(errors.Join(ErrVerdictShape, err), "pipeline: check verdict")
	}
	raw, err := json.Marshal(reply)
	if err != nil {
		return model.ValidationOutcome{}, eris.Wrap(err, "pipeline: encode verdict")
	}
	var v verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.ValidationOutcome{}, eris.Wrap(errors.Join(ErrVerdictShape, err), "pipeline: decode verdict")
	}
	return model.ValidationOutcome{
		SourceID:      sourceID,
		Status:        Reconcile(declaredStatus(v.Status), v.Discrepancies),
		Discrepancies: v.Discrepancies,
	}, nil
}

// declaredStatus reads the agent's own verdict. Anything but PASS, including
// a missing status, is FAIL.
func declaredStatus(s string) model.ValidationStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(model.StatusPass)) {
		return model.StatusPass
	}
	return model.StatusFail
}

// Reconcile derives the final status from the discrepancy severities. A
// CRITICAL or unspecified severity fails the record and MINOR-only
// discrepancies pass it. With no discrepancies the declared status stands.
func Reconcile(declared model.ValidationStatus, discrepancies []model.Discrepancy) model.ValidationStatus {
	if len(discrepancies) == 0 {
		if declared == model.StatusPass {
			return model.StatusPass
		}
		return model.StatusFail
	}
	for _, d := range discrepancies {
		if d.Severity.Normalize() == model.SeverityCritical {
			return model.StatusFail
		}
	}
	return model.StatusPass
}
