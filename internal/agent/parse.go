package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	errNoBraces     = eris.New("reply has no {...} span")
	errTrailingData = eris.New("unexpected data after JSON object")
)

// ParseReply decodes the JSON object spanning from the first '{' to the
// last '}' of text. Numbers are kept as json.Number.
func ParseReply(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, newTurnError(KindNoJSONFound, "parse", errNoBraces)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, newTurnError(KindJSONParseError, "parse", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, newTurnError(KindJSONParseError, "parse", errTrailingData)
	}
	return out, nil
}
