package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// stripCodeFences removes ```json ... ``` markers some models wrap
// around JSON payloads.
func stripCodeFences(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

// decodeJSON unmarshals a model-produced JSON document into T. On a
// decode failure the document is run through jsonrepair and decoding
// retried once.
func decodeJSON[T any](raw string) (*T, error) {
	raw = stripCodeFences(raw)

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v (repair: %v)", ErrInvalidResult, err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
		}
	}
	return &out, nil
}
