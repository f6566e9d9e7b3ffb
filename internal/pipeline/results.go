package pipeline

import (
	"encoding/json"
	"errors"
)

// ToJSONResult serializes a single Result to indented JSON.
func ToJSONResult(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONResults serializes several results to indented JSON. Failed
// entries appear as null.
func ToJSONResults(results []*Result) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
