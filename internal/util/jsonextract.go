package util

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Result is the outcome of a best-effort extraction. Reason is set when OK is false.
type Result[T any] struct {
	Value  T
	OK     bool
	Reason string
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, OK: true}
}

func Fail[T any](reason string) Result[T] {
	return Result[T]{Reason: reason}
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// ExtractJSONArray finds the outermost [...] span in free-form model output
// (fences, prose and all) and decodes it into []T.
func ExtractJSONArray[T any](raw string) Result[[]T] {
	cleaned := stripCodeFence(raw)
	match := jsonArrayPattern.FindString(cleaned)
	if match == "" {
		return Fail[[]T]("no JSON array in response")
	}

	var out []T
	if err := json.Unmarshal([]byte(match), &out); err != nil {
		return Fail[[]T]("decode JSON array: " + err.Error())
	}
	return Ok(out)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
