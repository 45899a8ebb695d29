package toolargs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xiaot623/librarydesk/internal/domain"
)

// Interpretation failures.
var (
	ErrEmptySuggestion   = errors.New("empty model response")
	ErrMalformedResponse = errors.New("model response is not a JSON object")
	ErrMissingTool       = errors.New("model response does not name a tool")
)

// ParseSuggestion extracts {tool, args} from a model reply. It accepts
// code-fenced and pseudo-JSON replies, and the OpenAI function-call shape
// {"function": {"name": ..., "arguments": ...}}.
func ParseSuggestion(text string) (RawCall, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return RawCall{}, ErrEmptySuggestion
	}
	parsed, ok := parseLoose(extractObject(text))
	if !ok {
		return RawCall{}, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(text, 200))
	}
	obj, ok := resolve(parsed).(map[string]interface{})
	if !ok {
		return RawCall{}, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(text, 200))
	}

	if fn, _, found := lookup(obj, "function", "function_call"); found {
		if inner, ok := resolve(fn).(map[string]interface{}); ok {
			obj = inner
		}
	}

	nameVal, _, found := lookup(obj, "tool", "name", "tool_name")
	name, _ := toText(nameVal)
	if !found || name == "" {
		return RawCall{}, ErrMissingTool
	}

	rc := RawCall{Tool: domain.ToolName(strings.ToLower(name))}
	if args, _, found := lookup(obj, "args", "arguments", "parameters", "params", "input"); found {
		data, err := json.Marshal(args)
		if err != nil {
			return RawCall{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		rc.Args = data
	}
	return rc, nil
}

// extractObject trims prose around the outermost {...} of a reply.
func extractObject(text string) string {
	text = stripFences(text)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
