package tools

import (
	"context"
	"fmt"

	"github.com/agentcore/runtime/stream"
)

// ThoughtToolName is the reserved name of the think_aloud pseudo-tool.
const ThoughtToolName = "think_aloud"

// Verbosity enumerates the optional think_aloud verbosity levels.
type Verbosity string

const (
	VerbosityBrief    Verbosity = "brief"
	VerbosityNormal   Verbosity = "normal"
	VerbosityDetailed Verbosity = "detailed"
)

// ThoughtTool converts think_aloud tool calls into thought-stream events
// instead of executing anything (§4.F). It has dispatch precedence over
// regular providers so a model cannot shadow it with a same-named tool.
type ThoughtTool struct {
	emitter       *stream.Emitter
	allowedTypes  map[stream.ThoughtType]struct{}
}

// NewThoughtTool constructs a ThoughtTool restricted to allowedTypes. An
// empty allowedTypes accepts every ThoughtType constant.
func NewThoughtTool(emitter *stream.Emitter, allowedTypes []stream.ThoughtType) *ThoughtTool {
	allowed := make(map[stream.ThoughtType]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}
	return &ThoughtTool{emitter: emitter, allowedTypes: allowed}
}

func (t *ThoughtTool) GetTools() []Definition {
	return []Definition{{
		Name:        ThoughtToolName,
		Description: "Record a reasoning step as an out-of-band thought, without affecting the conversation.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"thought_id":   map[string]any{"type": "string"},
				"thought":      map[string]any{"type": "string"},
				"thought_type": map[string]any{"type": "string"},
				"confidence":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"verbosity":    map[string]any{"type": "string", "enum": []string{"brief", "normal", "detailed"}},
				"alternatives": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"related_to":   map[string]any{"type": "string"},
			},
			"required": []string{"thought", "thought_type"},
		},
	}}
}

func (t *ThoughtTool) CanHandle(name string) bool {
	return name == ThoughtToolName
}

func (t *ThoughtTool) Execute(_ context.Context, call Call, execCtx ExecutionContext) Result {
	if call.Name != ThoughtToolName {
		return NotFoundResult(call)
	}

	thoughtType := stream.ThoughtType(stringArg(call.Arguments, "thought_type"))
	if len(t.allowedTypes) > 0 {
		if _, ok := t.allowedTypes[thoughtType]; !ok {
			return Result{
				ToolCallID: call.ID,
				Success:    false,
				Error:      fmt.Sprintf("thought_type %q is not in the allowed set for this turn", thoughtType),
			}
		}
	}

	payload := stream.ThoughtStreamPayload{
		ThoughtType: thoughtType,
		Content:     stringArg(call.Arguments, "thought"),
		ID:          stringArg(call.Arguments, "thought_id"),
		RelatedTo:   stringArg(call.Arguments, "related_to"),
		Verbosity:   stringArg(call.Arguments, "verbosity"),
	}
	if c, ok := call.Arguments["confidence"].(float64); ok {
		payload.Confidence = &c
	}
	if alts, ok := call.Arguments["alternatives"].([]any); ok {
		for _, a := range alts {
			if s, ok := a.(string); ok {
				payload.Alternatives = append(payload.Alternatives, s)
			}
		}
	}

	if t.emitter != nil {
		t.emitter.Emit(stream.NewThoughtStream(execCtx.TaskID, execCtx.ContextID, payload))
	}

	return Result{ToolCallID: call.ID, Success: true, Content: "thought recorded"}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

var _ Provider = (*ThoughtTool)(nil)
