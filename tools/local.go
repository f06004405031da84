package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Handler implements one local tool's execution.
type Handler func(ctx context.Context, args map[string]any, execCtx ExecutionContext) (string, error)

// LocalSpec describes one tool registered with LocalTools: its metadata,
// JSON Schema for arguments, and the Go function that executes it.
type LocalSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

type localTool struct {
	spec   LocalSpec
	schema *jsonschema.Schema
}

// LocalTools is a Provider backed by in-process Go functions. Arguments are
// validated against each tool's JSON Schema before the handler runs; a
// validation failure short-circuits to a structured, non-fatal Result
// (§4.F) without invoking the handler.
type LocalTools struct {
	byName map[string]localTool
	order  []string
}

// NewLocalTools compiles each spec's schema and returns a Provider over
// them. An invalid schema is a construction-time error, not a per-call one.
func NewLocalTools(specs []LocalSpec) (*LocalTools, error) {
	lt := &LocalTools{byName: make(map[string]localTool, len(specs))}
	for _, spec := range specs {
		compiled, err := compileSchema(spec.Name, spec.Parameters)
		if err != nil {
			return nil, fmt.Errorf("tools: compile schema for %q: %w", spec.Name, err)
		}
		lt.byName[spec.Name] = localTool{spec: spec, schema: compiled}
		lt.order = append(lt.order, spec.Name)
	}
	return lt, nil
}

func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	url := "mem://tools/" + name
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

func (lt *LocalTools) GetTools() []Definition {
	defs := make([]Definition, 0, len(lt.order))
	for _, name := range lt.order {
		t := lt.byName[name]
		defs = append(defs, Definition{Name: t.spec.Name, Description: t.spec.Description, Parameters: t.spec.Parameters})
	}
	return defs
}

func (lt *LocalTools) CanHandle(name string) bool {
	_, ok := lt.byName[name]
	return ok
}

func (lt *LocalTools) Execute(ctx context.Context, call Call, execCtx ExecutionContext) Result {
	t, ok := lt.byName[call.Name]
	if !ok {
		return NotFoundResult(call)
	}

	if t.schema != nil {
		if issues := validateArguments(t.schema, call.Arguments); len(issues) > 0 {
			return Result{
				ToolCallID: call.ID,
				Success:    false,
				Error:      "validation failed: " + issues[0].Field + " " + issues[0].Constraint,
				Issues:     issues,
			}
		}
	}

	content, err := t.spec.Handler(ctx, call.Arguments, execCtx)
	if err != nil {
		return Result{ToolCallID: call.ID, Success: false, Error: err.Error()}
	}
	return Result{ToolCallID: call.ID, Success: true, Content: content}
}

// validateArguments runs args against schema and translates every validation
// cause into a FieldIssue keyed by its JSON Pointer instance location.
func validateArguments(schema *jsonschema.Schema, args map[string]any) []FieldIssue {
	// jsonschema validates against any `any` built from JSON-compatible
	// values; map[string]any round-trips through the same decoder used when
	// compiling so numeric types match (json.Number vs float64 mismatches
	// otherwise cause spurious invalid_field_type issues).
	raw, err := json.Marshal(args)
	if err != nil {
		return []FieldIssue{{Field: "/", Constraint: "invalid_field_type"}}
	}
	decoded, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return []FieldIssue{{Field: "/", Constraint: "invalid_field_type"}}
	}

	err = schema.Validate(decoded)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []FieldIssue{{Field: "/", Constraint: "invalid_field_type"}}
	}
	return flattenIssues(verr)
}

func flattenIssues(verr *jsonschema.ValidationError) []FieldIssue {
	var issues []FieldIssue
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := "/"
			if len(e.InstanceLocation) > 0 {
				field = "/" + joinPointer(e.InstanceLocation)
			}
			issues = append(issues, FieldIssue{Field: field, Constraint: constraintFor(e.Error())})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return issues
}

func constraintFor(msg string) string {
	// The underlying library's error messages are prose, not a stable enum;
	// classify into the same constraint vocabulary the loop/tests expect.
	switch {
	case contains(msg, "missing"):
		return "missing_field"
	case contains(msg, "enum"):
		return "invalid_enum_value"
	case contains(msg, "pattern"):
		return "invalid_pattern"
	case contains(msg, "format"):
		return "invalid_format"
	case contains(msg, "length"):
		return "invalid_length"
	case contains(msg, "type"):
		return "invalid_field_type"
	default:
		return "invalid_value"
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func joinPointer(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}

var _ Provider = (*LocalTools)(nil)
