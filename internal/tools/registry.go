// Package tools defines the consolidated management tools: each tool takes an
// action plus parameters, validates them against the action's JSON Schema,
// and dispatches to a handler. Handlers return a one-line summary and a
// structured payload; failures become structured error results with stable
// codes, never transport errors.
package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler runs one validated tool action. It returns the structured payload
// and a one-line human-readable summary.
type Handler func(args json.RawMessage) (any, string, error)

// Action is one action of a tool.
type Action struct {
	Description string
	Schema      *jsonschema.Schema
	Handle      Handler
}

// Tool is a named bundle of actions sharing a domain.
type Tool struct {
	Name        string
	Description string
	Actions     map[string]*Action
}

// actionNames returns the tool's action names sorted.
func (t *Tool) actionNames() []string {
	names := make([]string, 0, len(t.Actions))
	for name := range t.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContentItem is one MCP content block.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ErrorPayload is the structured body of a failed call.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the MCP call_tool result shape: a text block plus the structured
// payload. IsError marks domain failures; the transport still returns 200.
type Result struct {
	Content    []ContentItem `json:"content"`
	Structured any           `json:"structuredContent,omitempty"`
	IsError    bool          `json:"isError,omitempty"`
}

func okResult(summary string, structured any) *Result {
	body, _ := json.MarshalIndent(structured, "", "  ")
	text := summary
	if len(body) > 0 && string(body) != "null" {
		text = summary + "\n" + string(body)
	}
	return &Result{
		Content:    []ContentItem{{Type: "text", Text: text}},
		Structured: structured,
	}
}

func errResult(code, message string) *Result {
	return &Result{
		Content:    []ContentItem{{Type: "text", Text: fmt.Sprintf("%s: %s", code, message)}},
		Structured: ErrorPayload{Code: code, Message: message},
		IsError:    true,
	}
}

// Registry holds the tool set and dispatches calls.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry builds the full tool set over the given dependencies.
func NewRegistry(d Deps) *Registry {
	r := &Registry{tools: make(map[string]*Tool)}
	r.register(newTurnTool(d))
	r.register(newWorldTool(d))
	r.register(newCharacterTool(d))
	r.register(newNoteTool(d))
	r.register(newDiceTool(d))
	return r
}

func (r *Registry) register(t *Tool) {
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Known reports whether a tool name is registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Descriptors returns MCP tool descriptors for list_tools.
func (r *Registry) Descriptors() []map[string]any {
	out := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{"type": "string", "enum": t.actionNames()},
				},
				"required": []string{"action"},
			},
		})
	}
	return out
}

// Call validates and runs one tool call. Domain failures come back as error
// results; the returned error is reserved for malformed requests.
func (r *Registry) Call(name string, args json.RawMessage) (*Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	var probe struct {
		Action string `json:"action"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &probe); err != nil {
			return errResult(ErrBadRequest, "arguments must be a JSON object"), nil
		}
	}

	action, ok := t.Actions[probe.Action]
	if !ok {
		return errResult(ErrBadRequest, fmt.Sprintf(
			"unknown action %q for %s (valid: %s)",
			probe.Action, t.Name, strings.Join(t.actionNames(), ", "))), nil
	}

	if action.Schema != nil {
		var instance any
		if len(args) == 0 {
			instance = map[string]any{}
		} else if err := json.Unmarshal(args, &instance); err != nil {
			return errResult(ErrBadRequest, "arguments must be a JSON object"), nil
		}
		if err := action.Schema.Validate(instance); err != nil {
			return errResult(ErrBadRequest, fmt.Sprintf("invalid parameters: %v", err)), nil
		}
	}

	structured, summary, err := action.Handle(args)
	if err != nil {
		code := codeForError(err)
		if code == ErrInternal {
			slog.Error("tool call failed", "tool", name, "action", probe.Action, "error", err)
		}
		return errResult(code, err.Error()), nil
	}
	return okResult(summary, structured), nil
}

// mustSchema compiles an action parameter schema at startup.
func mustSchema(name, src string) *jsonschema.Schema {
	return jsonschema.MustCompileString(name+".json", src)
}
