package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/toolargs"
)

// Outcome is the result of dispatching one tool call.
type Outcome struct {
	Tool   domain.ToolName
	Args   toolargs.Args
	Result interface{}
	Err    *domain.ToolError
}

// OK reports whether the tool ran successfully.
func (o *Outcome) OK() bool {
	return o.Err == nil
}

// ArgsJSON returns the normalized arguments, or null if normalization failed.
func (o *Outcome) ArgsJSON() json.RawMessage {
	return marshalOrNull(o.Args)
}

// ResultJSON returns the tool result, or null if the tool failed.
func (o *Outcome) ResultJSON() json.RawMessage {
	return marshalOrNull(o.Result)
}

// ErrorJSON returns the structured error, or nil on success.
func (o *Outcome) ErrorJSON() json.RawMessage {
	if o.Err == nil {
		return nil
	}
	return marshalOrNull(o.Err)
}

func marshalOrNull(v interface{}) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// Dispatcher normalizes a raw tool call and runs it.
type Dispatcher struct {
	registry   *Registry
	normalizer *toolargs.Normalizer
}

// NewDispatcher creates a dispatcher with the builtin tools bound to inv.
func NewDispatcher(inv Inventory, normalizer *toolargs.Normalizer) *Dispatcher {
	r := NewRegistry()
	RegisterBuiltins(r, inv)
	return &Dispatcher{registry: r, normalizer: normalizer}
}

// Registry returns the registry backing the dispatcher.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch normalizes and runs a tool call. Failures are reported on the
// returned Outcome, never as a panic.
func (d *Dispatcher) Dispatch(ctx context.Context, call toolargs.RawCall) (out *Outcome) {
	out = &Outcome{Tool: call.Tool}
	if !d.registry.Has(call.Tool) {
		out.Err = &domain.ToolError{
			Code:    domain.ErrorCodeUnknownTool,
			Message: fmt.Sprintf("Unknown tool name: %s", call.Tool),
		}
		return out
	}

	args, err := d.normalizer.NormalizeCall(call)
	if err != nil {
		out.Err = toToolError(err)
		return out
	}
	out.Args = args

	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool handler panicked", "tool", call.Tool, "panic", r)
			out.Result = nil
			out.Err = &domain.ToolError{
				Code:    domain.ErrorCodeInternal,
				Message: fmt.Sprintf("tool %s failed unexpectedly", call.Tool),
			}
		}
	}()

	result, err := d.registry.Execute(ctx, call.Tool, args)
	if err != nil {
		out.Err = toToolError(err)
		return out
	}
	out.Result = result
	return out
}

func toToolError(err error) *domain.ToolError {
	var te *domain.ToolError
	if errors.As(err, &te) {
		return te
	}
	var nv *domain.NoValidItemsError
	if errors.As(err, &nv) {
		return &domain.ToolError{Code: domain.ErrorCodeNoValidItems, Message: nv.Error(), Warnings: nv.Warnings}
	}
	switch {
	case errors.Is(err, toolargs.ErrUnparseable), errors.Is(err, domain.ErrNegativeStock):
		return &domain.ToolError{Code: domain.ErrorCodeInvalidArgs, Message: err.Error()}
	case errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCustomerNotFound):
		return &domain.ToolError{Code: domain.ErrorCodeNotFound, Message: err.Error()}
	}
	return &domain.ToolError{Code: domain.ErrorCodeInternal, Message: err.Error()}
}
