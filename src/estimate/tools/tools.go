package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claimworks/estimate-api/src/shared/ai"
)

const (
	ToolLabor    = "labor"
	ToolMaterial = "material"
	ToolRepair   = "repair_instructions"
)

type ErrorKind string

const (
	ErrTimeout         ErrorKind = "Timeout"
	ErrUpstream        ErrorKind = "UpstreamError"
	ErrInvalidResponse ErrorKind = "InvalidResponse"
)

// ToolError is a classified failure of one research call.
type ToolError struct {
	Tool string
	Kind ErrorKind
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tool, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Kind)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Query carries the item facts a tool needs. All fields are plain strings so
// instruction templates stay trivial.
type Query struct {
	ItemName  string
	Category  string
	Condition string
	Placement string
	City      string
	Region    string
	Currency  string
}

type Answer struct {
	Tool     string
	Findings string
}

// Config is shared by the three adapter constructors.
type Config struct {
	Timeout time.Duration
	// Model handles quick price lookups; DeepModel handles the
	// repair-instruction synthesis, which needs more deliberate output.
	Model     string
	DeepModel string
}

// Adapter wraps one research capability behind a typed query/answer contract.
// The three tools differ only in name, instruction template and model
// options, so they share this one implementation.
type Adapter struct {
	name        string
	client      ai.Client
	opts        ai.Options
	timeout     time.Duration
	instruction func(Query) string
}

func NewLabor(client ai.Client, cfg Config) *Adapter {
	return &Adapter{
		name:    ToolLabor,
		client:  client,
		timeout: cfg.Timeout,
		opts: ai.Options{
			Model:           cfg.Model,
			EnableWebSearch: true,
			SystemPrompt:    "You are a cost researcher for property repairs. Answer with current, sourced figures and keep it concise.",
		},
		instruction: laborInstruction,
	}
}

func NewMaterial(client ai.Client, cfg Config) *Adapter {
	return &Adapter{
		name:    ToolMaterial,
		client:  client,
		timeout: cfg.Timeout,
		opts: ai.Options{
			Model:           cfg.Model,
			EnableWebSearch: true,
			SystemPrompt:    "You are a cost researcher for property repairs. Answer with current, sourced retail prices and keep it concise.",
		},
		instruction: materialInstruction,
	}
}

func NewRepairInstructions(client ai.Client, cfg Config) *Adapter {
	return &Adapter{
		name:    ToolRepair,
		client:  client,
		timeout: cfg.Timeout,
		opts: ai.Options{
			Model:           cfg.DeepModel,
			MaxOutputTokens: 16000,
			EnableWebSearch: true,
			SystemPrompt:    "You are an experienced tradesperson writing repair guidance. Be complete, ordered and code-compliant; incomplete instructions are worse than none.",
		},
		instruction: repairInstruction,
	}
}

func (a *Adapter) Name() string { return a.name }

// Answer runs one research call under the per-tool timeout. Calls are
// independent and safely retryable; answers are not deterministic.
func (a *Adapter) Answer(ctx context.Context, q Query) (Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	opts := a.opts
	opts.SearchCity = q.City
	opts.SearchRegion = q.Region

	out, err := a.client.Research(ctx, a.instruction(q), opts)
	if err != nil {
		kind := ErrUpstream
		if errors.Is(err, context.DeadlineExceeded) {
			kind = ErrTimeout
		}
		return Answer{}, &ToolError{Tool: a.name, Kind: kind, Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return Answer{}, &ToolError{Tool: a.name, Kind: ErrInvalidResponse, Err: errors.New("empty answer")}
	}
	return Answer{Tool: a.name, Findings: out}, nil
}

func laborInstruction(q Query) string {
	return fmt.Sprintf(`Research current labor rates for the following repair work.

Item: %s
Trade/category: %s
Current condition: %s
Placement in property: %s
Area: %s, %s

Find typical hourly rates charged by licensed %s professionals in %s, %s, estimate the labor hours this job takes, and give a total labor cost range in %s. Cite sources for the figures.`,
		q.ItemName, q.Category, q.Condition, q.Placement, q.City, q.Region,
		q.Category, q.City, q.Region, q.Currency)
}

func materialInstruction(q Query) string {
	return fmt.Sprintf(`Research current material and replacement-part prices for the following item.

Item: %s
Trade/category: %s
Current condition: %s
Area: %s, %s

Find current retail prices for the materials or a full replacement unit, from suppliers available in or shipping to %s, %s. Give a cost range in %s with the sources for each figure.`,
		q.ItemName, q.Category, q.Condition, q.City, q.Region,
		q.City, q.Region, q.Currency)
}

func repairInstruction(q Query) string {
	return fmt.Sprintf(`Write complete repair or replacement instructions for the following item.

Item: %s
Trade/category: %s
Current condition: %s
Placement in property: %s
Area: %s, %s

Cover: required tools and materials, ordered step-by-step instructions, safety precautions, local code and permit considerations for %s, %s, and when the work must be left to a licensed professional. The instructions direct physical work, so they must be complete.`,
		q.ItemName, q.Category, q.Condition, q.Placement, q.City, q.Region,
		q.City, q.Region)
}
