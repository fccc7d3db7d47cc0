// Package tools provides the tool system for agents.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Dispatch routing (built-in, remote, retrieval, local) hidden behind Executor
// - Registry implementation details hidden from consumers
// - Error handling internalized per tool
package tools

import (
	"context"
	"encoding/json"

	"github.com/richinex/relay/internal/errs"
	"github.com/richinex/relay/llm"
	"github.com/richinex/relay/mcp"
)

// Tool is the interface that every built-in tool implements.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Schema returns the model-facing definition.
	Schema() llm.ToolSchema

	// Execute runs the tool with given arguments and returns a
	// JSON-serializable value.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// Type identifies how a tool call is executed.
type Type string

const (
	TypeBuiltIn   Type = "builtin"
	TypeMCP       Type = "mcp"
	TypeRetrieval Type = "retrieval"
	TypeLocal     Type = "local"
)

// Descriptor is a tool attached to an agent.
type Descriptor struct {
	Type Type `json:"type" yaml:"type"`
	// Name selects the built-in; for other types it labels the descriptor in logs.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Server is required for TypeMCP.
	Server *mcp.ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`
	// Schema is required for TypeLocal.
	Schema *llm.ToolSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
	// Local carries the process settings for TypeLocal.
	Local *LocalConfig `json:"local,omitempty" yaml:"local,omitempty"`
}

// Dispatch is the routing metadata for one registered tool name.
type Dispatch struct {
	Type   Type
	Config DispatchConfig
}

// DispatchConfig holds the settings for whichever Type applies.
type DispatchConfig struct {
	Server    *mcp.ServerConfig
	Retrieval *RetrievalConfig
	Local     *LocalConfig
}

// RetrievalConfig scopes a retrieval tool to one source.
type RetrievalConfig struct {
	SourceID       string
	TopK           int
	Threshold      float64
	EmbeddingModel string
}

// LocalConfig describes a local process tool.
type LocalConfig struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// Tool errors. Compare with errors.Is.
var (
	ErrUnknownBuiltInTool = errs.New(errs.CodeUnknownBuiltInTool, "unknown built-in tool")
	ErrNotImplemented     = errs.New(errs.CodeNotImplemented, "not implemented")
	ErrToolConfig         = errs.New(errs.CodeToolConfig, "invalid tool configuration")
)
