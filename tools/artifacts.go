// Run-scoped artifact store tools: write, read, and list-by-prefix.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/artifact"
)

// WriteArtifactTool persists one artifact under a logical key within the
// current run. Overwriting an existing key is allowed and idempotent.
type WriteArtifactTool struct {
	BaseTool
	store  *artifact.RunStore
	logger zerolog.Logger
}

// NewWriteArtifactTool creates the tool for a run-scoped store.
func NewWriteArtifactTool(store *artifact.RunStore, logger zerolog.Logger) *WriteArtifactTool {
	return &WriteArtifactTool{
		store:  store,
		logger: logger.With().Str("tool", "write_artifact").Logger(),
	}
}

// Metadata returns tool metadata.
func (t *WriteArtifactTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "write_artifact",
		Description: "Save a JSON or text artifact under a key for this run, e.g. " +
			"company_matches/batch_0000.json. Writing the same key twice overwrites it.",
		Parameters: []ToolParameter{
			{Name: "key", ParamType: "string", Description: "Logical artifact key", Required: true},
			{Name: "content", ParamType: "string", Description: "Artifact body", Required: true},
		},
	}
}

type writeArtifactArgs struct {
	Key     string `json:"key"`
	Content string `json:"content"`
}

// Validate checks the key is present and relative.
func (t *WriteArtifactTool) Validate(args json.RawMessage) error {
	var req writeArtifactArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if req.Key == "" {
		return errors.New("key must not be empty")
	}
	if strings.HasPrefix(req.Key, "/") || strings.Contains(req.Key, "..") {
		return fmt.Errorf("key %q is not a relative artifact key", req.Key)
	}
	return nil
}

// Execute writes the artifact.
func (t *WriteArtifactTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	if err := t.Validate(args); err != nil {
		return FailureResult(err), nil
	}
	var req writeArtifactArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}

	if err := t.store.Write(ctx, req.Key, []byte(req.Content)); err != nil {
		return FailureResultf("write %s: %v", req.Key, err), nil
	}

	t.logger.Debug().Str("key", req.Key).Int("bytes", len(req.Content)).Msg("wrote artifact")
	return SuccessResult(fmt.Sprintf("saved %s (%d bytes)", req.Key, len(req.Content))), nil
}

// ReadArtifactTool retrieves an artifact written earlier in the run.
type ReadArtifactTool struct {
	BaseTool
	store  *artifact.RunStore
	logger zerolog.Logger
}

// NewReadArtifactTool creates the tool for a run-scoped store.
func NewReadArtifactTool(store *artifact.RunStore, logger zerolog.Logger) *ReadArtifactTool {
	return &ReadArtifactTool{
		store:  store,
		logger: logger.With().Str("tool", "read_artifact").Logger(),
	}
}

// Metadata returns tool metadata.
func (t *ReadArtifactTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "read_artifact",
		Description: "Read an artifact previously saved in this run by its key.",
		Parameters: []ToolParameter{
			{Name: "key", ParamType: "string", Description: "Logical artifact key", Required: true},
		},
	}
}

type readArtifactArgs struct {
	Key string `json:"key"`
}

// Execute reads the artifact.
func (t *ReadArtifactTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req readArtifactArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}
	if req.Key == "" {
		return FailureResultf("key must not be empty"), nil
	}

	data, err := t.store.Read(ctx, req.Key)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return FailureResultf("artifact %s not found in this run", req.Key), nil
		}
		return FailureResultf("read %s: %v", req.Key, err), nil
	}

	return SuccessResult(string(data)), nil
}

// ListArtifactsTool lists artifact keys under a prefix for the run.
type ListArtifactsTool struct {
	BaseTool
	store  *artifact.RunStore
	logger zerolog.Logger
}

// NewListArtifactsTool creates the tool for a run-scoped store.
func NewListArtifactsTool(store *artifact.RunStore, logger zerolog.Logger) *ListArtifactsTool {
	return &ListArtifactsTool{
		store:  store,
		logger: logger.With().Str("tool", "list_artifacts").Logger(),
	}
}

// Metadata returns tool metadata.
func (t *ListArtifactsTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "list_artifacts",
		Description: "List artifact keys saved in this run, optionally filtered by prefix such as company_matches/.",
		Parameters: []ToolParameter{
			{Name: "prefix", ParamType: "string", Description: "Key prefix filter; empty lists everything", Required: false},
		},
	}
}

type listArtifactsArgs struct {
	Prefix string `json:"prefix"`
}

// Execute lists keys sorted lexicographically.
func (t *ListArtifactsTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req listArtifactsArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return FailureResultf("invalid arguments: %v", err), nil
		}
	}

	keys, err := t.store.List(ctx, req.Prefix)
	if err != nil {
		return FailureResultf("list %q: %v", req.Prefix, err), nil
	}

	out, err := json.Marshal(map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
	if err != nil {
		return FailureResultf("marshal listing: %v", err), nil
	}
	return SuccessResult(string(out)), nil
}
