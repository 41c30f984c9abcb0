package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/llm"
	"github.com/richinex/themescout/tools"
	"github.com/richinex/themescout/trim"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) Chat(_ context.Context, _ []llm.ChatMessage) (llm.LLMResponse, error) {
	if p.calls >= len(p.responses) {
		return llm.LLMResponse{Content: `{"thought": "done", "is_final": true, "final_answer": "exhausted"}`}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return llm.LLMResponse{Content: resp, Usage: &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

func (p *scriptedProvider) StreamChat(ctx context.Context, messages []llm.ChatMessage, chunks chan<- string) (*llm.TokenUsage, error) {
	resp, err := p.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	chunks <- resp.Content
	return resp.Usage, nil
}

// echoTool records its invocations and echoes its input.
type echoTool struct {
	tools.BaseTool
	invocations []string
}

func (e *echoTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name:        "echo",
		Description: "Echo the input back",
		Parameters: []tools.ToolParameter{
			{Name: "text", ParamType: "string", Description: "Text to echo", Required: true},
		},
	}
}

func (e *echoTool) Execute(_ context.Context, args json.RawMessage) (tools.ToolResult, error) {
	e.invocations = append(e.invocations, string(args))
	return tools.SuccessResult(string(args)), nil
}

func TestAgentRunsToolThenFinishes(t *testing.T) {
	tool := &echoTool{}
	provider := &scriptedProvider{responses: []string{
		`{"thought": "call the tool", "action": {"tool": "echo", "input": {"text": "hi"}}, "is_final": false}`,
		`{"thought": "done", "is_final": true, "final_answer": "echoed"}`,
	}}

	a := New(Config{
		Name:         "tester",
		SystemPrompt: "Test agent.",
		Tools:        []tools.Tool{tool},
	}, provider)

	resp := a.Execute(context.Background(), "echo something", 5)
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got %v: %s", resp.Type, resp.Error)
	}
	if resp.Result != "echoed" {
		t.Errorf("unexpected result: %q", resp.Result)
	}
	if len(tool.invocations) != 1 {
		t.Errorf("expected 1 tool invocation, got %d", len(tool.invocations))
	}
	if resp.Metadata.LLMCalls != 2 {
		t.Errorf("expected 2 LLM calls, got %d", resp.Metadata.LLMCalls)
	}
	if resp.Metadata.TokenUsage == nil || resp.Metadata.TokenUsage.TotalTokens != 30 {
		t.Errorf("token usage not accumulated: %+v", resp.Metadata.TokenUsage)
	}
}

func TestAgentReturnsToolOutput(t *testing.T) {
	tool := &echoTool{}
	provider := &scriptedProvider{responses: []string{
		`{"thought": "call", "action": {"tool": "echo", "input": {"text": "payload"}}, "is_final": false}`,
		`{"thought": "done", "is_final": true, "final_answer": "ignored"}`,
	}}

	a := New(Config{
		Name:             "tester",
		SystemPrompt:     "Test agent.",
		Tools:            []tools.Tool{tool},
		ReturnToolOutput: true,
	}, provider)

	resp := a.Execute(context.Background(), "task", 5)
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got %v", resp.Type)
	}
	if resp.Result == "ignored" {
		t.Error("expected last tool output, got final_answer")
	}
}

func TestAgentTimesOutAtMaxIterations(t *testing.T) {
	tool := &echoTool{}
	provider := &scriptedProvider{responses: []string{
		`{"thought": "again", "action": {"tool": "echo", "input": {"text": "1"}}, "is_final": false}`,
		`{"thought": "again", "action": {"tool": "echo", "input": {"text": "2"}}, "is_final": false}`,
		`{"thought": "again", "action": {"tool": "echo", "input": {"text": "3"}}, "is_final": false}`,
	}}

	a := New(Config{Name: "looper", SystemPrompt: "Loop.", Tools: []tools.Tool{tool}}, provider)
	resp := a.Execute(context.Background(), "never finish", 2)
	if resp.Type != ResponseTimeout {
		t.Fatalf("expected timeout, got %v", resp.Type)
	}
	if len(resp.Steps) != 2 {
		t.Errorf("expected 2 steps, got %d", len(resp.Steps))
	}
}

func TestAgentNonJSONResponseBecomesThought(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"I am just thinking out loud without JSON.",
		`{"thought": "ok", "is_final": true, "final_answer": "recovered"}`,
	}}

	a := New(Config{Name: "tester", SystemPrompt: "Test."}, provider)
	resp := a.Execute(context.Background(), "task", 5)
	if !resp.IsSuccess() {
		t.Fatalf("expected recovery, got %v: %s", resp.Type, resp.Error)
	}
	if resp.Result != "recovered" {
		t.Errorf("unexpected result: %q", resp.Result)
	}
}

func TestAgentTrimsBeforeThinking(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"thought": "done", "is_final": true, "final_answer": "ok"}`,
	}}

	// Tiny budget forces the trimmer to run on the very first call.
	trimmer := trim.NewTrimmer(5, trim.CharEstimator{}, zerolog.Nop()).MinFloorChars(20)
	a := New(Config{Name: "tester", SystemPrompt: "Test."}, provider).WithTrimmer(trimmer)

	resp := a.Execute(context.Background(), "task with some padding text", 3)
	if !resp.IsSuccess() {
		t.Fatalf("expected success, got %v: %s", resp.Type, resp.Error)
	}
}

func TestDecisionFinalAnswerAcceptsObject(t *testing.T) {
	raw := `{"thought": "t", "is_final": true, "final_answer": {"tickers": ["NVDA"]}}`
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if d.FinalAnswer == nil {
		t.Fatal("final_answer not captured")
	}
	if !json.Valid([]byte(*d.FinalAnswer)) {
		t.Errorf("expected pretty-printed JSON, got %q", *d.FinalAnswer)
	}
}
