// ReAct (Reason + Act) loop implementation.
//
// This is THE canonical implementation of the ReAct pattern.
// All subagent execution goes through this module.
//
// Information Hiding:
// - ReAct loop internals hidden
// - LLM communication hidden
// - Tool execution coordination hidden
// - Context budget enforcement hidden

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	jsonutil "github.com/richinex/themescout/internal/json"
	"github.com/richinex/themescout/llm"
	"github.com/richinex/themescout/model"
	"github.com/richinex/themescout/tools"
	"github.com/richinex/themescout/trim"
)

// Agent executes tasks using the ReAct pattern.
type Agent struct {
	config       Config
	llmClient    *llm.Client
	toolRegistry *tools.Registry
	toolExecutor *tools.Executor
	trimmer      *trim.Trimmer
	logger       zerolog.Logger
	verbose      bool
}

// New creates a new agent with the given configuration and provider.
func New(config Config, provider llm.Provider) *Agent {
	registry := tools.NewRegistry()
	for _, tool := range config.Tools {
		_ = registry.Register(tool) // Ignore duplicate errors - caller's responsibility
	}

	return &Agent{
		config:       config,
		llmClient:    llm.NewClient(provider),
		toolRegistry: registry,
		toolExecutor: tools.NewDefaultExecutor(),
		logger:       zerolog.Nop(),
		verbose:      false,
	}
}

// WithToolConfig overrides the tool execution configuration.
func (a *Agent) WithToolConfig(config tools.ToolConfig) *Agent {
	a.toolExecutor = tools.NewExecutor(config)
	return a
}

// WithTrimmer bounds the conversation passed to the model. The trimmer
// runs before every reasoning call.
func (a *Agent) WithTrimmer(trimmer *trim.Trimmer) *Agent {
	a.trimmer = trimmer
	return a
}

// WithLogger attaches a structured logger.
func (a *Agent) WithLogger(logger zerolog.Logger) *Agent {
	a.logger = logger.With().Str("agent", a.config.Name).Logger()
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Description returns the agent's description.
func (a *Agent) Description() string {
	return a.config.Description
}

// Verbose enables verbose output (shows LLM reasoning).
func (a *Agent) Verbose(enabled bool) *Agent {
	a.verbose = enabled
	return a
}

// Execute runs a task with the given maximum iterations.
func (a *Agent) Execute(ctx context.Context, task string, maxIterations int) Response {
	return a.executeFull(ctx, task, nil, maxIterations)
}

// ExecuteWithContext runs a task with additional context data injected
// into the system prompt.
func (a *Agent) ExecuteWithContext(ctx context.Context, task string, contextData json.RawMessage, maxIterations int) Response {
	return a.executeFull(ctx, task, contextData, maxIterations)
}

// executeFull is the main execution method with all options.
func (a *Agent) executeFull(ctx context.Context, task string, contextData json.RawMessage, maxIterations int) Response {
	startTime := time.Now()
	var steps []model.Step
	var toolCalls []model.ToolCall
	var totalUsage llm.TokenUsage
	var llmCalls int
	var conversation []llm.ChatMessage
	var lastToolOutput string

	contextSection := ""
	if len(contextData) > 0 {
		contextSection = fmt.Sprintf("\n\nCONTEXT DATA:\n```json\n%s\n```", string(contextData))
	}

	systemPrompt := fmt.Sprintf(
		`%s

Available Tools:
%s%s

You have a maximum of %d iterations.
Respond in this JSON format:
{
  "thought": "your reasoning",
  "action": {"tool": "name", "input": {...}},
  "is_final": false,
  "final_answer": null
}

When complete: is_final=true, action=null, provide final_answer.`,
		a.config.SystemPrompt,
		a.toolRegistry.Description(),
		contextSection,
		maxIterations,
	)

	conversation = append(conversation, llm.ChatMessage{
		Role:    "system",
		Content: systemPrompt,
	})

	conversation = append(conversation, llm.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Task: %s", task),
	})

	// ReAct loop
	for iteration := 0; iteration < maxIterations; iteration++ {
		if ctx.Err() != nil {
			return NewFailureResponse(
				fmt.Sprintf("execution cancelled: %v", ctx.Err()),
				steps,
				uint64(time.Since(startTime).Milliseconds()),
			)
		}

		remaining := maxIterations - iteration

		// Think: get next action from LLM
		decision, usage, err := a.think(ctx, conversation)
		if err != nil {
			return NewFailureResponse(
				fmt.Sprintf("Failed to reason: %v", err),
				steps,
				uint64(time.Since(startTime).Milliseconds()),
			)
		}

		llmCalls++
		if usage != nil {
			totalUsage.Add(usage)
		}

		// Check if complete
		if decision.IsFinal {
			result := a.getFinalResult(decision, lastToolOutput)

			steps = append(steps, model.Step{
				Iteration:   iteration,
				Thought:     decision.Thought,
				Action:      nil,
				Observation: &result,
			})

			a.logger.Info().
				Int("iterations", iteration+1).
				Int("llm_calls", llmCalls).
				Msg("agent finished")

			return NewSuccessResponse(
				result,
				steps,
				toolCalls,
				uint64(time.Since(startTime).Milliseconds()),
				a.config.Name,
				&totalUsage,
				llmCalls,
			)
		}

		// Act: execute tool
		if decision.Action != nil {
			observation, toolCall, err := a.executeTool(ctx, decision.Action)

			if toolCall != nil {
				toolCalls = append(toolCalls, *toolCall)
			}

			if err == nil {
				lastToolOutput = observation
			}

			assistantMsg := map[string]interface{}{
				"thought": decision.Thought,
				"action": map[string]interface{}{
					"tool":  decision.Action.Tool,
					"input": decision.Action.Input,
				},
				"is_final": false,
			}
			msgJSON, merr := json.Marshal(assistantMsg)
			if merr != nil {
				msgJSON = []byte(fmt.Sprintf(`{"thought": %q}`, decision.Thought))
			}
			conversation = append(conversation, llm.ChatMessage{
				Role:    "assistant",
				Content: string(msgJSON),
			})

			urgency := ""
			if remaining <= 2 {
				urgency = fmt.Sprintf("\n\nWARNING: Only %d iterations remaining!", remaining-1)
			}

			observationMsg := observation
			if err != nil {
				observationMsg = fmt.Sprintf("Tool failed: %v", err)
			}

			conversation = append(conversation, llm.ChatMessage{
				Role: "user",
				Content: fmt.Sprintf(
					"Observation: %s%s\n\nIs the task complete? If yes, set is_final=true.",
					observationMsg, urgency,
				),
			})

			actionName := decision.Action.Tool
			steps = append(steps, model.Step{
				Iteration:   iteration,
				Thought:     decision.Thought,
				Action:      &actionName,
				Observation: &observationMsg,
			})
		} else {
			// No action - might be implicit completion
			if a.hasPriorProgress(steps) {
				result := a.getImplicitResult(decision, lastToolOutput, steps)

				return NewSuccessResponse(
					result,
					steps,
					toolCalls,
					uint64(time.Since(startTime).Milliseconds()),
					a.config.Name,
					&totalUsage,
					llmCalls,
				)
			}

			observation := "No action specified"
			steps = append(steps, model.Step{
				Iteration:   iteration,
				Thought:     decision.Thought,
				Action:      nil,
				Observation: &observation,
			})
		}
	}

	a.logger.Warn().Int("max_iterations", maxIterations).Msg("agent hit iteration limit")

	return NewTimeoutResponse(
		steps,
		toolCalls,
		uint64(time.Since(startTime).Milliseconds()),
		&totalUsage,
		llmCalls,
	)
}

// think asks the LLM for the next action. The conversation is trimmed to
// the context budget first, on every call, so late iterations with large
// tool observations cannot blow past the model's input ceiling.
// Returns the decision and token usage (usage may be nil for streaming).
func (a *Agent) think(ctx context.Context, conversation []llm.ChatMessage) (Decision, *llm.TokenUsage, error) {
	if a.trimmer != nil {
		trimmed, err := a.trimmer.Trim(ctx, conversation)
		if err != nil {
			return Decision{}, nil, fmt.Errorf("context trim failed: %w", err)
		}
		conversation = trimmed
	}

	var response string
	var err error
	var usage *llm.TokenUsage

	if a.verbose {
		response, usage, err = a.thinkWithStreaming(ctx, conversation)
	} else {
		response, usage, err = a.llmClient.ChatWithUsage(ctx, conversation)
	}

	if err != nil {
		return Decision{}, nil, fmt.Errorf("LLM chat failed: %w", err)
	}

	// Extract JSON from response
	var decision Decision
	extracted, err := jsonutil.ExtractJSON(response)
	if err != nil {
		// Could not extract JSON - treat as a thought without action
		return Decision{
			Thought: response,
			IsFinal: false,
		}, usage, nil
	}

	if err := json.Unmarshal([]byte(extracted), &decision); err != nil {
		return Decision{
			Thought: response,
			IsFinal: false,
		}, usage, nil
	}

	return decision, usage, nil
}

// streamResult holds the result of a streaming call.
type streamResult struct {
	usage *llm.TokenUsage
	err   error
}

// thinkWithStreaming uses streaming to show tokens in real-time (verbose mode).
func (a *Agent) thinkWithStreaming(ctx context.Context, conversation []llm.ChatMessage) (string, *llm.TokenUsage, error) {
	chunks := make(chan string, 100)

	resultCh := make(chan streamResult, 1)
	go func() {
		defer close(chunks)
		usage, err := a.llmClient.StreamChat(ctx, conversation, chunks)
		resultCh <- streamResult{usage: usage, err: err}
	}()

	var response strings.Builder
	printedHeader := false

	for chunk := range chunks {
		if !printedHeader {
			fmt.Printf("\n[%s] ", a.config.Name)
			printedHeader = true
		}
		fmt.Print(chunk)
		os.Stdout.Sync() // Flush to show tokens immediately
		response.WriteString(chunk)
	}

	if printedHeader {
		fmt.Print("\n\n")
	}

	result := <-resultCh
	if result.err != nil {
		return "", nil, result.err
	}

	return response.String(), result.usage, nil
}

// executeTool runs a tool and returns the observation.
func (a *Agent) executeTool(ctx context.Context, action *Action) (string, *model.ToolCall, error) {
	tool, exists := a.toolRegistry.Get(action.Tool)
	if !exists {
		return "", nil, fmt.Errorf("tool '%s' not found", action.Tool)
	}

	startTime := time.Now()
	inputJSON, err := json.Marshal(action.Input)
	if err != nil {
		inputJSON = []byte("{}")
	}
	inputSize := len(inputJSON)

	result, err := a.toolExecutor.Execute(ctx, tool, action.Input)
	if err != nil {
		return "", nil, fmt.Errorf("tool %q failed: %w", action.Tool, err)
	}

	toolCall := &model.ToolCall{
		Name:       action.Tool,
		InputSize:  inputSize,
		OutputSize: len(result.Output),
		DurationMs: uint64(time.Since(startTime).Milliseconds()),
		Success:    result.Success(),
	}

	if result.Success() {
		return result.Output, toolCall, nil
	}

	return "", toolCall, result.Error
}

// Result helpers

func (a *Agent) getFinalResult(decision Decision, lastToolOutput string) string {
	if a.config.ReturnToolOutput && lastToolOutput != "" {
		return lastToolOutput
	}
	if decision.FinalAnswer != nil {
		return *decision.FinalAnswer
	}
	return "Task completed"
}

func (a *Agent) getImplicitResult(decision Decision, lastToolOutput string, steps []model.Step) string {
	if a.config.ReturnToolOutput && lastToolOutput != "" {
		return lastToolOutput
	}
	if decision.Thought != "" {
		return decision.Thought
	}
	if len(steps) > 0 && steps[len(steps)-1].Observation != nil {
		return *steps[len(steps)-1].Observation
	}
	return "Task completed"
}

func (a *Agent) hasPriorProgress(steps []model.Step) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if s.Observation != nil {
			return true
		}
	}
	return false
}
