package json

import (
	"strings"
	"testing"
)

type decision struct {
	Action string  `json:"action"`
	Score  float64 `json:"score"`
}

func TestPureJSON(t *testing.T) {
	response := `{"action": "match", "score": 0.8}`
	result, err := ExtractJSONFromResponse[decision](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != "match" {
		t.Errorf("expected action 'match', got '%s'", result.Action)
	}
	if result.Score != 0.8 {
		t.Errorf("expected score 0.8, got %v", result.Score)
	}
}

func TestJSONInMarkdownFence(t *testing.T) {
	response := "```json\n{\"action\": \"match\", \"score\": 0.8}\n```"
	result, err := ExtractJSONFromResponse[decision](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != "match" {
		t.Errorf("expected action 'match', got '%s'", result.Action)
	}
}

func TestJSONWithSurroundingText(t *testing.T) {
	response := `Let me evaluate... {"action": "match", "score": 0.8} Done!`
	result, err := ExtractJSONFromResponse[decision](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != "match" {
		t.Errorf("expected action 'match', got '%s'", result.Action)
	}
}

func TestJSONArray(t *testing.T) {
	response := `The tickers are: ["NVDA", "AMD", "TSM"]`
	result, err := ExtractJSONFromResponse[[]string](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 3 || result[0] != "NVDA" {
		t.Errorf("unexpected array: %v", result)
	}
}

func TestNoJSON(t *testing.T) {
	response := "This is just plain text without any JSON."
	_, err := ExtractJSONFromResponse[decision](response)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to extract valid JSON") {
		t.Errorf("expected 'failed to extract valid JSON' in error, got: %v", err)
	}
}

func TestInvalidJSON(t *testing.T) {
	response := `{"action": "match", score: }`
	_, err := ExtractJSONFromResponse[decision](response)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
