package recovery

import (
	"encoding/json"
	"testing"
)

func TestParseValidJSON(t *testing.T) {
	raw := `{"elements": [{"element_type": "goal", "text": "We aim to measure latency.", "confidence": 0.9}]}`

	res := Parse(raw)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Recovered {
		t.Error("valid JSON should not be marked recovered")
	}
	if res.Strategy != "" {
		t.Errorf("Strategy = %q, want empty", res.Strategy)
	}

	var direct, parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &direct); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(res.Data, &parsed); err != nil {
		t.Fatalf("unmarshalling recovered data: %v", err)
	}
	if len(parsed) != len(direct) {
		t.Error("parsed data differs from direct parse")
	}
}

func TestParseMarkdownFences(t *testing.T) {
	raw := "Here is the extraction:\n```json\n{\"elements\": []}\n```\nDone."

	res := Parse(raw)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Recovered {
		t.Error("fence stripping is a pre-step, not a recovery strategy")
	}
	if string(res.Data) != `{"elements": []}` {
		t.Errorf("Data = %s", res.Data)
	}
}

func TestParseUnterminatedString(t *testing.T) {
	raw := `{"elements": [{"element_type": "result", "text": "Accuracy improved by 12`

	res := Parse(raw)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Recovered {
		t.Fatal("expected recovery")
	}
	if res.Strategy != StrategyUnterminatedString {
		t.Errorf("Strategy = %q, want %q", res.Strategy, StrategyUnterminatedString)
	}

	var parsed struct {
		Elements []struct {
			ElementType string `json:"element_type"`
			Text        string `json:"text"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(res.Data, &parsed); err != nil {
		t.Fatalf("recovered data does not parse: %v", err)
	}
	if len(parsed.Elements) != 1 || parsed.Elements[0].ElementType != "result" {
		t.Errorf("recovered structure = %+v", parsed)
	}
}

// A truncated extraction response: an object missing its
// closing brackets must be repaired by bracket balancing.
func TestParseTruncatedBrackets(t *testing.T) {
	raw := `{"elements": [{"element_type": "finding", "text": "A result.", "confidence": 0.9`

	res := Parse(raw)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Recovered {
		t.Fatal("expected recovery")
	}
	if res.Strategy != StrategyBalanceBrackets {
		t.Errorf("Strategy = %q, want %q", res.Strategy, StrategyBalanceBrackets)
	}

	var parsed struct {
		Elements []struct {
			ElementType string  `json:"element_type"`
			Text        string  `json:"text"`
			Confidence  float64 `json:"confidence"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(res.Data, &parsed); err != nil {
		t.Fatalf("recovered data does not parse: %v", err)
	}
	if len(parsed.Elements) != 1 {
		t.Fatalf("expected 1 element, got %d", len(parsed.Elements))
	}
	el := parsed.Elements[0]
	if el.ElementType != "finding" || el.Text != "A result." || el.Confidence != 0.9 {
		t.Errorf("recovered element = %+v", el)
	}
}

func TestParseTrailingComma(t *testing.T) {
	raw := `{"elements": [{"element_type": "goal", "text": "x", "confidence": 0.5},]}`

	res := Parse(raw)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Strategy != StrategyTrailingComma {
		t.Errorf("Strategy = %q, want %q", res.Strategy, StrategyTrailingComma)
	}
}

func TestParseArrayPrefix(t *testing.T) {
	// Two complete objects followed by a truncated third whose string is
	// closed (so the unterminated-string strategy does not apply) but whose
	// braces cannot be balanced into valid JSON.
	raw := `{"elements": [` +
		`{"element_type": "goal", "text": "a", "confidence": 0.8},` +
		`{"element_type": "result", "text": "b", "confidence": 0.7},` +
		`{"element_type": "method", "text": "c", "confidence":`

	res := Parse(raw)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Recovered {
		t.Fatal("expected recovery")
	}
	if res.Strategy != StrategyArrayPrefix {
		t.Errorf("Strategy = %q, want %q", res.Strategy, StrategyArrayPrefix)
	}

	var parsed struct {
		Elements []struct {
			Text string `json:"text"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(res.Data, &parsed); err != nil {
		t.Fatalf("recovered data does not parse: %v", err)
	}
	if len(parsed.Elements) != 2 {
		t.Fatalf("expected the 2 complete objects, got %d", len(parsed.Elements))
	}
	if parsed.Elements[0].Text != "a" || parsed.Elements[1].Text != "b" {
		t.Errorf("recovered objects = %+v", parsed.Elements)
	}
}

func TestParseNoPayload(t *testing.T) {
	res := Parse("I could not find any research elements in this passage.")
	if res.Err == nil {
		t.Fatal("expected an error for a response with no JSON")
	}
	if res.Data != nil || res.Recovered {
		t.Error("failed parse must not carry data")
	}
}

func TestParseUnrepairable(t *testing.T) {
	res := Parse(`{"elements": ]]}`)
	if res.Err == nil {
		t.Fatalf("expected exhaustion error, got data %s", res.Data)
	}
}

func TestParseStrategiesIndependent(t *testing.T) {
	// Trailing comma AND missing closer: trailing-comma alone cannot fix
	// it, bracket balancing alone cannot fix it, but the strategies must
	// not be chained. Only array-prefix can recover the complete object.
	raw := `{"elements": [{"element_type": "goal", "text": "x", "confidence": 0.5},`

	res := Parse(raw)

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Strategy != StrategyArrayPrefix {
		t.Errorf("Strategy = %q, want %q", res.Strategy, StrategyArrayPrefix)
	}
}
