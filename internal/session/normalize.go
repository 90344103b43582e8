package session

import (
	"math"
	"strings"
)

// Self-reported phases the agent writes into its structured output. These
// are independent of the raw session lifecycle status.
const (
	PhaseScoping   = "scoping"
	PhaseExecuting = "executing"
	PhaseCompleted = "completed"
)

const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

type ActionStep struct {
	Step int    `json:"step"`
	Desc string `json:"desc"`
	Done bool   `json:"done"`
}

// Output is the canonical shape of the agent's progress payload. Every
// field is populated for any non-nil input: callers never guard against
// missing slices downstream.
type Output struct {
	ProgressPct      int          `json:"progress_pct"`
	Confidence       string       `json:"confidence"`
	Summary          string       `json:"summary"`
	Risks            []string     `json:"risks"`
	Dependencies     []string     `json:"dependencies"`
	EstimatedHours   float64      `json:"estimated_hours,omitempty"`
	ActionPlan       []ActionStep `json:"action_plan"`
	BranchSuggestion string       `json:"branch_suggestion,omitempty"`
	PRURL            string       `json:"pr_url,omitempty"`
	Status           string       `json:"status,omitempty"`
	Response         string       `json:"response,omitempty"`
}

// Normalize reconciles the shapes the agent has been observed to emit:
// the real payload either sits flat on the object or nested under a
// "progress" key. Missing fields degrade to type-appropriate defaults
// rather than failing; the payload shape is not contractually guaranteed
// by the producer.
func Normalize(raw map[string]any) *Output {
	if raw == nil {
		return nil
	}
	if nested, ok := raw["progress"].(map[string]any); ok {
		// Already-normalized payload wrapped by the transport layer.
		return decodeFields(nested)
	}
	return decodeFields(raw)
}

func decodeFields(raw map[string]any) *Output {
	out := &Output{
		ProgressPct:      clampPct(asInt(raw["progress_pct"])),
		Confidence:       asConfidence(raw["confidence"]),
		Summary:          asString(raw["summary"]),
		Risks:            asStringSlice(raw["risks"]),
		Dependencies:     asStringSlice(raw["dependencies"]),
		EstimatedHours:   asFloat(raw["estimated_hours"]),
		ActionPlan:       asActionPlan(raw["action_plan"]),
		BranchSuggestion: asString(raw["branch_suggestion"]),
		PRURL:            asString(raw["pr_url"]),
		Status:           asString(raw["status"]),
		Response:         asString(raw["response"]),
	}
	return out
}

func clampPct(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asConfidence(v any) string {
	switch strings.ToLower(strings.TrimSpace(asString(v))) {
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceHigh:
		return ConfidenceHigh
	default:
		return ConfidenceLow
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asActionPlan(v any) []ActionStep {
	items, ok := v.([]any)
	if !ok {
		return []ActionStep{}
	}
	out := make([]ActionStep, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		done, _ := entry["done"].(bool)
		out = append(out, ActionStep{
			Step: asInt(entry["step"]),
			Desc: asString(entry["desc"]),
			Done: done,
		})
	}
	return out
}
