package validator

import (
	"context"
	"encoding/json"
	"fmt"
)

// ChatClient is the narrow slice of internal/llm.LLMClient this backend
// needs: a system+user completion and a JSON-extraction helper. Kept local
// rather than importing the teacher's llm package wholesale, since C8 only
// ever needs this one call shape.
type ChatClient interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ParseJSONResponse(content string, target interface{}) error
}

// LLMBackend confirms or rejects a candidate entry by asking a chat model to
// judge the feature packet.
type LLMBackend struct {
	client ChatClient
}

// NewLLMBackend wraps client as a Validator backend.
func NewLLMBackend(client ChatClient) *LLMBackend {
	return &LLMBackend{client: client}
}

const systemPrompt = "You are a trading signal reviewer. Given a candidate entry and its " +
	"recent indicator readings, reply with a JSON object {\"confirmed\": bool, \"rationale\": string}."

type llmVerdict struct {
	Confirmed bool   `json:"confirmed"`
	Rationale string `json:"rationale"`
}

// Validate implements Validator.
func (b *LLMBackend) Validate(ctx context.Context, packet FeaturePacket) (Result, error) {
	userPrompt, err := describePacket(packet)
	if err != nil {
		return Result{}, err
	}

	content, err := b.client.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Result{}, err
	}

	var verdict llmVerdict
	if err := b.client.ParseJSONResponse(content, &verdict); err != nil {
		return Result{}, err
	}
	return Result{Confirmed: verdict.Confirmed, Rationale: verdict.Rationale}, nil
}

func describePacket(packet FeaturePacket) (string, error) {
	snapshot := make(map[string]interface{}, len(packet.IndicatorSnapshot))
	for name, v := range packet.IndicatorSnapshot {
		if v.IsDefined() {
			snapshot[name] = v.Scalar()
		}
	}
	payload := map[string]interface{}{
		"symbol":     packet.Symbol,
		"side":       packet.Side,
		"indicators": snapshot,
		"candles":    len(packet.RecentCandles),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("describe feature packet: %w", err)
	}
	return string(data), nil
}
