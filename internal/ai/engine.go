package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"openclaw-bot/internal/analysis"
)

// Completer abstracts the LLM transport so the engine can be tested without
// a live endpoint.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// defaultGuide is the built-in execution policy used when no guide file is
// configured.
const defaultGuide = `You are an institutional execution desk. You only act on
confirmed market structure: a displacement-grade structure shift paired with an
unfilled fair value gap. A point of interest without clear target liquidity
offers zero mathematical edge. Prioritize capital preservation over frequency
of trades. When in doubt, WAIT.`

// Engine consults the decision authority with a market snapshot and always
// yields a usable Decision: every failure path resolves to the WAIT fallback
// with the snapshot's stop reference preserved. It never returns an error to
// its caller and never retries within a call (the next candle cycle is the
// retry boundary).
type Engine struct {
	client       Completer
	systemPrompt string
	log          zerolog.Logger
}

func NewEngine(client Completer, guidePath string, log zerolog.Logger) (*Engine, error) {
	systemPrompt := defaultGuide
	if guidePath != "" {
		data, err := os.ReadFile(guidePath)
		if err != nil {
			return nil, fmt.Errorf("could not read execution guide %s: %w", guidePath, err)
		}
		systemPrompt = string(data)
	}

	return &Engine{
		client:       client,
		systemPrompt: systemPrompt,
		log:          log,
	}, nil
}

// Evaluate submits the snapshot to the authority and returns a validated
// Decision or the WAIT fallback.
func (e *Engine) Evaluate(ctx context.Context, snapshot analysis.Snapshot) Decision {
	prompt, err := buildPrompt(snapshot)
	if err != nil {
		e.log.Error().Err(err).Msg("failed to build market prompt")
		return FallbackWait("Prompt Construction Failure", snapshot.StopReference)
	}

	raw, err := e.client.Complete(ctx, e.systemPrompt, prompt)
	if err != nil {
		e.log.Error().Err(err).Msg("decision authority call failed")
		return FallbackWait("Connection Failure", snapshot.StopReference)
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		e.log.Error().Err(err).Str("raw", raw).Msg("malformed authority response")
		return FallbackWait("Parsing Failure", snapshot.StopReference)
	}

	// The structural stop level is known independently of the policy
	// decision; backfill it rather than losing it.
	if decision.StopReference == nil {
		decision.StopReference = snapshot.StopReference
	}

	e.log.Info().
		Str("action", string(decision.Action)).
		Int("confidence", decision.Confidence).
		Str("reasoning", decision.Reasoning).
		Msg("authority decision")
	return decision
}

// buildPrompt serializes the snapshot into the fixed evaluation request.
func buildPrompt(snapshot analysis.Snapshot) (string, error) {
	snapJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You are an autonomous execution agent strictly governed
by the provided institutional execution guide.

CORE AXIOM: A POI without Liquidity offers zero mathematical edge.
Prioritize capital preservation over frequency of trades.

Current Quantitative Market State:
%s

Evaluate the state and respond ONLY as JSON in the exact shape below:
{
  "action": "LONG" | "SHORT" | "WAIT",
  "confidence": <int 0-100>,
  "reasoning": "<max 2 concise sentences>",
  "entry_poi": <float or null>,
  "target_liquidity": <float or null>,
  "stop_reference": <float or null>
}`, string(snapJSON)), nil
}
