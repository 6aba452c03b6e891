package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
  "action": "LONG",
  "confidence": 85,
  "reasoning": "MSS with displacement into an unfilled FVG.",
  "entry_poi": 108.5,
  "target_liquidity": 121.0,
  "stop_reference": 108.0
}`

func TestParseDecisionValid(t *testing.T) {
	decision, err := ParseDecision(validResponse)
	require.NoError(t, err)

	assert.Equal(t, ActionLong, decision.Action)
	assert.Equal(t, 85, decision.Confidence)
	require.NotNil(t, decision.EntryPOI)
	assert.Equal(t, 108.5, *decision.EntryPOI)
	require.NotNil(t, decision.TargetLiquidity)
	assert.Equal(t, 121.0, *decision.TargetLiquidity)
}

func TestParseDecisionStripsCodeFences(t *testing.T) {
	wrapped := "```json\n" + validResponse + "\n```"
	decision, err := ParseDecision(wrapped)
	require.NoError(t, err)
	assert.Equal(t, ActionLong, decision.Action)

	bare := "```\n" + validResponse + "\n```"
	decision, err = ParseDecision(bare)
	require.NoError(t, err)
	assert.Equal(t, ActionLong, decision.Action)
}

func TestParseDecisionNullOptionalFields(t *testing.T) {
	raw := `{
	  "action": "WAIT",
	  "confidence": 0,
	  "reasoning": "No edge.",
	  "entry_poi": null,
	  "target_liquidity": null,
	  "stop_reference": null
	}`
	decision, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, ActionWait, decision.Action)
	assert.Nil(t, decision.EntryPOI)
	assert.Nil(t, decision.StopReference)
}

func TestParseDecisionRejectsMissingKey(t *testing.T) {
	raw := `{
	  "action": "LONG",
	  "confidence": 85,
	  "reasoning": "No stop field.",
	  "entry_poi": null,
	  "target_liquidity": 121.0
	}`
	_, err := ParseDecision(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_reference")
}

func TestParseDecisionRejectsInvalidAction(t *testing.T) {
	raw := `{
	  "action": "YOLO",
	  "confidence": 85,
	  "reasoning": "x",
	  "entry_poi": null,
	  "target_liquidity": null,
	  "stop_reference": null
	}`
	_, err := ParseDecision(raw)
	assert.Error(t, err)
}

func TestParseDecisionRejectsOutOfRangeConfidence(t *testing.T) {
	raw := `{
	  "action": "WAIT",
	  "confidence": 180,
	  "reasoning": "x",
	  "entry_poi": null,
	  "target_liquidity": null,
	  "stop_reference": null
	}`
	_, err := ParseDecision(raw)
	assert.Error(t, err)
}

func TestParseDecisionRejectsGarbage(t *testing.T) {
	_, err := ParseDecision("I think you should probably go long here!")
	assert.Error(t, err)
}
