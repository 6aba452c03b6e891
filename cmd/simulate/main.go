// Command simulate posts a synthetic pipeline event to the internal ingest
// endpoint so the dashboard path can be validated without waiting for a
// live signal.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"openclaw-bot/config"
	"openclaw-bot/internal/events"
)

func main() {
	url := flag.String("url", "", "internal ai-event URL (defaults to the configured server port)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	endpoint := *url
	if endpoint == "" {
		endpoint = fmt.Sprintf("http://localhost:%d/internal/ai-event", cfg.ServerConfig.Port)
	}

	price := 69420.50
	size := 0.05
	pnlR := 0.0
	event := events.PipelineEvent{
		Timestamp:  time.Now().UTC(),
		Symbol:     cfg.TradingConfig.Symbol,
		Action:     "LONG",
		Confidence: 81,
		Reasoning:  "Simulated signal for dashboard path validation.",
		Status:     events.StatusExecuted,
		Price:      &price,
		Size:       &size,
		PnLR:       &pnlR,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Token", cfg.ServerConfig.InternalToken)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d Body: %s\n", resp.StatusCode, string(body))
}
