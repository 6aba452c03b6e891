package notification

import (
	"fmt"
	"strings"
	"time"

	"openclaw-bot/internal/events"
)

func fmtPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func fmtSize(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.6f", *v)
}

// FormatPipelineEvent renders the standard alert text for one pipeline
// cycle outcome.
func FormatPipelineEvent(e events.PipelineEvent) string {
	ts := e.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")
	return fmt.Sprintf(
		"OpenClaw Alert\nTime: %s\nSymbol: %s\nStatus: %s\nAction: %s\nConfidence: %d%%\nPrice: %s\nSize: %s\nPnL(R): %s\nReason: %s",
		ts, e.Symbol, e.Status, e.Action, e.Confidence,
		fmtPrice(e.Price), fmtSize(e.Size), fmtPrice(e.PnLR), e.Reasoning,
	)
}

// BriefingLine is one symbol's state in the daily report.
type BriefingLine struct {
	Symbol    string
	Bias      string
	POI       string
	Reasoning string
}

// FormatDailyBriefing renders the morning status report.
func FormatDailyBriefing(date time.Time, lines []BriefingLine) string {
	var b strings.Builder
	b.WriteString("OpenClaw Daily Briefing\n")
	b.WriteString("Date: " + date.UTC().Format("2006-01-02") + "\n\n")
	b.WriteString("Trade Opportunities:\n")
	if len(lines) == 0 {
		b.WriteString("No trade opportunities yet.")
		return b.String()
	}
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: Bias=%s | POI=%s | Reason=%s", l.Symbol, l.Bias, l.POI, l.Reasoning)
	}
	return b.String()
}
