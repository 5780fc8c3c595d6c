package notify

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fenilmodi00/ipo-agent/models"
)

// Telegram Markdown building blocks shared by every outgoing update.
const (
	messageDivider = "\n---\n"
	messageFooter  = "\n\n_Disclaimer: not investment advice._"
)

// Header renders the leading block carried by every message batch.
func Header(now time.Time) string {
	return fmt.Sprintf("*IPO Agent update — %s UTC*\n\n", now.UTC().Format("2006-01-02 15:04:05"))
}

// FormatEvent renders one decided alert as a Telegram Markdown block. Every
// block ends with a newline so joined blocks keep their line rhythm.
func FormatEvent(event models.AlertEvent) string {
	switch event.Type {
	case models.EventNewIPO:
		return formatNewIPO(event.Record)
	case models.EventStatusChanged:
		return formatStatusChange(event.Record, event.OldStatus, event.NewStatus)
	case models.EventGMPAlert:
		return formatGMPAlert(event.Record, event.Aggregate)
	}
	return ""
}

func formatNewIPO(record *models.IPORecord) string {
	return fmt.Sprintf("📢 *New IPO:* %s (%s)\nOpen: %s — Close: %s\nPrice band: ₹%s–₹%s\n",
		record.CompanyName,
		record.DisplaySymbol(),
		fallbackText(record.IssueOpenDate),
		fallbackText(record.IssueCloseDate),
		priceBoundText(record.PriceBandLow),
		priceBoundText(record.PriceBandHigh),
	)
}

func formatStatusChange(record *models.IPORecord, oldStatus, newStatus models.Status) string {
	return fmt.Sprintf("🔄 *Status change:* %s (%s)\n%s → %s\n",
		record.CompanyName,
		record.DisplaySymbol(),
		oldStatus,
		newStatus,
	)
}

func formatGMPAlert(record *models.IPORecord, aggregate *models.GMPAggregate) string {
	midpointText := "N/A"
	if midpoint, available := record.PriceBandMidpoint(); available {
		midpointText = "₹" + strconv.FormatFloat(midpoint, 'f', -1, 64)
	}

	return fmt.Sprintf("📈 *GMP Alert:* %s\nGMP (median): ₹%.1f (confidence %.2f)\nPrice band midpoint: %s\n",
		record.CompanyName,
		aggregate.Median,
		aggregate.Confidence,
		midpointText,
	)
}

func fallbackText(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

// priceBoundText renders a band bound. Upstream payloads use zero for
// unknown bounds, so zero renders the same as absent.
func priceBoundText(value *float64) string {
	if value == nil || *value == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
