package models

import "strings"

// Tier is the risk classification of a free-text message.
type Tier string

const (
	TierLow      Tier = "LOW"
	TierModerate Tier = "MODERATE"
	TierHigh     Tier = "HIGH"
	TierCritical Tier = "CRITICAL"
)

// Tiers in descending severity; ParseTier scans in this order.
var Tiers = []Tier{TierCritical, TierHigh, TierModerate, TierLow}

// ParseTier reads a classifier answer. An exact match wins, otherwise the most severe
// tier mentioned anywhere in the text, otherwise Low.
func ParseTier(raw string) Tier {
	v := strings.ToUpper(strings.TrimSpace(raw))
	for _, t := range Tiers {
		if v == string(t) {
			return t
		}
	}
	for _, t := range Tiers {
		if strings.Contains(v, string(t)) {
			return t
		}
	}
	return TierLow
}
