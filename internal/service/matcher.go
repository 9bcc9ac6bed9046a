package service

import (
	"strings"

	"github.com/GhostQS/alphalend-supply/internal/domain/entity"
)

// MarkerMatch is the outcome of a successful marker search.
type MarkerMatch struct {
	// Subtree is the node at which the marker was recognized.
	Subtree entity.Value
	// CoinType is the marker as found, normalized to carry the standard
	// "0x" prefix when the on-chain encoding omits it.
	CoinType string
}

// markerSuffix derives the marker's distinguishing suffix: its final two
// path segments (e.g. "::TBTC::TBTC"). Nested identity fields commonly
// store the type without its address prefix, so the suffix is what can be
// relied on there.
func markerSuffix(marker string) string {
	parts := strings.Split(marker, "::")
	if len(parts) < 3 {
		return marker
	}
	return "::" + strings.Join(parts[len(parts)-2:], "::")
}

// FindTypeMarker searches a value tree depth-first, pre-order, for the
// target coin type marker. A node matches when its "type"/"dataType" tag
// contains the marker as a substring, when a direct string value contains
// the full marker, or when a field named "name" carries the marker's
// suffix. The search stops at the first match; an absent marker returns
// nil, which is an expected outcome, not an error.
func FindTypeMarker(value entity.Value, marker string) *MarkerMatch {
	return findMarker(value, marker, markerSuffix(marker))
}

func findMarker(value entity.Value, marker, suffix string) *MarkerMatch {
	switch value.Kind() {
	case entity.KindString:
		if strings.Contains(value.Str(), marker) {
			return &MarkerMatch{Subtree: value, CoinType: marker}
		}
	case entity.KindSequence:
		for _, item := range value.Sequence() {
			if match := findMarker(item, marker, suffix); match != nil {
				return match
			}
		}
	case entity.KindMapping:
		// Type-identifying tags on the node itself come first.
		for _, tag := range []string{"type", "dataType"} {
			if t := value.GetString(tag); t != "" && strings.Contains(t, marker) {
				return &MarkerMatch{Subtree: value, CoinType: marker}
			}
		}
		if name := value.GetString("name"); name != "" && strings.Contains(name, suffix) {
			return &MarkerMatch{Subtree: value, CoinType: normalizeCoinType(name)}
		}
		for _, key := range value.SortedKeys() {
			child, _ := value.Get(key)
			if match := findMarker(child, marker, suffix); match != nil {
				return match
			}
		}
	}
	return nil
}

// normalizeCoinType restores the standard address prefix that nested
// identity fields tend to drop.
func normalizeCoinType(coinType string) string {
	if strings.HasPrefix(coinType, "0x") {
		return coinType
	}
	return "0x" + coinType
}
