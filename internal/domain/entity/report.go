package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Status values used by every optional report sub-section so consumers can
// detect partial results without exceptions.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// ContainerEntry is one resolved child of a dynamic-field container.
type ContainerEntry struct {
	ContainerID string `json:"containerId"`
	FieldName   Value  `json:"fieldName"`
	ObjectID    string `json:"objectId"`
	ObjectType  string `json:"objectType"`
	Content     Value  `json:"-"`
}

// ExtractionResult holds what the heuristic engine pulled out of a single
// container entry. Immutable after creation.
type ExtractionResult struct {
	MatchedTypeMarker string              `json:"matchedTypeMarker,omitempty"`
	Amounts           map[string]*big.Int `json:"amounts"`
}

// ScannedEntry combines provenance with the extraction outcome for one
// matched container entry.
type ScannedEntry struct {
	ContainerID    string              `json:"containerId"`
	FieldName      Value               `json:"dynamicFieldName"`
	ObjectID       string              `json:"objectId"`
	ObjectType     string              `json:"objectType"`
	CoinType       string              `json:"coinType,omitempty"`
	Amounts        map[string]*big.Int `json:"amounts"`
	PickedField    string              `json:"pickedField,omitempty"`
	PickedValueRaw *big.Int            `json:"pickedValueRaw,omitempty"`
}

// InspectedEntry records a non-matching entry for debugging scans.
type InspectedEntry struct {
	ContainerID string `json:"containerId"`
	FieldName   Value  `json:"dynamicFieldName"`
	ObjectID    string `json:"objectId"`
	ObjectType  string `json:"objectType"`
}

// PriceSupplySnapshot is the merged outcome of the external fallback chain.
// Fields filled by a higher-precedence source are never overwritten.
type PriceSupplySnapshot struct {
	Source            string           `json:"source"`
	PriceUsd          *decimal.Decimal `json:"priceUsd,omitempty"`
	CirculatingSupply *decimal.Decimal `json:"circulatingSupply,omitempty"`
	TotalSupply       *decimal.Decimal `json:"totalSupply,omitempty"`
	Status            string           `json:"status"`
	Error             string           `json:"error,omitempty"`
}

// Complete reports whether every field the chain can fill is filled.
func (s *PriceSupplySnapshot) Complete() bool {
	return s.PriceUsd != nil && s.CirculatingSupply != nil && s.TotalSupply != nil
}

// PriceSupplyQuote is the raw contribution of a single external source
// before precedence merging. Any field may be nil.
type PriceSupplyQuote struct {
	PriceUsd          *decimal.Decimal
	CirculatingSupply *decimal.Decimal
	TotalSupply       *decimal.Decimal
}

// Empty reports whether the quote carries no usable field at all.
func (q *PriceSupplyQuote) Empty() bool {
	return q == nil || (q.PriceUsd == nil && q.CirculatingSupply == nil && q.TotalSupply == nil)
}

// ScanReport is the top-level answer for one protocol scan. Created fresh
// per invocation; nothing persists beyond process lifetime.
type ScanReport struct {
	CoinType          string               `json:"coinType"`
	Protocol          string               `json:"protocol"`
	ContainersScanned []string             `json:"containersScanned"`
	EntriesFound      int                  `json:"entriesFound"`
	Entries           []ScannedEntry       `json:"entries"`
	Inspections       []InspectedEntry     `json:"inspections,omitempty"`
	LockedTotalRaw    *big.Int             `json:"lockedTotalRaw"`
	LockedTotalHuman  string               `json:"lockedTotalHuman"`
	TvlUsdEstimate    *decimal.Decimal     `json:"tvlUsdEstimate,omitempty"`
	Fallback          *PriceSupplySnapshot `json:"fallback,omitempty"`
}

// CoinMetadata mirrors the node's coin metadata response.
type CoinMetadata struct {
	Decimals    uint8  `json:"decimals"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// SupplySection reports the on-chain total supply with its own status.
type SupplySection struct {
	Raw    string `json:"raw,omitempty"`
	Human  string `json:"human,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BalanceSection reports a single owner's balance of the target coin.
type BalanceSection struct {
	Owner string `json:"owner"`
	Raw   string `json:"raw"`
	Human string `json:"human"`
}

// CoinReport is the metadata/supply/balance answer for the target coin.
type CoinReport struct {
	CoinType          string               `json:"coinType"`
	Metadata          *CoinMetadata        `json:"metadata"`
	TotalSupply       SupplySection        `json:"totalSupply"`
	SupplyFallback    *PriceSupplySnapshot `json:"supplyFallback,omitempty"`
	OwnerBalance      *BalanceSection      `json:"ownerBalance,omitempty"`
	OwnerBalanceError string               `json:"ownerBalanceError,omitempty"`
}
