package enums

import "fmt"

// StockMovementReason classifies inventory adjustments.
type StockMovementReason string

const (
	StockMovementRestock    StockMovementReason = "restock"
	StockMovementOut        StockMovementReason = "out"
	StockMovementReturn     StockMovementReason = "return"
	StockMovementAdjustment StockMovementReason = "adjustment"
	StockMovementCorrection StockMovementReason = "correction"
)

var validStockMovementReasons = []StockMovementReason{
	StockMovementRestock,
	StockMovementOut,
	StockMovementReturn,
	StockMovementAdjustment,
	StockMovementCorrection,
}

// String implements fmt.Stringer.
func (r StockMovementReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StockMovementReason.
func (r StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// AllowsNegativeStock reports whether a movement of this reason may drive the
// stock counter below zero. Only manual corrections may; sales and adjustments
// are rejected instead.
func (r StockMovementReason) AllowsNegativeStock() bool {
	return r == StockMovementCorrection
}

// ParseStockMovementReason converts raw input into a StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
