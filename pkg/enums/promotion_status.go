package enums

import "fmt"

// PromotionStatus tracks a custom product's path into the shared catalog.
type PromotionStatus string

const (
	PromotionStatusNone          PromotionStatus = "none"
	PromotionStatusPendingReview PromotionStatus = "pending_review"
	PromotionStatusPromoted      PromotionStatus = "promoted"
	PromotionStatusRejected      PromotionStatus = "rejected"
)

var validPromotionStatuses = []PromotionStatus{
	PromotionStatusNone,
	PromotionStatusPendingReview,
	PromotionStatusPromoted,
	PromotionStatusRejected,
}

// String implements fmt.Stringer.
func (s PromotionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PromotionStatus.
func (s PromotionStatus) IsValid() bool {
	for _, candidate := range validPromotionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePromotionStatus converts raw input into a PromotionStatus.
func ParsePromotionStatus(value string) (PromotionStatus, error) {
	for _, candidate := range validPromotionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion status %q", value)
}
