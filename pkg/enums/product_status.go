package enums

import "fmt"

// ProductStatus tracks where a catalog record sits in the moderation workflow.
type ProductStatus string

const (
	ProductStatusAdminCreated ProductStatus = "admin_created"
	ProductStatusPending      ProductStatus = "pending"
	ProductStatusVerified     ProductStatus = "verified"
	ProductStatusCommunity    ProductStatus = "community"
	ProductStatusFlagged      ProductStatus = "flagged"
	ProductStatusMigrated     ProductStatus = "migrated"
	ProductStatusPromoted     ProductStatus = "promoted"
)

var validProductStatuses = []ProductStatus{
	ProductStatusAdminCreated,
	ProductStatusPending,
	ProductStatusVerified,
	ProductStatusCommunity,
	ProductStatusFlagged,
	ProductStatusMigrated,
	ProductStatusPromoted,
}

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	for _, candidate := range validProductStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
