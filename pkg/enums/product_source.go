package enums

import "fmt"

// ProductSource discriminates shared catalog records from store-private ones.
type ProductSource string

const (
	ProductSourceGlobalCatalog ProductSource = "global_catalog"
	ProductSourceStoreCustom   ProductSource = "store_custom"
)

var validProductSources = []ProductSource{
	ProductSourceGlobalCatalog,
	ProductSourceStoreCustom,
}

// String implements fmt.Stringer.
func (s ProductSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductSource.
func (s ProductSource) IsValid() bool {
	for _, candidate := range validProductSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseProductSource converts raw input into a ProductSource. Legacy rows carry
// no discriminator; an empty value normalizes to the global catalog.
func ParseProductSource(value string) (ProductSource, error) {
	if value == "" {
		return ProductSourceGlobalCatalog, nil
	}
	for _, candidate := range validProductSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product source %q", value)
}
