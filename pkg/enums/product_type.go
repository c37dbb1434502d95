package enums

import (
	"fmt"
	"strings"
)

// ProductType distinguishes single titles from bundles.
type ProductType string

const (
	ProductTypePrimary ProductType = "PRIMARY"
	ProductTypeBundle  ProductType = "BUNDLE"
)

var validProductTypes = []ProductType{
	ProductTypePrimary,
	ProductTypeBundle,
}

// String implements fmt.Stringer.
func (t ProductType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ProductType.
func (t ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseProductType converts raw input into a ProductType. Matching ignores case
// since the value usually arrives as a URL path segment.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
