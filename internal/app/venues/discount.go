package venues

import "fmt"

// DiscountPolicy decides how an incoming discount is converted to the stored
// fraction. Stored values are always fractions in [0,1].
type DiscountPolicy string

const (
	// DiscountFraction only accepts fractions in [0,1].
	DiscountFraction DiscountPolicy = "fraction"
	// DiscountLegacyPercent keeps values in [0,1] as fractions and divides
	// values in (1,100] by 100. A value of exactly 1 means 100%.
	DiscountLegacyPercent DiscountPolicy = "legacy-percent"
)

// ParseDiscountPolicy maps a configuration value to a policy. Empty selects
// DiscountLegacyPercent.
func ParseDiscountPolicy(raw string) (DiscountPolicy, error) {
	switch DiscountPolicy(raw) {
	case "":
		return DiscountLegacyPercent, nil
	case DiscountFraction, DiscountLegacyPercent:
		return DiscountPolicy(raw), nil
	default:
		return "", fmt.Errorf("unknown discount policy %q", raw)
	}
}

// Normalize converts v to a stored fraction.
func (p DiscountPolicy) Normalize(v float64) (float64, error) {
	if v < 0 {
		return 0, invalidf("discount must be >= 0")
	}
	if v <= 1 {
		return v, nil
	}
	if p == DiscountLegacyPercent && v <= 100 {
		return v / 100, nil
	}
	if p == DiscountLegacyPercent {
		return 0, invalidf("discount must be a fraction (0-1) or a percent (0-100)")
	}
	return 0, invalidf("discount must be a fraction between 0 and 1")
}
