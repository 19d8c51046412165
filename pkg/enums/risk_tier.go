package enums

import "fmt"

// RiskTier buckets a phone's delivery history. RiskTierNew means no history,
// which is not the same as safe.
type RiskTier string

const (
	RiskTierNew     RiskTier = "new"
	RiskTierSafe    RiskTier = "safe"
	RiskTierCaution RiskTier = "caution"
	RiskTierRisk    RiskTier = "risk"
	RiskTierUnknown RiskTier = "unknown"
)

var validRiskTiers = []RiskTier{
	RiskTierNew,
	RiskTierSafe,
	RiskTierCaution,
	RiskTierRisk,
	RiskTierUnknown,
}

func (r RiskTier) String() string {
	return string(r)
}

func (r RiskTier) IsValid() bool {
	for _, candidate := range validRiskTiers {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseRiskTier(value string) (RiskTier, error) {
	for _, candidate := range validRiskTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid risk tier %q", value)
}
