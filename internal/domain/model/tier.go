package model

import (
	"fmt"
	"strings"

	"reseller-billing/internal/domain"
)

// Tier is a subscription plan level. The zero value is not a valid tier.
type Tier string

const (
	TierStarterKit Tier = "starter_kit"
	TierDealerPack Tier = "dealer_pack"
	TierEmpirePlan Tier = "empire_plan"
)

// AllTiers lists every tier from lowest to highest level.
func AllTiers() []Tier {
	return []Tier{TierStarterKit, TierDealerPack, TierEmpirePlan}
}

// ParseTier validates a raw string coming from storage or a request.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", domain.ErrInvalidArgument, s)
	}
	return t, nil
}

func (t Tier) Valid() bool {
	switch t {
	case TierStarterKit, TierDealerPack, TierEmpirePlan:
		return true
	}
	return false
}

// Level is the total order used for every "at least tier X" check.
func (t Tier) Level() int {
	switch t {
	case TierStarterKit:
		return 0
	case TierDealerPack:
		return 1
	case TierEmpirePlan:
		return 2
	}
	panic(fmt.Sprintf("model: level of invalid tier %q", string(t)))
}

func (t Tier) AtLeast(other Tier) bool { return t.Level() >= other.Level() }

func (t Tier) String() string { return string(t) }
