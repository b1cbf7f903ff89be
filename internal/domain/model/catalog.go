package model

import (
	"fmt"

	"reseller-billing/internal/domain"
)

// Unlimited marks a tier without an entity cap.
const Unlimited = -1

// Plan is the purchasable view of a tier.
type Plan struct {
	Tier         Tier   `json:"tier"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	ItemLimit    int    `json:"item_limit"` // Unlimited (-1) means no cap
	DurationDays int    `json:"duration_days"`
}

// PlanOverride carries deploy-time adjustments read from config.
// Zero fields keep the default.
type PlanOverride struct {
	Name         string
	Price        *int64
	ItemLimit    *int
	DurationDays int
}

// TierCatalog is the static table of plans, limits and feature requirements.
// It is built once at start-up and never mutated; accessors return copies.
type TierCatalog struct {
	currency string
	plans    map[Tier]Plan
	features map[Feature]Tier
}

func defaultPlans() map[Tier]Plan {
	return map[Tier]Plan{
		TierStarterKit: {Tier: TierStarterKit, Name: "Starter Kit", Price: 0, ItemLimit: 50},
		TierDealerPack: {Tier: TierDealerPack, Name: "Dealer Pack", Price: 600, ItemLimit: 500, DurationDays: 30},
		TierEmpirePlan: {Tier: TierEmpirePlan, Name: "Empire Plan", Price: 1500, ItemLimit: Unlimited, DurationDays: 30},
	}
}

func defaultFeatureTiers() map[Feature]Tier {
	return map[Feature]Tier{
		FeatureInventoryManagement: TierStarterKit,
		FeatureSalesTracking:       TierStarterKit,
		FeatureCustomerManagement:  TierStarterKit,
		FeatureExpenseTracker:      TierDealerPack,
		FeaturePurchaseTracking:    TierDealerPack,
		FeatureCSVExport:           TierDealerPack,
		FeaturePDFInvoices:         TierDealerPack,
		FeatureAdvancedAnalytics:   TierEmpirePlan,
		FeatureCustomReports:       TierEmpirePlan,
	}
}

// DefaultTierCatalog returns the built-in catalog priced in PKR.
func DefaultTierCatalog() *TierCatalog {
	c, err := NewTierCatalog("PKR", nil)
	if err != nil {
		panic(err)
	}
	return c
}

// NewTierCatalog applies overrides on top of the built-in plans and validates the result.
func NewTierCatalog(currency string, overrides map[Tier]PlanOverride) (*TierCatalog, error) {
	if currency == "" {
		currency = "PKR"
	}
	plans := defaultPlans()
	for t, o := range overrides {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: override for unknown tier %q", domain.ErrInvalidArgument, string(t))
		}
		p := plans[t]
		if o.Name != "" {
			p.Name = o.Name
		}
		if o.Price != nil {
			p.Price = *o.Price
		}
		if o.ItemLimit != nil {
			p.ItemLimit = *o.ItemLimit
		}
		if o.DurationDays > 0 {
			p.DurationDays = o.DurationDays
		}
		plans[t] = p
	}

	for _, t := range AllTiers() {
		p := plans[t]
		if p.Price < 0 || (p.ItemLimit < 0 && p.ItemLimit != Unlimited) {
			return nil, fmt.Errorf("%w: plan %s has negative price or limit", domain.ErrInvalidArgument, t)
		}
		if t != TierStarterKit && (p.Price == 0 || p.DurationDays <= 0) {
			return nil, fmt.Errorf("%w: paid plan %s needs a price and a duration", domain.ErrInvalidArgument, t)
		}
	}

	return &TierCatalog{currency: currency, plans: plans, features: defaultFeatureTiers()}, nil
}

func (c *TierCatalog) Currency() string { return c.currency }

func (c *TierCatalog) LevelOf(t Tier) int { return t.Level() }

// LimitOf returns the item cap of a tier, or Unlimited.
func (c *TierCatalog) LimitOf(t Tier) int { return c.mustPlan(t).ItemLimit }

func (c *TierCatalog) PriceOf(t Tier) int64 { return c.mustPlan(t).Price }

func (c *TierCatalog) DurationDaysOf(t Tier) int { return c.mustPlan(t).DurationDays }

// RequiredTierFor returns the minimum tier that unlocks f.
func (c *TierCatalog) RequiredTierFor(f Feature) Tier {
	t, ok := c.features[f]
	if !ok {
		panic(fmt.Sprintf("model: no tier mapping for feature %q", string(f)))
	}
	return t
}

// Lowest is the free tier every account starts on.
func (c *TierCatalog) Lowest() Tier { return TierStarterKit }

func (c *TierCatalog) Plan(t Tier) Plan { return c.mustPlan(t) }

// Plans lists all plans ordered by level.
func (c *TierCatalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, t := range AllTiers() {
		out = append(out, c.plans[t])
	}
	return out
}

// FeaturesFor lists the features unlocked exactly at tier t.
func (c *TierCatalog) FeaturesFor(t Tier) []Feature {
	var out []Feature
	for _, f := range AllFeatures() {
		if c.features[f] == t {
			out = append(out, f)
		}
	}
	return out
}

func (c *TierCatalog) mustPlan(t Tier) Plan {
	p, ok := c.plans[t]
	if !ok {
		panic(fmt.Sprintf("model: no plan for tier %q", string(t)))
	}
	return p
}
