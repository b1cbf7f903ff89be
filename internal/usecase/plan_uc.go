package usecase

import (
	"reseller-billing/internal/domain/model"
)

// PlanView is a plan with the features it unlocks, for pricing pages.
type PlanView struct {
	model.Plan
	Currency string          `json:"currency"`
	Features []model.Feature `json:"features"`
}

// PlanUseCase exposes the read-only tier catalog.
type PlanUseCase struct {
	catalog *model.TierCatalog
}

func NewPlanUseCase(catalog *model.TierCatalog) *PlanUseCase {
	return &PlanUseCase{catalog: catalog}
}

// List returns every plan from lowest to highest, each with all features available at that level.
func (uc *PlanUseCase) List() []PlanView {
	var unlocked []model.Feature
	out := make([]PlanView, 0, len(model.AllTiers()))
	for _, p := range uc.catalog.Plans() {
		unlocked = append(unlocked, uc.catalog.FeaturesFor(p.Tier)...)
		features := make([]model.Feature, len(unlocked))
		copy(features, unlocked)
		out = append(out, PlanView{Plan: p, Currency: uc.catalog.Currency(), Features: features})
	}
	return out
}

func (uc *PlanUseCase) Get(tier model.Tier) PlanView {
	for _, v := range uc.List() {
		if v.Tier == tier {
			return v
		}
	}
	return PlanView{}
}

func (uc *PlanUseCase) Currency() string { return uc.catalog.Currency() }
