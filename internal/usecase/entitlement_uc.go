package usecase

import (
	"context"
	"fmt"

	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/domain/ports/repository"
	"reseller-billing/internal/infra/metrics"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

type EntitlementUseCase interface {
	CanAccess(tier model.Tier, feature model.Feature) bool
	CanAddEntity(tier model.Tier, currentCount int) bool
	UpgradeMessage(tier model.Tier, feature model.Feature) string
	// Snapshot lists every feature decision and the item limit for a tier.
	Snapshot(tier model.Tier) Entitlements
	// CheckAccount loads the account's current tier and evaluates feature.
	CheckAccount(ctx context.Context, accountID string, feature model.Feature) (bool, string, error)
}

// Entitlements is the computed capability set of one tier.
type Entitlements struct {
	Tier      model.Tier             `json:"tier"`
	ItemLimit int                    `json:"item_limit"`
	Features  map[model.Feature]bool `json:"features"`
}

type entitlementUC struct {
	catalog  *model.TierCatalog
	accounts repository.AccountRepository
}

func NewEntitlementUseCase(catalog *model.TierCatalog, accounts repository.AccountRepository) *entitlementUC {
	return &entitlementUC{catalog: catalog, accounts: accounts}
}

func (u *entitlementUC) CanAccess(tier model.Tier, feature model.Feature) bool {
	ok := u.catalog.LevelOf(tier) >= u.catalog.LevelOf(u.catalog.RequiredTierFor(feature))
	metrics.IncEntitlementCheck(string(feature), ok)
	return ok
}

// CanAddEntity is strict: an account exactly at its limit cannot add more.
func (u *entitlementUC) CanAddEntity(tier model.Tier, currentCount int) bool {
	limit := u.catalog.LimitOf(tier)
	if limit == model.Unlimited {
		return true
	}
	return currentCount < limit
}

func (u *entitlementUC) UpgradeMessage(tier model.Tier, feature model.Feature) string {
	required := u.catalog.RequiredTierFor(feature)
	if u.catalog.LevelOf(tier) >= u.catalog.LevelOf(required) {
		return fmt.Sprintf("%s is included in your %s plan.", feature.Label(), u.catalog.Plan(tier).Name)
	}
	return fmt.Sprintf("Upgrade to %s or higher to unlock %s.", u.catalog.Plan(required).Name, feature.Label())
}

func (u *entitlementUC) Snapshot(tier model.Tier) Entitlements {
	out := Entitlements{
		Tier:      tier,
		ItemLimit: u.catalog.LimitOf(tier),
		Features:  make(map[model.Feature]bool, len(model.AllFeatures())),
	}
	for _, f := range model.AllFeatures() {
		out.Features[f] = u.catalog.LevelOf(tier) >= u.catalog.LevelOf(u.catalog.RequiredTierFor(f))
	}
	return out
}

func (u *entitlementUC) CheckAccount(ctx context.Context, accountID string, feature model.Feature) (bool, string, error) {
	acc, err := u.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		return false, "", err
	}
	return u.CanAccess(acc.Tier, feature), u.UpgradeMessage(acc.Tier, feature), nil
}
