package model

import (
	"fmt"
	"strings"

	"reseller-billing/internal/domain"
)

// Feature is a gated capability. Each feature requires exactly one minimum tier,
// see TierCatalog.RequiredTierFor.
type Feature string

const (
	FeatureInventoryManagement Feature = "inventory_management"
	FeatureSalesTracking       Feature = "sales_tracking"
	FeatureCustomerManagement  Feature = "customer_management"
	FeatureExpenseTracker      Feature = "expense_tracker"
	FeaturePurchaseTracking    Feature = "purchase_tracking"
	FeatureCSVExport           Feature = "csv_export"
	FeaturePDFInvoices         Feature = "pdf_invoices"
	FeatureAdvancedAnalytics   Feature = "advanced_analytics"
	FeatureCustomReports       Feature = "custom_reports"
)

func AllFeatures() []Feature {
	return []Feature{
		FeatureInventoryManagement,
		FeatureSalesTracking,
		FeatureCustomerManagement,
		FeatureExpenseTracker,
		FeaturePurchaseTracking,
		FeatureCSVExport,
		FeaturePDFInvoices,
		FeatureAdvancedAnalytics,
		FeatureCustomReports,
	}
}

func ParseFeature(s string) (Feature, error) {
	f := Feature(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: unknown feature %q", domain.ErrInvalidArgument, s)
	}
	return f, nil
}

func (f Feature) Valid() bool {
	switch f {
	case FeatureInventoryManagement, FeatureSalesTracking, FeatureCustomerManagement,
		FeatureExpenseTracker, FeaturePurchaseTracking, FeatureCSVExport, FeaturePDFInvoices,
		FeatureAdvancedAnalytics, FeatureCustomReports:
		return true
	}
	return false
}

// Label is a human readable feature name used in upgrade hints.
func (f Feature) Label() string {
	return strings.ReplaceAll(string(f), "_", " ")
}
