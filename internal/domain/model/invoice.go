package model

import (
	"fmt"
	"strings"
	"time"

	"reseller-billing/internal/domain"
)

type InvoiceStatus string

const (
	InvoiceStatusUnpaid  InvoiceStatus = "UNPAID"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusExpired InvoiceStatus = "EXPIRED"
)

// InvoiceDueAfter is the payment window of a new invoice.
const InvoiceDueAfter = 3 * 24 * time.Hour

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case InvoiceStatusUnpaid, InvoiceStatusPaid, InvoiceStatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown invoice status %q", domain.ErrInvalidArgument, s)
}

// CanTransition is the normal forward-only state machine. PAID and EXPIRED are terminal.
func (s InvoiceStatus) CanTransition(to InvoiceStatus) bool {
	return s == InvoiceStatusUnpaid && (to == InvoiceStatusPaid || to == InvoiceStatusExpired)
}

func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusExpired
}

// Invoice is one tier-change request. Amount is a snapshot of the plan price
// at creation and is never recomputed.
type Invoice struct {
	ID              string        `json:"id"`
	Number          string        `json:"number"`
	AccountID       string        `json:"account_id"`
	Plan            Tier          `json:"plan"`
	Amount          int64         `json:"amount"`
	Currency        string        `json:"currency"`
	Status          InvoiceStatus `json:"status"`
	InvoiceDate     time.Time     `json:"invoice_date"`
	DueDate         time.Time     `json:"due_date"`
	TransactionID   *string       `json:"transaction_id,omitempty"`
	PaymentProofURL *string       `json:"payment_proof_url,omitempty"`
	VerifiedBy      *string       `json:"verified_by,omitempty"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// FormatInvoiceNumber renders a sequence value as a human readable number.
func FormatInvoiceNumber(seq int64) string {
	return fmt.Sprintf("INV-%06d", seq)
}

// Overdue reports an unpaid invoice past its due date.
func (inv *Invoice) Overdue(now time.Time) bool {
	return inv.Status == InvoiceStatusUnpaid && now.After(inv.DueDate)
}
