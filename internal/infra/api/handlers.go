package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"reseller-billing/internal/domain"
	"reseller-billing/internal/domain/model"
	red "reseller-billing/internal/infra/redis"
	"reseller-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// ---- plans ----

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Plans.List())
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	tier, err := model.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Plans.Get(tier))
}

// ---- me ----

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, accountFrom(r.Context()))
}

func (s *Server) getMyEntitlements(w http.ResponseWriter, r *http.Request) {
	acc := accountFrom(r.Context())
	writeJSON(w, http.StatusOK, s.deps.Entitlements.Snapshot(acc.Tier))
}

type featureCheckResponse struct {
	Feature model.Feature `json:"feature"`
	Allowed bool          `json:"allowed"`
	Message string        `json:"message"`
}

func (s *Server) checkFeature(w http.ResponseWriter, r *http.Request) {
	feature, err := model.ParseFeature(chi.URLParam(r, "feature"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	actor, _ := actorFrom(r.Context())
	ok, msg, err := s.deps.Entitlements.CheckAccount(r.Context(), actor.AccountID, feature)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, featureCheckResponse{Feature: feature, Allowed: ok, Message: msg})
}

type limitCheckResponse struct {
	Count   int  `json:"count"`
	Limit   int  `json:"limit"`
	Allowed bool `json:"allowed"`
}

// checkItemLimit answers whether one more item fits under the caller's tier limit.
func (s *Server) checkItemLimit(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 0 {
		writeError(w, r, s.log, fmt.Errorf("%w: count must be a non-negative integer", domain.ErrInvalidArgument))
		return
	}
	acc := accountFrom(r.Context())
	writeJSON(w, http.StatusOK, limitCheckResponse{
		Count:   count,
		Limit:   s.deps.Entitlements.Snapshot(acc.Tier).ItemLimit,
		Allowed: s.deps.Entitlements.CanAddEntity(acc.Tier, count),
	})
}

func (s *Server) getMyHistory(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	hist, err := s.deps.Accounts.TierHistory(r.Context(), actor, actor.AccountID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// ---- invoices ----

type createInvoiceRequest struct {
	Plan string `json:"plan"`
}

func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var req createInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	plan, err := model.ParseTier(req.Plan)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if s.deps.Limiter != nil {
		ok, err := s.deps.Limiter.Allow(r.Context(), red.AccountActionKey(actor.AccountID, "create_invoice"),
			s.cfg.Billing.InvoiceRateLimit, s.cfg.Billing.InvoiceRateWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
		} else if !ok {
			writeError(w, r, s.log, domain.ErrRateLimited)
			return
		}
	}
	inv, err := s.deps.Invoices.CreateInvoice(r.Context(), actor, plan)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) listMyInvoices(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	list, err := s.deps.Invoices.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	inv, err := s.deps.Invoices.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// attachEvidence takes multipart form fields transaction_id and proof (file).
func (s *Server) attachEvidence(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Billing.ProofMaxBytes+(64<<10))
	if err := r.ParseMultipartForm(s.cfg.Billing.ProofMaxBytes); err != nil {
		writeError(w, r, s.log, fmt.Errorf("%w: invalid multipart body", domain.ErrInvalidArgument))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	ev := usecase.PaymentEvidence{TransactionID: r.FormValue("transaction_id")}
	file, hdr, err := r.FormFile("proof")
	switch {
	case err == nil:
		defer file.Close()
		if hdr.Size > s.cfg.Billing.ProofMaxBytes {
			writeError(w, r, s.log, fmt.Errorf("%w: proof exceeds %d bytes", domain.ErrInvalidArgument, s.cfg.Billing.ProofMaxBytes))
			return
		}
		ev.Proof = file
		ev.ProofName = hdr.Filename
		ev.ContentType = hdr.Header.Get("Content-Type")
	case err != http.ErrMissingFile:
		writeError(w, r, s.log, fmt.Errorf("%w: unreadable proof", domain.ErrInvalidArgument))
		return
	}

	inv, err := s.deps.Invoices.AttachPaymentEvidence(r.Context(), actor, chi.URLParam(r, "id"), ev)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// ---- notifications ----

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	unread := r.URL.Query().Get("unread") == "true"
	list, err := s.deps.Notifications.List(r.Context(), actor, unread, queryLimit(r, 50))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	if err := s.deps.Notifications.MarkRead(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stockAlertRequest struct {
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}

func (s *Server) stockAlert(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var req stockAlertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	created, err := s.deps.Notifications.NotifyStockLevel(r.Context(), actor, req.Item, req.Quantity, req.Threshold)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"created": created})
}

// ---- admin ----

func (s *Server) adminListInvoices(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	raw := r.URL.Query().Get("status")
	if raw == "" {
		raw = string(model.InvoiceStatusUnpaid)
	}
	status, err := model.ParseInvoiceStatus(raw)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	list, err := s.deps.Invoices.ListByStatus(r.Context(), actor, status, queryLimit(r, 100))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) adminVerifyInvoice(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	inv, err := s.deps.Invoices.VerifyAndMarkPaid(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) adminExpireInvoice(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	inv, err := s.deps.Invoices.MarkExpired(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

type forceStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) adminForceStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var req forceStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	status, err := model.ParseInvoiceStatus(req.Status)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	inv, err := s.deps.Invoices.ForceStatus(r.Context(), actor, chi.URLParam(r, "id"), status)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) adminDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	if err := s.deps.Invoices.DeleteInvoice(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminGetAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	acc, err := s.deps.Accounts.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

type setTierRequest struct {
	Tier      string     `json:"tier"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason"`
}

func (s *Server) adminSetTier(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var req setTierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	tier, err := model.ParseTier(req.Tier)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	acc, err := s.deps.Accounts.SetTier(r.Context(), actor, chi.URLParam(r, "id"), tier, req.ExpiresAt, req.Reason)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) adminSetRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	acc, err := s.deps.Accounts.SetRole(r.Context(), actor, chi.URLParam(r, "id"), role)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (s *Server) adminTierHistory(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	hist, err := s.deps.Accounts.TierHistory(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

type statsResponse struct {
	AccountsByTier   map[model.Tier]int          `json:"accounts_by_tier"`
	InvoicesByStatus map[model.InvoiceStatus]int `json:"invoices_by_status"`
	Revenue          revenue                     `json:"revenue"`
	Currency         string                      `json:"currency"`
}

type revenue struct {
	Week  int64 `json:"week"`
	Month int64 `json:"month"`
	Year  int64 `json:"year"`
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	byTier, byStatus, err := s.deps.Stats.Totals(r.Context(), actor)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	wk, mo, yr, err := s.deps.Stats.Revenue(r.Context(), actor)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		AccountsByTier:   byTier,
		InvoicesByStatus: byStatus,
		Revenue:          revenue{Week: wk, Month: mo, Year: yr},
		Currency:         s.deps.Plans.Currency(),
	})
}

func (s *Server) adminRunExpiry(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Expiry.RunOnce(r.Context(), s.now())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) adminRunSweep(w http.ResponseWriter, r *http.Request) {
	expired, reminded, err := s.deps.Invoices.SweepOverdue(r.Context(), s.now())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"expired": expired, "reminded": reminded})
}

func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > 500 {
		return def
	}
	return n
}
