package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"evdealer/backend/internal/apperr"
	"evdealer/backend/internal/domain"
)

func (a *API) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateDepositDraft(body); err != nil {
		a.fail(w, r, err)
		return
	}

	var draft domain.DepositDraft
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	d, err := a.lifecycle.CreateDeposit(r.Context(), draft)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DepositFilter{
		Status:     domain.DepositStatus(strings.TrimSpace(q.Get("status"))),
		Type:       domain.DepositType(strings.TrimSpace(q.Get("type"))),
		CustomerID: strings.TrimSpace(q.Get("customer_id")),
		DealerID:   strings.TrimSpace(q.Get("dealer_id")),
	}
	deposits, err := a.lifecycle.ListDeposits(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposits": deposits})
}

func (a *API) handleGetDeposit(w http.ResponseWriter, r *http.Request) {
	d, err := a.lifecycle.GetDeposit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	if err := a.lifecycle.DeleteDeposit(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePayable(w http.ResponseWriter, r *http.Request) {
	p, err := a.lifecycle.Payable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleConfirm(w http.ResponseWriter, r *http.Request) {
	d, err := a.lifecycle.Confirm(r.Context(), chi.URLParam(r, "id"))
	a.respondDeposit(w, r, d, err)
}

func (a *API) handleManufacturerOrder(w http.ResponseWriter, r *http.Request) {
	d, task, err := a.lifecycle.PlaceManufacturerOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposit": d, "task": task})
}

func (a *API) handleArrival(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VehicleID string `json:"vehicle_id"`
	}
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	d, err := a.lifecycle.MarkArrived(r.Context(), chi.URLParam(r, "id"), req.VehicleID)
	a.respondDeposit(w, r, d, err)
}

func (a *API) handleNotifyStaff(w http.ResponseWriter, r *http.Request) {
	d, err := a.lifecycle.NotifyStaff(r.Context(), chi.URLParam(r, "id"))
	a.respondDeposit(w, r, d, err)
}

func (a *API) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	d, err := a.lifecycle.Acknowledge(r.Context(), chi.URLParam(r, "id"))
	a.respondDeposit(w, r, d, err)
}

func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	d, err := a.lifecycle.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
	a.respondDeposit(w, r, d, err)
}

func (a *API) handleSettleFull(w http.ResponseWriter, r *http.Request) {
	res, err := a.settlement.SettleFull(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleSettleInstallment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Months int `json:"months"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.settlement.SettleInstallment(r.Context(), chi.URLParam(r, "id"), req.Months)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleInstallmentQuote(w http.ResponseWriter, r *http.Request) {
	principal, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("principal")), 10, 64)
	if err != nil {
		a.fail(w, r, apperr.InvalidArgument("principal must be an integer amount"))
		return
	}
	months, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("months")))
	if err != nil {
		a.fail(w, r, apperr.InvalidArgument("months must be an integer"))
		return
	}
	quote, err := a.settlement.QuoteInstallment(principal, months)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *API) respondDeposit(w http.ResponseWriter, r *http.Request, d domain.Deposit, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
