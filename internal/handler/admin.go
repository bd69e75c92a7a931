package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/auth"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	service "github.com/honeynil/PaymentServiceBF/internal/services"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, expiresAt, err := h.admins.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "expiresAt": expiresAt})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, r, pkgerrors.ErrUnauthorized)
		return
	}
	if err := h.admins.Logout(r.Context(), actor); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type adminListResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	Pagination   pagination           `json:"pagination"`
	Stats        models.Stats         `json:"stats"`
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), "page")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.payments.AdminListTransactions(r.Context(), service.AdminListFilter{
		Status:        models.Status(q.Get("status")),
		PaymentMethod: models.PaymentMethod(q.Get("paymentMethod")),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	txs := res.Transactions
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, adminListResponse{
		Transactions: txs,
		Pagination:   pagination{Page: res.Page, Limit: res.Limit, Total: res.Total},
		Stats:        res.Stats,
	})
}

func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, pkgerrors.Validation(field, "Paramètre %s invalide", field)
	}
	return n, nil
}

type validateResponse struct {
	TransactionID string        `json:"transactionId"`
	Status        models.Status `json:"status"`
	Message       string        `json:"message"`
	ValidatedAt   time.Time     `json:"validatedAt"`
	InvoiceURL    string        `json:"invoiceUrl"`
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdminNote       string `json:"adminNote"`
		ValidatedAmount *int64 `json:"validatedAmount"`
	}
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	actor, _ := auth.ActorFromContext(r.Context())
	tx, err := h.payments.Validate(r.Context(), actor, mux.Vars(r)["id"], service.ValidateInput{
		AdminNote:       req.AdminNote,
		ValidatedAmount: req.ValidatedAmount,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := validateResponse{TransactionID: tx.ID, Status: tx.Status, Message: tx.Status.Message()}
	if tx.Validation != nil {
		resp.ValidatedAt = tx.Validation.ValidatedAt
	}
	if tx.Invoice != nil {
		resp.InvoiceURL = tx.Invoice.URL
	}
	writeJSON(w, http.StatusOK, resp)
}

type cancelResponse struct {
	TransactionID string        `json:"transactionId"`
	Status        models.Status `json:"status"`
	Message       string        `json:"message"`
	CancelledAt   time.Time     `json:"cancelledAt"`
	Reason        string        `json:"reason"`
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason         string `json:"reason"`
		RefundRequired bool   `json:"refundRequired"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	actor, _ := auth.ActorFromContext(r.Context())
	tx, err := h.payments.Cancel(r.Context(), actor, mux.Vars(r)["id"], service.CancelInput{
		Reason:         req.Reason,
		RefundRequired: req.RefundRequired,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := cancelResponse{TransactionID: tx.ID, Status: tx.Status, Message: tx.Status.Message()}
	if tx.Cancellation != nil {
		resp.CancelledAt = tx.Cancellation.CancelledAt
		resp.Reason = tx.Cancellation.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}

type rejectResponse struct {
	TransactionID string        `json:"transactionId"`
	Status        models.Status `json:"status"`
	Message       string        `json:"message"`
	RejectedAt    time.Time     `json:"rejectedAt"`
	Reason        string        `json:"reason"`
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	actor, _ := auth.ActorFromContext(r.Context())
	tx, err := h.payments.Reject(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := rejectResponse{TransactionID: tx.ID, Status: tx.Status, Message: tx.Status.Message()}
	if tx.Rejection != nil {
		resp.RejectedAt = tx.Rejection.RejectedAt
		resp.Reason = tx.Rejection.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeOptionalJSON accepts an empty body as the zero request.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, v)
}
