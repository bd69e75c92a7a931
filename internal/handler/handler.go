package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	service "github.com/honeynil/PaymentServiceBF/internal/services"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
)

// maxUploadSize bounds the multipart body of a proof submission.
const maxUploadSize = 10 << 20

type Handler struct {
	payments service.PaymentService
	admins   service.AdminService
}

func NewHandler(payments service.PaymentService, admins service.AdminService) *Handler {
	return &Handler{payments: payments, admins: admins}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func statusFor(kind pkgerrors.Kind) int {
	switch kind {
	case pkgerrors.KindValidation, pkgerrors.KindInvalidState, pkgerrors.KindExpired:
		return http.StatusBadRequest
	case pkgerrors.KindNotFound:
		return http.StatusNotFound
	case pkgerrors.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := pkgerrors.KindOf(err)
	resp := errorResponse{Error: string(kind), Message: err.Error()}

	var perr *pkgerrors.Error
	if errors.As(err, &perr) {
		resp.Field = perr.Field
	}
	if kind == pkgerrors.KindInternal {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Message = "Erreur interne du serveur"
	}
	writeJSON(w, statusFor(kind), resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return pkgerrors.Validation("body", "Corps de requête invalide")
	}
	return nil
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	r.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	r.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")
	r.HandleFunc("/transactions/{id}/confirm", h.SubmitProof).Methods("POST")
	r.HandleFunc("/admin/login", h.Login).Methods("POST")
}

// RegisterAdminRoutes expects r to sit behind the admin auth middleware.
func (h *Handler) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	r.HandleFunc("/transactions", h.AdminListTransactions).Methods("GET")
	r.HandleFunc("/transactions/{id}/validate", h.Validate).Methods("POST")
	r.HandleFunc("/transactions/{id}/cancel", h.Cancel).Methods("POST")
	r.HandleFunc("/transactions/{id}/reject", h.Reject).Methods("POST")
}

type createTransactionRequest struct {
	Amount        int64                `json:"amount"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	ClientInfo    models.ClientInfo    `json:"clientInfo"`
	ProductInfo   models.ProductInfo   `json:"productInfo"`
}

type createTransactionResponse struct {
	TransactionID  string                `json:"transactionId"`
	Status         models.Status         `json:"status"`
	PaymentMethod  models.PaymentMethod  `json:"paymentMethod"`
	Amount         int64                 `json:"amount"`
	Fees           int64                 `json:"fees"`
	TotalAmount    int64                 `json:"totalAmount"`
	PaymentDetails models.PaymentDetails `json:"paymentDetails"`
	ExpiresAt      time.Time             `json:"expiresAt"`
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	tx, err := h.payments.CreateTransaction(r.Context(), service.CreateTransactionInput{
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		ClientInfo:    req.ClientInfo,
		ProductInfo:   req.ProductInfo,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createTransactionResponse{
		TransactionID:  tx.ID,
		Status:         tx.Status,
		PaymentMethod:  tx.PaymentMethod,
		Amount:         tx.Amount,
		Fees:           tx.Fees,
		TotalAmount:    tx.TotalAmount,
		PaymentDetails: tx.PaymentDetails,
		ExpiresAt:      tx.ExpiresAt,
	})
}

type transactionResponse struct {
	TransactionID  string                `json:"transactionId"`
	Status         models.Status         `json:"status"`
	Message        string                `json:"message"`
	PaymentMethod  models.PaymentMethod  `json:"paymentMethod"`
	Amount         int64                 `json:"amount"`
	Fees           int64                 `json:"fees"`
	TotalAmount    int64                 `json:"totalAmount"`
	PaymentDetails models.PaymentDetails `json:"paymentDetails"`
	ProofSubmitted bool                  `json:"proofSubmitted"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
	ExpiresAt      time.Time             `json:"expiresAt"`
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.payments.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionResponse{
		TransactionID:  tx.ID,
		Status:         tx.Status,
		Message:        tx.Status.Message(),
		PaymentMethod:  tx.PaymentMethod,
		Amount:         tx.Amount,
		Fees:           tx.Fees,
		TotalAmount:    tx.TotalAmount,
		PaymentDetails: tx.PaymentDetails,
		ProofSubmitted: tx.ProofData != nil,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
		ExpiresAt:      tx.ExpiresAt,
	})
}

type transactionSummary struct {
	ID            string               `json:"id"`
	Status        models.Status        `json:"status"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	Amount        int64                `json:"amount"`
	TotalAmount   int64                `json:"totalAmount"`
	CreatedAt     time.Time            `json:"createdAt"`
	ExpiresAt     time.Time            `json:"expiresAt"`
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := h.payments.ListTransactions(r.Context(), q.Get("clientId"), models.Status(q.Get("status")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	summaries := make([]transactionSummary, 0, len(txs))
	for _, tx := range txs {
		summaries = append(summaries, transactionSummary{
			ID:            tx.ID,
			Status:        tx.Status,
			PaymentMethod: tx.PaymentMethod,
			Amount:        tx.Amount,
			TotalAmount:   tx.TotalAmount,
			CreatedAt:     tx.CreatedAt,
			ExpiresAt:     tx.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": summaries})
}

type proofRequest struct {
	TransactionHash string             `json:"transactionHash"`
	PayerNumber     string             `json:"payerNumber"`
	PayerName       string             `json:"payerName"`
	ReceiptFile     *models.ReceiptRef `json:"receiptFile"`
}

type proofResponse struct {
	TransactionID  string        `json:"transactionId"`
	Status         models.Status `json:"status"`
	Message        string        `json:"message"`
	ProofSubmitted bool          `json:"proofSubmitted"`
}

func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	proof, err := parseProof(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.payments.SubmitProof(r.Context(), mux.Vars(r)["id"], proof)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, proofResponse{
		TransactionID:  res.Transaction.ID,
		Status:         res.Transaction.Status,
		Message:        res.Message,
		ProofSubmitted: true,
	})
}

// parseProof reads a proof from a multipart form or a JSON body. An uploaded
// receipt is recorded by name, size and content type only.
func parseProof(w http.ResponseWriter, r *http.Request) (models.ProofSubmission, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		var req proofRequest
		if err := decodeJSON(r, &req); err != nil {
			return models.ProofSubmission{}, err
		}
		return models.ProofSubmission{
			TransactionHash: strings.TrimSpace(req.TransactionHash),
			PayerNumber:     strings.TrimSpace(req.PayerNumber),
			PayerName:       strings.TrimSpace(req.PayerName),
			Receipt:         req.ReceiptFile,
		}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return models.ProofSubmission{}, pkgerrors.Validation("body", "Formulaire invalide ou fichier trop volumineux")
	}

	proof := models.ProofSubmission{
		TransactionHash: strings.TrimSpace(r.FormValue("transactionHash")),
		PayerNumber:     strings.TrimSpace(r.FormValue("payerNumber")),
		PayerName:       strings.TrimSpace(r.FormValue("payerName")),
	}
	file, header, err := r.FormFile("receiptFile")
	if err == nil {
		defer file.Close()
		proof.Receipt = &models.ReceiptRef{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		return models.ProofSubmission{}, pkgerrors.Validation("receiptFile", "Fichier de reçu illisible")
	}
	return proof, nil
}
