package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/observability"
	"github.com/honeynil/PaymentServiceBF/internal/ledger"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/honeynil/PaymentServiceBF/internal/payment"
	"github.com/honeynil/PaymentServiceBF/internal/repository"
	pkgerrors "github.com/honeynil/PaymentServiceBF/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "payment-service"

	defaultPageLimit = 20
	maxPageLimit     = 100

	// MaxAmount caps a single transaction, in XOF.
	MaxAmount int64 = 1_000_000_000_000

	// ValidatedByLedger marks transactions completed by auto-verification.
	ValidatedByLedger = "ledger"

	MessageProofReceived = "Votre preuve de paiement a été reçue et est en cours de vérification. Vous recevrez une confirmation sous 24h."
	MessageAutoVerified  = "Paiement vérifié automatiquement et confirmé."
)

type PaymentService interface {
	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, clientID string, status models.Status) ([]models.Transaction, error)
	SubmitProof(ctx context.Context, id string, proof models.ProofSubmission) (*ProofResult, error)
	Validate(ctx context.Context, actor models.Actor, id string, in ValidateInput) (*models.Transaction, error)
	Cancel(ctx context.Context, actor models.Actor, id string, in CancelInput) (*models.Transaction, error)
	Reject(ctx context.Context, actor models.Actor, id string, reason string) (*models.Transaction, error)
	ExpireTransaction(ctx context.Context, id string) (bool, error)
	AdminListTransactions(ctx context.Context, filter AdminListFilter) (*AdminListResult, error)
}

// EventPublisher receives every persisted state change.
type EventPublisher interface {
	Publish(ctx context.Context, event models.TransactionEvent) error
}

// ExpiryScheduler arms the expiry deadline of a new transaction.
type ExpiryScheduler interface {
	Schedule(ctx context.Context, id string, at time.Time) error
}

type CreateTransactionInput struct {
	Amount        int64
	PaymentMethod models.PaymentMethod
	ClientInfo    models.ClientInfo
	ProductInfo   models.ProductInfo
}

type ProofResult struct {
	Transaction *models.Transaction
	Message     string
}

type ValidateInput struct {
	AdminNote       string
	ValidatedAmount *int64
}

type CancelInput struct {
	Reason         string
	RefundRequired bool
}

type AdminListFilter struct {
	Status        models.Status
	PaymentMethod models.PaymentMethod
	Page          int
	Limit         int
}

type AdminListResult struct {
	Transactions []models.Transaction
	Page         int
	Limit        int
	Total        int64
	Stats        models.Stats
}

type paymentService struct {
	repo      repository.TransactionRepository
	catalog   *payment.Catalog
	verifier  ledger.Verifier
	scheduler ExpiryScheduler
	publisher EventPublisher

	now             func() time.Time
	publishAttempts int
	publishBackoff  time.Duration
	wg              sync.WaitGroup
}

type Option func(*paymentService)

func WithClock(now func() time.Time) Option {
	return func(s *paymentService) { s.now = now }
}

// WithPublishRetry sets how often an event publish is attempted and the
// base of the linear backoff between attempts.
func WithPublishRetry(attempts int, backoff time.Duration) Option {
	return func(s *paymentService) {
		if attempts > 0 {
			s.publishAttempts = attempts
		}
		s.publishBackoff = backoff
	}
}

func NewPaymentService(
	repo repository.TransactionRepository,
	catalog *payment.Catalog,
	verifier ledger.Verifier,
	scheduler ExpiryScheduler,
	publisher EventPublisher,
	opts ...Option,
) *paymentService {
	s := &paymentService{
		repo:            repo,
		catalog:         catalog,
		verifier:        verifier,
		scheduler:       scheduler,
		publisher:       publisher,
		now:             func() time.Time { return time.Now().UTC() },
		publishAttempts: 3,
		publishBackoff:  time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *paymentService) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CreateTransaction")
	defer span.End()

	if err := validateCreate(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		slog.Warn("invalid transaction request", "field", err.Field, "error", err)
		return nil, err
	}

	now := s.now()
	amount := in.Amount
	fees, total, ok := s.catalog.Quote(in.PaymentMethod, amount)
	if !ok {
		span.SetStatus(codes.Error, "invalid input")
		slog.Warn("transaction total overflows", "amount", amount, "payment_method", in.PaymentMethod)
		return nil, pkgerrors.Validation("amount", "Le montant dépasse le maximum autorisé")
	}
	tx := &models.Transaction{
		ID:            "TXN-" + uuid.NewString(),
		Status:        models.StatusPending,
		PaymentMethod: in.PaymentMethod,
		Amount:        amount,
		Fees:          fees,
		TotalAmount:   total,
		ClientInfo:    in.ClientInfo,
		ProductInfo:   in.ProductInfo,
		ExpiresAt:     now.Add(models.ExpiryWindow),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	span.SetAttributes(attribute.String("transaction_id", tx.ID), attribute.String("payment_method", string(tx.PaymentMethod)))

	details, err := s.catalog.Details(tx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment details failed")
		return nil, fmt.Errorf("failed to build payment details: %w", err)
	}
	tx.PaymentDetails = details

	if err := s.repo.Create(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction creation failed")
		slog.Error("failed to create transaction", "transaction_id", tx.ID, "error", err)
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Schedule(ctx, tx.ID, tx.ExpiresAt); err != nil {
			observability.UpstreamFailures.WithLabelValues("expiry_queue").Inc()
			span.RecordError(err)
			slog.Warn("failed to schedule expiry, overdue scan will cover it",
				"transaction_id", tx.ID,
				"expires_at", tx.ExpiresAt,
				"error", err)
		}
	}

	s.publish(ctx, models.EventTransactionCreated, tx)

	slog.Info("transaction created",
		"transaction_id", tx.ID,
		"payment_method", tx.PaymentMethod,
		"amount", tx.Amount,
		"fees", tx.Fees,
		"total_amount", tx.TotalAmount)
	return tx, nil
}

func validateCreate(in CreateTransactionInput) *pkgerrors.Error {
	if in.Amount <= 0 {
		return pkgerrors.Validation("amount", "Le montant doit être supérieur à zéro")
	}
	if in.Amount > MaxAmount {
		return pkgerrors.Validation("amount", "Le montant ne peut pas dépasser %d", MaxAmount)
	}
	if !in.PaymentMethod.Valid() {
		return pkgerrors.Validation("paymentMethod", "Méthode de paiement non supportée: %s", in.PaymentMethod)
	}
	if strings.TrimSpace(in.ClientInfo.Name) == "" {
		return pkgerrors.Validation("clientInfo.name", "Le nom du client est requis")
	}
	if strings.TrimSpace(in.ClientInfo.Email) == "" && strings.TrimSpace(in.ClientInfo.Phone) == "" {
		return pkgerrors.Validation("clientInfo", "Un email ou un numéro de téléphone est requis")
	}
	if hook := in.ProductInfo.WebhookURL; hook != "" {
		u, err := url.Parse(hook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return pkgerrors.Validation("productInfo.webhookUrl", "URL de webhook invalide")
		}
	}
	return nil
}

func (s *paymentService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "GetTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.loadError(span, id, err)
	}
	return tx, nil
}

func (s *paymentService) ListTransactions(ctx context.Context, clientID string, status models.Status) ([]models.Transaction, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListTransactions")
	defer span.End()

	if status != "" && !status.Valid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, pkgerrors.Validation("status", "Statut invalide: %s", status)
	}

	txs, _, err := s.repo.List(ctx, repository.ListFilter{ClientID: clientID, Status: status})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		slog.Error("failed to list transactions", "client_id", clientID, "status", status, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (s *paymentService) SubmitProof(ctx context.Context, id string, proof models.ProofSubmission) (*ProofResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SubmitProof")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.loadError(span, id, err)
	}

	if tx.Status != models.StatusPending {
		span.SetStatus(codes.Error, "not pending")
		slog.Warn("proof rejected, transaction not pending", "transaction_id", id, "status", tx.Status)
		return nil, pkgerrors.ErrCannotConfirm
	}

	now := s.now()
	if tx.IsExpiredAt(now) {
		span.SetStatus(codes.Error, "expired")
		expired, err := s.expire(ctx, tx, now)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !expired {
			return nil, s.conflictError(ctx, id, pkgerrors.ErrStatusConflict, pkgerrors.ErrCannotConfirm)
		}
		return nil, pkgerrors.ErrTransactionExpired
	}

	family, _ := tx.PaymentMethod.Family()
	data, err := buildProof(family, proof, now)
	if err != nil {
		span.SetStatus(codes.Error, "invalid proof")
		return nil, err
	}

	next := tx.Clone()
	next.ProofData = data
	next.Status = models.StatusProcessing
	next.UpdatedAt = now
	message := MessageProofReceived

	if family == models.FamilyCrypto && s.verify(ctx, next, proof.TransactionHash) {
		data.Crypto.AutoVerified = true
		next.Status = models.StatusCompleted
		next.Validation = &models.Validation{ValidatedAt: now, ValidatedBy: ValidatedByLedger}
		next.Invoice = s.newInvoice(now)
		message = MessageAutoVerified
	}

	if err := s.transition(ctx, next, models.StatusPending); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compare and swap failed")
		return nil, s.conflictError(ctx, id, err, pkgerrors.ErrCannotConfirm)
	}

	s.publish(ctx, models.EventProofSubmitted, next)
	if next.Status == models.StatusCompleted {
		s.publish(ctx, models.EventValidated, next)
	}

	slog.Info("proof submitted",
		"transaction_id", id,
		"proof_type", family,
		"status", next.Status)
	return &ProofResult{Transaction: next, Message: message}, nil
}

func buildProof(family models.MethodFamily, proof models.ProofSubmission, now time.Time) (*models.ProofData, error) {
	data := &models.ProofData{Type: family, SubmittedAt: now}
	switch family {
	case models.FamilyCrypto:
		hash := strings.TrimSpace(proof.TransactionHash)
		if hash == "" {
			return nil, pkgerrors.Validation("transactionHash", "Le hash de transaction est requis")
		}
		data.Crypto = &models.CryptoProof{TransactionHash: hash}
	case models.FamilyMobileMoney:
		number := strings.TrimSpace(proof.PayerNumber)
		if number == "" {
			return nil, pkgerrors.Validation("payerNumber", "Le numéro de paiement est requis")
		}
		data.MobileMoney = &models.MobileMoneyProof{PayerNumber: number, PayerName: strings.TrimSpace(proof.PayerName)}
	case models.FamilyBankTransfer:
		if proof.Receipt == nil || proof.Receipt.Name == "" || proof.Receipt.Size <= 0 {
			return nil, pkgerrors.Validation("receiptFile", "Le reçu de virement est requis")
		}
		receipt := *proof.Receipt
		data.BankTransfer = &models.BankTransferProof{Receipt: receipt}
	default:
		return nil, pkgerrors.Validation("paymentMethod", "Méthode de paiement non supportée")
	}
	return data, nil
}

// verify degrades every verifier failure to manual review.
func (s *paymentService) verify(ctx context.Context, tx *models.Transaction, hash string) bool {
	if s.verifier == nil {
		return false
	}
	ok, err := s.verifier.Verify(ctx, strings.TrimSpace(hash), tx.PaymentMethod, tx)
	if err != nil {
		observability.UpstreamFailures.WithLabelValues("ledger").Inc()
		slog.Warn("ledger verification failed, falling back to manual review",
			"transaction_id", tx.ID,
			"method", tx.PaymentMethod,
			"error", err)
		return false
	}
	return ok
}

func (s *paymentService) Validate(ctx context.Context, actor models.Actor, id string, in ValidateInput) (*models.Transaction, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Validate")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id), attribute.String("admin", actor.Username))

	if !actor.IsAdmin() {
		span.SetStatus(codes.Error, "not admin")
		return nil, pkgerrors.ErrNotAdmin
	}

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.loadError(span, id, err)
	}
	if tx.Status != models.StatusProcessing {
		span.SetStatus(codes.Error, "not processing")
		return nil, pkgerrors.ErrCannotValidate
	}
	if in.ValidatedAmount != nil && *in.ValidatedAmount <= 0 {
		span.SetStatus(codes.Error, "invalid validated amount")
		return nil, pkgerrors.Validation("validatedAmount", "Le montant validé doit être supérieur à zéro")
	}

	now := s.now()
	validation := &models.Validation{
		ValidatedAt: now,
		ValidatedBy: actor.Username,
		AdminNote:   strings.TrimSpace(in.AdminNote),
	}
	if in.ValidatedAmount != nil && *in.ValidatedAmount != tx.TotalAmount {
		amount := *in.ValidatedAmount
		diff := amount - tx.TotalAmount
		validation.ValidatedAmount = &amount
		validation.AmountDifference = &diff
	}

	next := tx.Clone()
	next.Status = models.StatusCompleted
	next.Validation = validation
	next.Invoice = s.newInvoice(now)
	next.UpdatedAt = now

	if err := s.transition(ctx, next, models.StatusProcessing); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compare and swap failed")
		return nil, s.conflictError(ctx, id, err, pkgerrors.ErrCannotValidate)
	}

	s.publish(ctx, models.EventValidated, next)

	slog.Info("transaction validated",
		"transaction_id", id,
		"admin", actor.Username,
		"invoice_id", next.Invoice.ID)
	if validation.AmountDifference != nil {
		slog.Warn("validated amount differs from total",
			"transaction_id", id,
			"total_amount", tx.TotalAmount,
			"validated_amount", *validation.ValidatedAmount,
			"difference", *validation.AmountDifference)
	}
	return next, nil
}

func (s *paymentService) newInvoice(now time.Time) *models.Invoice {
	id := "INV-" + uuid.NewString()
	return &models.Invoice{ID: id, URL: s.catalog.InvoiceURL(id), IssuedAt: now}
}

// cancelAttempts bounds retries when a concurrent proof submission moves a
// PENDING transaction to PROCESSING, which is still cancellable.
const cancelAttempts = 3

func (s *paymentService) Cancel(ctx context.Context, actor models.Actor, id string, in CancelInput) (*models.Transaction, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id), attribute.String("admin", actor.Username))

	if !actor.IsAdmin() {
		span.SetStatus(codes.Error, "not admin")
		return nil, pkgerrors.ErrNotAdmin
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		span.SetStatus(codes.Error, "missing reason")
		return nil, pkgerrors.Validation("reason", "Le motif d'annulation est requis")
	}

	for attempt := 0; ; attempt++ {
		tx, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, s.loadError(span, id, err)
		}
		if tx.Status == models.StatusCompleted {
			span.SetStatus(codes.Error, "completed")
			return nil, pkgerrors.ErrCompletedNoCancel
		}
		if !tx.Status.CanTransitionTo(models.StatusCancelled) {
			span.SetStatus(codes.Error, "not cancellable")
			return nil, pkgerrors.ErrCannotCancel
		}

		now := s.now()
		next := tx.Clone()
		next.Status = models.StatusCancelled
		next.Cancellation = &models.Cancellation{
			CancelledAt:    now,
			CancelledBy:    actor.Username,
			Reason:         reason,
			RefundRequired: in.RefundRequired,
		}
		next.UpdatedAt = now

		err = s.transition(ctx, next, tx.Status)
		if errors.Is(err, pkgerrors.ErrStatusConflict) && attempt+1 < cancelAttempts {
			slog.Debug("cancel lost a race, retrying", "transaction_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "compare and swap failed")
			return nil, s.conflictError(ctx, id, err, pkgerrors.ErrCannotCancel)
		}

		s.publish(ctx, models.EventCancelled, next)
		slog.Info("transaction cancelled",
			"transaction_id", id,
			"admin", actor.Username,
			"previous_status", tx.Status,
			"refund_required", in.RefundRequired)
		return next, nil
	}
}

func (s *paymentService) Reject(ctx context.Context, actor models.Actor, id string, reason string) (*models.Transaction, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Reject")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id), attribute.String("admin", actor.Username))

	if !actor.IsAdmin() {
		span.SetStatus(codes.Error, "not admin")
		return nil, pkgerrors.ErrNotAdmin
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		span.SetStatus(codes.Error, "missing reason")
		return nil, pkgerrors.Validation("reason", "Le motif du rejet est requis")
	}

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.loadError(span, id, err)
	}
	if tx.Status != models.StatusProcessing {
		span.SetStatus(codes.Error, "not processing")
		return nil, pkgerrors.ErrCannotReject
	}

	now := s.now()
	next := tx.Clone()
	next.Status = models.StatusFailed
	next.Rejection = &models.Rejection{RejectedAt: now, RejectedBy: actor.Username, Reason: reason}
	next.UpdatedAt = now

	if err := s.transition(ctx, next, models.StatusProcessing); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compare and swap failed")
		return nil, s.conflictError(ctx, id, err, pkgerrors.ErrCannotReject)
	}

	s.publish(ctx, models.EventRejected, next)
	slog.Info("transaction rejected", "transaction_id", id, "admin", actor.Username)
	return next, nil
}

// ExpireTransaction moves a due PENDING transaction to EXPIRED. It reports
// false without error when the transaction is not due or no longer pending.
func (s *paymentService) ExpireTransaction(ctx context.Context, id string) (bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ExpireTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, s.loadError(span, id, err)
	}

	now := s.now()
	if tx.Status != models.StatusPending || now.Before(tx.ExpiresAt) {
		return false, nil
	}
	return s.expire(ctx, tx, now)
}

func (s *paymentService) expire(ctx context.Context, tx *models.Transaction, now time.Time) (bool, error) {
	next := tx.Clone()
	next.Status = models.StatusExpired
	next.UpdatedAt = now

	err := s.transition(ctx, next, models.StatusPending)
	if errors.Is(err, pkgerrors.ErrStatusConflict) {
		return false, nil
	}
	if err != nil {
		slog.Error("failed to expire transaction", "transaction_id", tx.ID, "error", err)
		return false, fmt.Errorf("failed to expire transaction: %w", err)
	}

	s.publish(ctx, models.EventExpired, next)
	slog.Info("transaction expired", "transaction_id", tx.ID, "expires_at", tx.ExpiresAt)
	return true, nil
}

func (s *paymentService) AdminListTransactions(ctx context.Context, filter AdminListFilter) (*AdminListResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "AdminListTransactions")
	defer span.End()

	if filter.Status != "" && !filter.Status.Valid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, pkgerrors.Validation("status", "Statut invalide: %s", filter.Status)
	}
	if filter.PaymentMethod != "" && !filter.PaymentMethod.Valid() {
		span.SetStatus(codes.Error, "invalid payment method")
		return nil, pkgerrors.Validation("paymentMethod", "Méthode de paiement non supportée: %s", filter.PaymentMethod)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	txs, total, err := s.repo.List(ctx, repository.ListFilter{
		Status:        filter.Status,
		PaymentMethod: filter.PaymentMethod,
		Limit:         limit,
		Offset:        (page - 1) * limit,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		slog.Error("failed to list transactions for admin", "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stats failed")
		slog.Error("failed to compute transaction stats", "error", err)
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return &AdminListResult{Transactions: txs, Page: page, Limit: limit, Total: total, Stats: stats}, nil
}

// Drain waits for in-flight event publishes, or until ctx is done.
func (s *paymentService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transition persists next if the state machine allows from -> next.Status
// and the stored status is still from.
func (s *paymentService) transition(ctx context.Context, next *models.Transaction, from models.Status) error {
	if !from.CanTransitionTo(next.Status) {
		return fmt.Errorf("illegal transition %s -> %s: %w", from, next.Status, pkgerrors.ErrStatusConflict)
	}
	if err := s.repo.CompareAndSwap(ctx, next, from); err != nil {
		return err
	}
	observability.TransactionTransitions.WithLabelValues(string(from), string(next.Status)).Inc()
	return nil
}

// conflictError reports a lost compare-and-swap from the reloaded state.
func (s *paymentService) conflictError(ctx context.Context, id string, err, fallback error) error {
	if !errors.Is(err, pkgerrors.ErrStatusConflict) {
		slog.Error("failed to persist transaction", "transaction_id", id, "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	current, loadErr := s.repo.GetByID(ctx, id)
	if loadErr == nil && current.Status == models.StatusExpired {
		return pkgerrors.ErrTransactionExpired
	}
	if loadErr == nil && current.Status == models.StatusCompleted && fallback == pkgerrors.ErrCannotCancel {
		return pkgerrors.ErrCompletedNoCancel
	}
	return fallback
}

func (s *paymentService) loadError(span trace.Span, id string, err error) error {
	if errors.Is(err, pkgerrors.ErrTransactionNotFound) {
		span.SetStatus(codes.Error, "not found")
		return pkgerrors.ErrTransactionNotFound
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "load failed")
	slog.Error("failed to load transaction", "transaction_id", id, "error", err)
	return fmt.Errorf("failed to load transaction: %w", err)
}

func (s *paymentService) publish(ctx context.Context, kind models.EventType, tx *models.Transaction) {
	if s.publisher == nil {
		return
	}
	event := models.NewTransactionEvent(kind, tx, s.now())
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for i := 0; i < s.publishAttempts; i++ {
			err := s.publisher.Publish(ctx, event)
			if err == nil {
				slog.Info("transaction event published", "transaction_id", tx.ID, "event", kind)
				return
			}
			slog.Debug("event publish attempt failed", "transaction_id", tx.ID, "event", kind, "attempt", i+1, "error", err)
			if i+1 < s.publishAttempts {
				time.Sleep(s.publishBackoff * time.Duration(i+1))
			}
		}
		observability.UpstreamFailures.WithLabelValues("events").Inc()
		slog.Error("failed to publish transaction event after retries",
			"transaction_id", tx.ID,
			"event", kind)
	}()
}
