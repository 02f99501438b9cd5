package invoices

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/profitpulse/profitpulse/internal/billing"
	"github.com/profitpulse/profitpulse/internal/customers"
	"github.com/profitpulse/profitpulse/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, inv Invoice) (int64, error)
	Get(ctx context.Context, tenantID, id int64) (*Invoice, error)
	SaveDraft(ctx context.Context, inv *Invoice) error
	Finalize(ctx context.Context, inv *Invoice) error
	SetPaymentStatus(ctx context.Context, tenantID, id int64, status PaymentStatus) error
	List(ctx context.Context, tenantID int64, req ListInvoicesRequest) ([]Invoice, int, error)
	MarkOverdue(ctx context.Context) (int64, error)
	Summary(ctx context.Context, tenantID int64) (Summary, error)
	TenantIDs(ctx context.Context) ([]int64, error)
}

// LotProvider supplies catalog lots and absorbs consumption/restock deltas.
type LotProvider interface {
	LotsForAllocation(ctx context.Context, tenantID int64, codes []string) ([]billing.Lot, error)
	ConsumeLot(ctx context.Context, tenantID int64, code string, qty int64) error
}

// CustomerDirectory resolves billing-party identity.
type CustomerDirectory interface {
	Get(ctx context.Context, tenantID, id int64) (*customers.Customer, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// FinalizeAuthorizer decides whether an acting staff member may freeze
// invoices. A nil authorizer disables the check.
type FinalizeAuthorizer interface {
	CanFinalize(ctx context.Context, tenantID, staffID int64) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// DefaultTaxRate is applied to newly allocated line items, as a percent.
	DefaultTaxRate decimal.Decimal
}

// Service coordinates invoice operations around the billing engine.
type Service struct {
	repo        RepositoryPort
	lots        LotProvider
	directory   CustomerDirectory
	roles       FinalizeAuthorizer
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	cache       *Cache
	cfg         ServiceConfig
}

// NewService builds Service.
func NewService(repo RepositoryPort, lots LotProvider, directory CustomerDirectory, roles FinalizeAuthorizer, audit AuditPort, idem *shared.IdempotencyStore, cache *Cache, cfg ServiceConfig) *Service {
	return &Service{
		repo:        repo,
		lots:        lots,
		directory:   directory,
		roles:       roles,
		audit:       audit,
		idempotency: idem,
		cache:       cache,
		cfg:         cfg,
	}
}

// Create opens a draft invoice with a customer snapshot and no items.
func (s *Service) Create(ctx context.Context, tenantID int64, req CreateInvoiceRequest, createdBy int64) (*Invoice, error) {
	customer, err := s.directory.Get(ctx, tenantID, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}

	inv := Invoice{
		TenantID:        tenantID,
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		CustomerContact: customer.Contact,
		CustomerAddress: customer.Address,
		Date:            req.Date,
		DueDate:         req.DueDate,
		PaymentTerms:    req.PaymentTerms,
		DiscountType:    billing.DiscountAmount,
		DiscountValue:   decimal.Zero,
		CreatedBy:       createdBy,
	}
	id, err := s.repo.Create(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.recordAudit(ctx, tenantID, createdBy, "invoice.create", id)
	s.bump(ctx, tenantID)
	return s.repo.Get(ctx, tenantID, id)
}

// Get loads an invoice. Draft totals are recomputed from the current items
// rather than read back, so responses can never show drifted amounts.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusDraft {
		applyTotals(inv)
	}
	return inv, nil
}

// List returns invoice headers matching the filter.
func (s *Service) List(ctx context.Context, tenantID int64, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, tenantID, req)
}

// AllocateLots appends one quantity-1 line item per requested lot. The API
// boundary rejects codes the catalog cannot resolve even though the engine
// itself would skip them silently.
func (s *Service) AllocateLots(ctx context.Context, tenantID, id int64, req AllocateRequest) (*Invoice, error) {
	inv, err := s.editableInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	lots, err := s.lots.LotsForAllocation(ctx, tenantID, req.LotCodes)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(lots))
	for _, lot := range lots {
		known[lot.Code] = true
	}
	for _, code := range req.LotCodes {
		if !known[code] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLot, code)
		}
	}

	inv.Items = billing.AllocateLots(inv.Items, req.LotCodes, lots, s.cfg.DefaultTaxRate)
	return s.saveDraft(ctx, inv)
}

// UpdateItem edits one field of one line item through the engine's coercion
// rules. The index must address an existing item.
func (s *Service) UpdateItem(ctx context.Context, tenantID, id int64, index int, req UpdateItemRequest) (*Invoice, error) {
	inv, err := s.editableInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(inv.Items) {
		return nil, ErrItemIndex
	}
	inv.Items = billing.UpdateLineItem(inv.Items, index, req.Field, req.Value)
	return s.saveDraft(ctx, inv)
}

// RemoveItem drops the line item at index.
func (s *Service) RemoveItem(ctx context.Context, tenantID, id int64, index int) (*Invoice, error) {
	inv, err := s.editableInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(inv.Items) {
		return nil, ErrItemIndex
	}
	inv.Items = billing.RemoveLineItem(inv.Items, index)
	return s.saveDraft(ctx, inv)
}

// SetDiscount replaces the invoice-level discount. Values are validated at
// this boundary: negatives never, percentages capped at 100. A flat amount
// larger than the subtotal stays legal and yields a negative grand total.
func (s *Service) SetDiscount(ctx context.Context, tenantID, id int64, req SetDiscountRequest) (*Invoice, error) {
	if req.Value.IsNegative() {
		return nil, ErrDiscountInvalid
	}
	if req.Type == billing.DiscountPercentage && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrDiscountInvalid
	}

	inv, err := s.editableInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	inv.DiscountType = req.Type
	inv.DiscountValue = req.Value
	return s.saveDraft(ctx, inv)
}

// Finalize freezes the draft, settles its totals and consumes lot quantities.
// The acting staff member must hold a finalizing role when one is identified.
// An Idempotency-Key absorbs retried submissions.
func (s *Service) Finalize(ctx context.Context, tenantID, id int64, idemKey string, actorID int64) (*Invoice, error) {
	if s.roles != nil && actorID > 0 {
		if err := s.roles.CanFinalize(ctx, tenantID, actorID); err != nil {
			return nil, err
		}
	}

	inv, err := s.editableInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if len(inv.Items) == 0 {
		return nil, ErrEmptyInvoice
	}

	if idemKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, tenantID, idemKey, "invoices"); err != nil {
			return nil, err
		}
	}

	applyTotals(inv)
	if err := s.repo.Finalize(ctx, inv); err != nil {
		if idemKey != "" && s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, tenantID, idemKey)
		}
		return nil, err
	}

	// Consume availability per lot code. Duplicate rows for one lot add up.
	consumed := make(map[string]int64)
	order := []string{}
	for _, item := range inv.Items {
		if _, seen := consumed[item.LotCode]; !seen {
			order = append(order, item.LotCode)
		}
		consumed[item.LotCode] += item.Quantity
	}
	for _, code := range order {
		if err := s.lots.ConsumeLot(ctx, tenantID, code, consumed[code]); err != nil {
			return nil, fmt.Errorf("consume lot %s: %w", code, err)
		}
	}

	s.recordAudit(ctx, tenantID, actorID, "invoice.finalize", id)
	s.bump(ctx, tenantID)
	return s.repo.Get(ctx, tenantID, id)
}

// MarkPaid settles a final invoice.
func (s *Service) MarkPaid(ctx context.Context, tenantID, id int64, actorID int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusFinal {
		return nil, ErrNotFinal
	}
	if err := s.repo.SetPaymentStatus(ctx, tenantID, id, PaymentPaid); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, tenantID, actorID, "invoice.pay", id)
	s.bump(ctx, tenantID)
	return s.repo.Get(ctx, tenantID, id)
}

// MarkOverdue flips unpaid final invoices past their due date. Returns the
// number of invoices transitioned.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	return s.repo.MarkOverdue(ctx)
}

// GetSummary returns the tenant's dashboard summary, served from cache when
// warm.
func (s *Service) GetSummary(ctx context.Context, tenantID int64) (Summary, error) {
	return s.cache.FetchSummary(ctx, tenantID, func(ctx context.Context) (Summary, error) {
		return s.repo.Summary(ctx, tenantID)
	})
}

// WarmSummaries precomputes summaries for every tenant with invoices.
func (s *Service) WarmSummaries(ctx context.Context) error {
	tenants, err := s.repo.TenantIDs(ctx)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, tenantID := range tenants {
		g.Go(func() error {
			_, err := s.GetSummary(ctx, tenantID)
			return err
		})
	}
	return g.Wait()
}

func (s *Service) editableInvoice(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !inv.Editable() {
		return nil, ErrImmutable
	}
	return inv, nil
}

func (s *Service) saveDraft(ctx context.Context, inv *Invoice) (*Invoice, error) {
	applyTotals(inv)
	if err := s.repo.SaveDraft(ctx, inv); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	s.bump(ctx, inv.TenantID)
	return s.Get(ctx, inv.TenantID, inv.ID)
}

func (s *Service) bump(ctx context.Context, tenantID int64) {
	_ = s.cache.Bump(ctx, tenantID)
}

func (s *Service) recordAudit(ctx context.Context, tenantID, actorID int64, action string, invoiceID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
	})
}

// applyTotals recomputes the invoice's aggregates from its current items and
// discount, rounding to cents only at this persistence/display edge.
func applyTotals(inv *Invoice) {
	totals := billing.ComputeTotals(inv.Items, inv.Discount())
	inv.Subtotal = billing.RoundMoney(totals.Subtotal)
	inv.DiscountAmount = billing.RoundMoney(totals.DiscountAmount)
	inv.TaxTotal = billing.RoundMoney(totals.TaxTotal)
	inv.GrandTotal = billing.RoundMoney(totals.GrandTotal)
}
