package returns

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/profitpulse/profitpulse/internal/billing"
	"github.com/profitpulse/profitpulse/internal/invoices"
	"github.com/profitpulse/profitpulse/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, ret Return) (int64, error)
	Get(ctx context.Context, tenantID, id int64) (*Return, error)
	SaveDraft(ctx context.Context, ret *Return) error
	Process(ctx context.Context, ret *Return) error
	List(ctx context.Context, tenantID int64, req ListReturnsRequest) ([]Return, int, error)
}

// InvoiceReader loads the invoice a return reconciles against.
type InvoiceReader interface {
	Get(ctx context.Context, tenantID, id int64) (*invoices.Invoice, error)
}

// LotRestocker puts returned quantities back into catalog availability.
type LotRestocker interface {
	RestockLot(ctx context.Context, tenantID int64, code string, qty int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the return lifecycle around the billing engine.
type Service struct {
	repo        RepositoryPort
	invoices    InvoiceReader
	lots        LotRestocker
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, invoiceReader InvoiceReader, lots LotRestocker, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, invoices: invoiceReader, lots: lots, audit: audit, idempotency: idem}
}

// Create opens a draft return against a finalized invoice.
func (s *Service) Create(ctx context.Context, tenantID int64, req CreateReturnRequest, createdBy int64) (*Return, error) {
	inv, err := s.invoices.Get(ctx, tenantID, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("lookup invoice: %w", err)
	}
	if inv.Status != invoices.StatusFinal {
		return nil, ErrInvoiceNotFinal
	}

	id, err := s.repo.Create(ctx, Return{
		TenantID:      tenantID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.Number,
		CreatedBy:     createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create return: %w", err)
	}
	s.recordAudit(ctx, tenantID, createdBy, "return.create", id)
	return s.repo.Get(ctx, tenantID, id)
}

// Get loads a return.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*Return, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns headers matching the filter.
func (s *Service) List(ctx context.Context, tenantID int64, req ListReturnsRequest) ([]Return, int, error) {
	return s.repo.List(ctx, tenantID, req)
}

// SetQuantity selects the returned quantity for one original line item. The
// engine clamps to the original quantity and matches existing selections by
// (product, lot), so reordering the invoice never desynchronises drafts.
func (s *Service) SetQuantity(ctx context.Context, tenantID, id int64, req SetQuantityRequest) (*Return, error) {
	ret, err := s.draftReturn(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoices.Get(ctx, tenantID, ret.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("lookup invoice: %w", err)
	}
	if req.ItemIndex < 0 || req.ItemIndex >= len(inv.Items) {
		return nil, ErrItemIndex
	}

	ret.Items = billing.SetReturnQuantity(inv.Items, ret.Items, req.ItemIndex, req.Quantity)
	ret.Total = billing.RoundMoney(sumSubtotals(ret.Items))
	if err := s.repo.SaveDraft(ctx, ret); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.repo.Get(ctx, tenantID, id)
}

// Process validates and freezes the return, classifies it against the invoice
// and restocks the returned lot quantities. An Idempotency-Key absorbs retried
// submissions.
func (s *Service) Process(ctx context.Context, tenantID, id int64, req FinalizeReturnRequest, idemKey string, actorID int64) (*Return, error) {
	ret, err := s.draftReturn(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoices.Get(ctx, tenantID, ret.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("lookup invoice: %w", err)
	}

	summary, err := billing.FinalizeReturn(inv.Items, ret.Items, req.Reason, req.Detail)
	if err != nil {
		return nil, err
	}

	if idemKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, tenantID, idemKey, "returns"); err != nil {
			return nil, err
		}
	}

	ret.Type = summary.Type
	ret.Reason = summary.Reason
	ret.Total = billing.RoundMoney(summary.Total)
	if err := s.repo.Process(ctx, ret); err != nil {
		if idemKey != "" && s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, tenantID, idemKey)
		}
		return nil, err
	}

	for _, item := range summary.Items {
		if err := s.lots.RestockLot(ctx, tenantID, item.LotCode, item.Quantity); err != nil {
			return nil, fmt.Errorf("restock lot %s: %w", item.LotCode, err)
		}
	}

	s.recordAudit(ctx, tenantID, actorID, "return.process", id)
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) draftReturn(ctx context.Context, tenantID, id int64) (*Return, error) {
	ret, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if ret.Status != StatusDraft {
		return nil, ErrProcessed
	}
	return ret, nil
}

func (s *Service) recordAudit(ctx context.Context, tenantID, actorID int64, action string, returnID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "return",
		EntityID: strconv.FormatInt(returnID, 10),
	})
}

func sumSubtotals(items []billing.ReturnItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}
