package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profitpulse/profitpulse/internal/billing"
	"github.com/profitpulse/profitpulse/internal/customers"
	"github.com/profitpulse/profitpulse/internal/shared"
)

type mockInvoiceRepo struct {
	invoices map[int64]*Invoice
	nextID   int64
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{invoices: make(map[int64]*Invoice), nextID: 1}
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv Invoice) (int64, error) {
	inv.ID = m.nextID
	m.nextID++
	inv.Number = "INV-000001"
	inv.Status = StatusDraft
	inv.PaymentStatus = PaymentUnpaid
	inv.Items = []billing.LineItem{}
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *mockInvoiceRepo) Get(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, ErrNotFound
	}
	clone := *inv
	clone.Items = append([]billing.LineItem{}, inv.Items...)
	return &clone, nil
}

func (m *mockInvoiceRepo) SaveDraft(ctx context.Context, inv *Invoice) error {
	stored, ok := m.invoices[inv.ID]
	if !ok || stored.Status != StatusDraft {
		return ErrNotFound
	}
	clone := *inv
	clone.Items = append([]billing.LineItem{}, inv.Items...)
	m.invoices[inv.ID] = &clone
	return nil
}

func (m *mockInvoiceRepo) Finalize(ctx context.Context, inv *Invoice) error {
	stored, ok := m.invoices[inv.ID]
	if !ok || stored.Status != StatusDraft {
		return ErrImmutable
	}
	stored.Status = StatusFinal
	stored.Subtotal = inv.Subtotal
	stored.DiscountAmount = inv.DiscountAmount
	stored.TaxTotal = inv.TaxTotal
	stored.GrandTotal = inv.GrandTotal
	return nil
}

func (m *mockInvoiceRepo) SetPaymentStatus(ctx context.Context, tenantID, id int64, status PaymentStatus) error {
	inv, ok := m.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return ErrNotFound
	}
	inv.PaymentStatus = status
	return nil
}

func (m *mockInvoiceRepo) List(ctx context.Context, tenantID int64, req ListInvoicesRequest) ([]Invoice, int, error) {
	result := []Invoice{}
	for _, inv := range m.invoices {
		if inv.TenantID == tenantID {
			result = append(result, *inv)
		}
	}
	return result, len(result), nil
}

func (m *mockInvoiceRepo) MarkOverdue(ctx context.Context) (int64, error) {
	var n int64
	now := time.Now()
	for _, inv := range m.invoices {
		if inv.Status == StatusFinal && inv.PaymentStatus == PaymentUnpaid &&
			inv.DueDate != nil && inv.DueDate.Before(now) {
			inv.PaymentStatus = PaymentOverdue
			n++
		}
	}
	return n, nil
}

func (m *mockInvoiceRepo) Summary(ctx context.Context, tenantID int64) (Summary, error) {
	s := Summary{PaidRevenue: decimal.Zero, OpenRevenue: decimal.Zero}
	for _, inv := range m.invoices {
		if inv.TenantID != tenantID {
			continue
		}
		switch inv.Status {
		case StatusDraft:
			s.DraftCount++
		case StatusFinal:
			s.FinalCount++
			if inv.PaymentStatus != PaymentPaid {
				s.OpenRevenue = s.OpenRevenue.Add(inv.GrandTotal)
			}
		}
	}
	return s, nil
}

func (m *mockInvoiceRepo) TenantIDs(ctx context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	ids := []int64{}
	for _, inv := range m.invoices {
		if !seen[inv.TenantID] {
			seen[inv.TenantID] = true
			ids = append(ids, inv.TenantID)
		}
	}
	return ids, nil
}

type mockLotProvider struct {
	catalog  map[string]billing.Lot
	consumed map[string]int64
}

func newMockLotProvider() *mockLotProvider {
	return &mockLotProvider{
		catalog: map[string]billing.Lot{
			"LOT-001": {Code: "LOT-001", ProductName: "Gala Apples", UnitPrice: decimal.RequireFromString("3.50")},
			"LOT-002": {Code: "LOT-002", ProductName: "Bartlett Pears", UnitPrice: decimal.RequireFromString("6.99")},
		},
		consumed: map[string]int64{},
	}
}

func (m *mockLotProvider) LotsForAllocation(ctx context.Context, tenantID int64, codes []string) ([]billing.Lot, error) {
	lots := []billing.Lot{}
	for _, code := range codes {
		if lot, ok := m.catalog[code]; ok {
			lots = append(lots, lot)
		}
	}
	return lots, nil
}

func (m *mockLotProvider) ConsumeLot(ctx context.Context, tenantID int64, code string, qty int64) error {
	m.consumed[code] += qty
	return nil
}

type mockDirectory struct{}

func (mockDirectory) Get(ctx context.Context, tenantID, id int64) (*customers.Customer, error) {
	if id != 7 {
		return nil, customers.ErrNotFound
	}
	return &customers.Customer{ID: 7, TenantID: tenantID, Name: "Corner Grocer", Contact: "555-0101"}, nil
}

func newTestService(t *testing.T) (*Service, *mockInvoiceRepo, *mockLotProvider) {
	t.Helper()
	repo := newMockInvoiceRepo()
	lots := newMockLotProvider()
	svc := NewService(repo, lots, mockDirectory{}, nil, nil, nil, NewCache(nil, 0), ServiceConfig{
		DefaultTaxRate: decimal.RequireFromString("13"),
	})
	return svc, repo, lots
}

type denyAuthorizer struct{}

func (denyAuthorizer) CanFinalize(ctx context.Context, tenantID, staffID int64) error {
	return shared.ErrForbidden
}

func draftInvoice(t *testing.T, svc *Service) *Invoice {
	t.Helper()
	inv, err := svc.Create(context.Background(), 1, CreateInvoiceRequest{
		CustomerID: 7,
		Date:       time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}, 42)
	require.NoError(t, err)
	return inv
}

func TestCreateSnapshotsCustomer(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)

	assert.Equal(t, "Corner Grocer", inv.CustomerName)
	assert.Equal(t, "555-0101", inv.CustomerContact)
	assert.Equal(t, StatusDraft, inv.Status)
	assert.Equal(t, PaymentUnpaid, inv.PaymentStatus)
	assert.True(t, inv.GrandTotal.IsZero())
}

func TestAllocateRejectsUnknownLot(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)

	_, err := svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{
		LotCodes: []string{"LOT-001", "LOT-999"},
	})
	assert.ErrorIs(t, err, ErrUnknownLot)
}

func TestAllocateAppendsUnitItems(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)

	updated, err := svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{
		LotCodes: []string{"LOT-001", "LOT-002"},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	assert.Equal(t, int64(1), updated.Items[0].Quantity)
	assert.Equal(t, "Gala Apples", updated.Items[0].ProductName)
	assert.True(t, updated.Items[0].TaxRate.Equal(decimal.RequireFromString("13")))
	// 3.50 + 6.99 = 10.49 subtotal, 13% tax = 1.36 rounded.
	assert.Equal(t, "10.49", updated.Subtotal.StringFixed(2))
	assert.Equal(t, "1.36", updated.TaxTotal.StringFixed(2))

	again, err := svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{
		LotCodes: []string{"LOT-001"},
	})
	require.NoError(t, err)
	assert.Len(t, again.Items, 3, "re-selecting a lot appends another row")
}

func TestUpdateItemCoercesBadInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)
	_, err := svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{LotCodes: []string{"LOT-001"}})
	require.NoError(t, err)

	updated, err := svc.UpdateItem(context.Background(), 1, inv.ID, 0, UpdateItemRequest{
		Field: billing.FieldQuantity,
		Value: "banana",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Items[0].Quantity)

	updated, err = svc.UpdateItem(context.Background(), 1, inv.ID, 0, UpdateItemRequest{
		Field: billing.FieldUnitPrice,
		Value: "-5",
	})
	require.NoError(t, err)
	assert.True(t, updated.Items[0].UnitPrice.IsZero())
}

func TestUpdateItemIndexOutOfRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)

	_, err := svc.UpdateItem(context.Background(), 1, inv.ID, 0, UpdateItemRequest{
		Field: billing.FieldQuantity,
		Value: "2",
	})
	assert.ErrorIs(t, err, ErrItemIndex)

	_, err = svc.RemoveItem(context.Background(), 1, inv.ID, -1)
	assert.ErrorIs(t, err, ErrItemIndex)
}

func TestSetDiscountValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)

	_, err := svc.SetDiscount(context.Background(), 1, inv.ID, SetDiscountRequest{
		Type:  billing.DiscountPercentage,
		Value: decimal.RequireFromString("101"),
	})
	assert.ErrorIs(t, err, ErrDiscountInvalid)

	_, err = svc.SetDiscount(context.Background(), 1, inv.ID, SetDiscountRequest{
		Type:  billing.DiscountAmount,
		Value: decimal.RequireFromString("-1"),
	})
	assert.ErrorIs(t, err, ErrDiscountInvalid)
}

func TestFlatDiscountMayExceedSubtotal(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)
	_, err := svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{LotCodes: []string{"LOT-001"}})
	require.NoError(t, err)

	updated, err := svc.SetDiscount(context.Background(), 1, inv.ID, SetDiscountRequest{
		Type:  billing.DiscountAmount,
		Value: decimal.RequireFromString("100"),
	})
	require.NoError(t, err)
	assert.True(t, updated.GrandTotal.IsNegative(), "grand total is reported as-is, never clamped")
}

func TestFinalizeRequiresItems(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)

	_, err := svc.Finalize(context.Background(), 1, inv.ID, "", 42)
	assert.ErrorIs(t, err, ErrEmptyInvoice)
}

func TestFinalizeConsumesLotsAndFreezes(t *testing.T) {
	svc, _, lots := newTestService(t)
	inv := draftInvoice(t, svc)
	_, err := svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{
		LotCodes: []string{"LOT-001", "LOT-001", "LOT-002"},
	})
	require.NoError(t, err)
	_, err = svc.UpdateItem(context.Background(), 1, inv.ID, 0, UpdateItemRequest{
		Field: billing.FieldQuantity,
		Value: "3",
	})
	require.NoError(t, err)

	finalized, err := svc.Finalize(context.Background(), 1, inv.ID, "", 42)
	require.NoError(t, err)
	assert.Equal(t, StatusFinal, finalized.Status)
	// Row 0 carries qty 3, the duplicate row adds 1 more.
	assert.Equal(t, int64(4), lots.consumed["LOT-001"])
	assert.Equal(t, int64(1), lots.consumed["LOT-002"])

	_, err = svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{LotCodes: []string{"LOT-002"}})
	assert.ErrorIs(t, err, ErrImmutable)
}

func TestFinalizeForbiddenForUnauthorizedActor(t *testing.T) {
	repo := newMockInvoiceRepo()
	lots := newMockLotProvider()
	svc := NewService(repo, lots, mockDirectory{}, denyAuthorizer{}, nil, nil, NewCache(nil, 0), ServiceConfig{
		DefaultTaxRate: decimal.RequireFromString("13"),
	})

	inv := draftInvoice(t, svc)
	_, err := svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{LotCodes: []string{"LOT-001"}})
	require.NoError(t, err)

	_, err = svc.Finalize(context.Background(), 1, inv.ID, "", 42)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	current, err := svc.Get(context.Background(), 1, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, current.Status, "denied finalize leaves the draft untouched")
	assert.Empty(t, lots.consumed)
}

func TestMarkPaidRequiresFinal(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)

	_, err := svc.MarkPaid(context.Background(), 1, inv.ID, 42)
	assert.ErrorIs(t, err, ErrNotFinal)

	_, err = svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{LotCodes: []string{"LOT-001"}})
	require.NoError(t, err)
	_, err = svc.Finalize(context.Background(), 1, inv.ID, "", 42)
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), 1, inv.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, paid.PaymentStatus)
}

func TestInvoiceTenantIsolation(t *testing.T) {
	svc, _, _ := newTestService(t)
	inv := draftInvoice(t, svc)

	_, err := svc.Get(context.Background(), 2, inv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSummaryCacheInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMockInvoiceRepo()
	lots := newMockLotProvider()
	svc := NewService(repo, lots, mockDirectory{}, nil, nil, nil, NewCache(client, time.Minute), ServiceConfig{
		DefaultTaxRate: decimal.RequireFromString("13"),
	})

	inv := draftInvoice(t, svc)
	first, err := svc.GetSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DraftCount)

	_, err = svc.AllocateLots(context.Background(), 1, inv.ID, AllocateRequest{LotCodes: []string{"LOT-001"}})
	require.NoError(t, err)
	_, err = svc.Finalize(context.Background(), 1, inv.ID, "", 42)
	require.NoError(t, err)

	second, err := svc.GetSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DraftCount, "mutation bumped the cache version")
	assert.Equal(t, 1, second.FinalCount)
}
