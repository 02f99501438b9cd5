package returns

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profitpulse/profitpulse/internal/billing"
	"github.com/profitpulse/profitpulse/internal/invoices"
)

type mockReturnRepo struct {
	returns map[int64]*Return
	nextID  int64
}

func newMockReturnRepo() *mockReturnRepo {
	return &mockReturnRepo{returns: make(map[int64]*Return), nextID: 1}
}

func (m *mockReturnRepo) Create(ctx context.Context, ret Return) (int64, error) {
	ret.ID = m.nextID
	m.nextID++
	ret.Status = StatusDraft
	ret.Total = decimal.Zero
	ret.Items = []billing.ReturnItem{}
	m.returns[ret.ID] = &ret
	return ret.ID, nil
}

func (m *mockReturnRepo) Get(ctx context.Context, tenantID, id int64) (*Return, error) {
	ret, ok := m.returns[id]
	if !ok || ret.TenantID != tenantID {
		return nil, ErrNotFound
	}
	clone := *ret
	clone.Items = append([]billing.ReturnItem{}, ret.Items...)
	return &clone, nil
}

func (m *mockReturnRepo) SaveDraft(ctx context.Context, ret *Return) error {
	stored, ok := m.returns[ret.ID]
	if !ok || stored.Status != StatusDraft {
		return ErrNotFound
	}
	clone := *ret
	clone.Items = append([]billing.ReturnItem{}, ret.Items...)
	m.returns[ret.ID] = &clone
	return nil
}

func (m *mockReturnRepo) Process(ctx context.Context, ret *Return) error {
	stored, ok := m.returns[ret.ID]
	if !ok || stored.Status != StatusDraft {
		return ErrProcessed
	}
	stored.Status = StatusProcessed
	stored.Type = ret.Type
	stored.Reason = ret.Reason
	stored.Total = ret.Total
	return nil
}

func (m *mockReturnRepo) List(ctx context.Context, tenantID int64, req ListReturnsRequest) ([]Return, int, error) {
	result := []Return{}
	for _, ret := range m.returns {
		if ret.TenantID == tenantID {
			result = append(result, *ret)
		}
	}
	return result, len(result), nil
}

type mockInvoiceReader struct {
	invoice *invoices.Invoice
}

func (m *mockInvoiceReader) Get(ctx context.Context, tenantID, id int64) (*invoices.Invoice, error) {
	if m.invoice == nil || m.invoice.ID != id || m.invoice.TenantID != tenantID {
		return nil, invoices.ErrNotFound
	}
	return m.invoice, nil
}

type mockRestocker struct {
	restocked map[string]int64
}

func (m *mockRestocker) RestockLot(ctx context.Context, tenantID int64, code string, qty int64) error {
	if m.restocked == nil {
		m.restocked = map[string]int64{}
	}
	m.restocked[code] += qty
	return nil
}

func finalInvoice() *invoices.Invoice {
	mk := func(name, lot string, qty int64, price string) billing.LineItem {
		p := decimal.RequireFromString(price)
		q := decimal.NewFromInt(qty)
		return billing.LineItem{
			ProductName: name, LotCode: lot, Quantity: qty,
			UnitPrice: p, TaxRate: decimal.Zero,
			Subtotal: q.Mul(p), LineTax: decimal.Zero, LineTotal: q.Mul(p),
		}
	}
	return &invoices.Invoice{
		ID:       10,
		TenantID: 1,
		Number:   "INV-000010",
		Status:   invoices.StatusFinal,
		Date:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Items: []billing.LineItem{
			mk("Gala Apples", "LOT-001", 25, "3.50"),
			mk("Bartlett Pears", "LOT-002", 4, "6.99"),
		},
	}
}

func newTestService(t *testing.T) (*Service, *mockReturnRepo, *mockRestocker) {
	t.Helper()
	repo := newMockReturnRepo()
	restocker := &mockRestocker{}
	svc := NewService(repo, &mockInvoiceReader{invoice: finalInvoice()}, restocker, nil, nil)
	return svc, repo, restocker
}

func draftReturn(t *testing.T, svc *Service) *Return {
	t.Helper()
	ret, err := svc.Create(context.Background(), 1, CreateReturnRequest{InvoiceID: 10}, 42)
	require.NoError(t, err)
	return ret
}

func TestCreateRequiresFinalInvoice(t *testing.T) {
	repo := newMockReturnRepo()
	inv := finalInvoice()
	inv.Status = invoices.StatusDraft
	svc := NewService(repo, &mockInvoiceReader{invoice: inv}, &mockRestocker{}, nil, nil)

	_, err := svc.Create(context.Background(), 1, CreateReturnRequest{InvoiceID: 10}, 42)
	assert.ErrorIs(t, err, ErrInvoiceNotFinal)
}

func TestSetQuantityClampsToOriginal(t *testing.T) {
	svc, _, _ := newTestService(t)
	ret := draftReturn(t, svc)

	updated, err := svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 0, Quantity: 9000})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, int64(25), updated.Items[0].Quantity)
	assert.Equal(t, "87.50", updated.Total.StringFixed(2))
}

func TestSetQuantityZeroRemovesSelection(t *testing.T) {
	svc, _, _ := newTestService(t)
	ret := draftReturn(t, svc)

	_, err := svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 0, Quantity: 3})
	require.NoError(t, err)
	updated, err := svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 0, Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	assert.True(t, updated.Total.IsZero())
}

func TestSetQuantityIndexOutOfRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ret := draftReturn(t, svc)

	_, err := svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 5, Quantity: 1})
	assert.ErrorIs(t, err, ErrItemIndex)
}

func TestProcessPartialReturnRestocks(t *testing.T) {
	svc, _, restocker := newTestService(t)
	ret := draftReturn(t, svc)

	_, err := svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 0, Quantity: 3})
	require.NoError(t, err)

	processed, err := svc.Process(context.Background(), 1, ret.ID, FinalizeReturnRequest{
		Reason: billing.ReasonDamaged,
		Detail: "crushed in transit",
	}, "", 42)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, processed.Status)
	assert.Equal(t, billing.ReturnPartial, processed.Type)
	assert.Equal(t, "Damaged goods: crushed in transit", processed.Reason)
	assert.Equal(t, "10.50", processed.Total.StringFixed(2))
	assert.Equal(t, int64(3), restocker.restocked["LOT-001"])

	_, err = svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 0, Quantity: 1})
	assert.ErrorIs(t, err, ErrProcessed)
}

func TestProcessFullReturn(t *testing.T) {
	svc, _, _ := newTestService(t)
	ret := draftReturn(t, svc)

	_, err := svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 0, Quantity: 25})
	require.NoError(t, err)
	_, err = svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 1, Quantity: 4})
	require.NoError(t, err)

	processed, err := svc.Process(context.Background(), 1, ret.ID, FinalizeReturnRequest{
		Reason: billing.ReasonCustomerRequest,
	}, "", 42)
	require.NoError(t, err)
	assert.Equal(t, billing.ReturnFull, processed.Type)
	assert.Equal(t, "Customer request", processed.Reason)
}

func TestProcessEmptyReturnRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ret := draftReturn(t, svc)

	_, err := svc.Process(context.Background(), 1, ret.ID, FinalizeReturnRequest{
		Reason: billing.ReasonOther,
	}, "", 42)
	assert.ErrorIs(t, err, billing.ErrEmptyReturn)
}

func TestProcessUnknownReasonRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ret := draftReturn(t, svc)

	_, err := svc.SetQuantity(context.Background(), 1, ret.ID, SetQuantityRequest{ItemIndex: 0, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Process(context.Background(), 1, ret.ID, FinalizeReturnRequest{
		Reason: billing.ReturnReason("changed_mind"),
	}, "", 42)
	assert.ErrorIs(t, err, billing.ErrUnknownReason)
}
