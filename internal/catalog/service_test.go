package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	products      map[int64]*Product
	lots          map[string]*Lot
	nextProductID int64
	nextLotID     int64

	adjusted map[string]int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		products:      make(map[int64]*Product),
		lots:          make(map[string]*Lot),
		nextProductID: 1,
		nextLotID:     1,
		adjusted:      make(map[string]int64),
	}
}

func (m *mockRepository) CreateProduct(ctx context.Context, p Product) (int64, error) {
	for _, existing := range m.products {
		if existing.TenantID == p.TenantID && existing.SKU == p.SKU {
			return 0, ErrAlreadyExists
		}
	}
	p.ID = m.nextProductID
	m.nextProductID++
	m.products[p.ID] = &p
	return p.ID, nil
}

func (m *mockRepository) GetProduct(ctx context.Context, tenantID, id int64) (*Product, error) {
	p, ok := m.products[id]
	if !ok || p.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) ListProducts(ctx context.Context, tenantID int64, search string, limit, offset int) ([]Product, int, error) {
	result := []Product{}
	for _, p := range m.products {
		if p.TenantID == tenantID {
			result = append(result, *p)
		}
	}
	return result, len(result), nil
}

func (m *mockRepository) UpdateProduct(ctx context.Context, tenantID, id int64, updates map[string]any) error {
	p, ok := m.products[id]
	if !ok || p.TenantID != tenantID {
		return ErrNotFound
	}
	if name, ok := updates["name"].(string); ok {
		p.Name = name
	}
	if active, ok := updates["is_active"].(bool); ok {
		p.IsActive = active
	}
	return nil
}

func (m *mockRepository) CreateLot(ctx context.Context, lot Lot) (int64, error) {
	if _, exists := m.lots[lot.Code]; exists {
		return 0, ErrAlreadyExists
	}
	lot.ID = m.nextLotID
	m.nextLotID++
	m.lots[lot.Code] = &lot
	return lot.ID, nil
}

func (m *mockRepository) GetLotByCode(ctx context.Context, tenantID int64, code string) (*Lot, error) {
	lot, ok := m.lots[code]
	if !ok || lot.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return lot, nil
}

func (m *mockRepository) LotsByCodes(ctx context.Context, tenantID int64, codes []string) ([]Lot, error) {
	result := []Lot{}
	for _, code := range codes {
		if lot, ok := m.lots[code]; ok && lot.TenantID == tenantID {
			result = append(result, *lot)
		}
	}
	return result, nil
}

func (m *mockRepository) ListLots(ctx context.Context, tenantID int64, req ListLotsRequest) ([]Lot, int, error) {
	result := []Lot{}
	for _, lot := range m.lots {
		if lot.TenantID == tenantID {
			result = append(result, *lot)
		}
	}
	return result, len(result), nil
}

func (m *mockRepository) AdjustLotQty(ctx context.Context, tenantID int64, code string, delta int64) error {
	lot, ok := m.lots[code]
	if !ok || lot.TenantID != tenantID {
		return ErrNotFound
	}
	lot.AvailableQty += delta
	if lot.AvailableQty < 0 {
		lot.AvailableQty = 0
	}
	m.adjusted[code] += delta
	return nil
}

func seedProduct(t *testing.T, svc *Service, tenantID int64, name, sku string) *Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), tenantID, CreateProductRequest{Name: name, SKU: sku, Unit: "kg"})
	require.NoError(t, err)
	return product
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc := NewService(newMockRepository())
	seedProduct(t, svc, 1, "Gala Apples", "APL-001")

	_, err := svc.CreateProduct(context.Background(), 1, CreateProductRequest{Name: "Other", SKU: "APL-001"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateLotDenormalisesProductName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	product := seedProduct(t, svc, 1, "Gala Apples", "APL-001")

	lot, err := svc.CreateLot(context.Background(), 1, CreateLotRequest{
		ProductID:    product.ID,
		Code:         "LOT-001",
		Supplier:     "Orchard Co",
		ReceivedDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		AvailableQty: 25,
		UnitPrice:    decimal.RequireFromString("3.50"),
		CostPrice:    decimal.RequireFromString("2.10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Gala Apples", lot.ProductName)
	assert.Equal(t, int64(25), lot.AvailableQty)
}

func TestCreateLotRejectsNegativePrice(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.CreateLot(context.Background(), 1, CreateLotRequest{
		ProductID: 1,
		Code:      "LOT-001",
		UnitPrice: decimal.RequireFromString("-1"),
	})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestCreateLotUnknownProduct(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.CreateLot(context.Background(), 1, CreateLotRequest{
		ProductID: 99,
		Code:      "LOT-001",
		UnitPrice: decimal.RequireFromString("1.00"),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLotsForAllocationSkipsUnknownCodes(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	product := seedProduct(t, svc, 1, "Gala Apples", "APL-001")
	_, err := svc.CreateLot(context.Background(), 1, CreateLotRequest{
		ProductID:    product.ID,
		Code:         "LOT-001",
		ReceivedDate: time.Now(),
		AvailableQty: 10,
		UnitPrice:    decimal.RequireFromString("3.50"),
	})
	require.NoError(t, err)

	lots, err := svc.LotsForAllocation(context.Background(), 1, []string{"LOT-001", "LOT-404"})
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "LOT-001", lots[0].Code)
	assert.Equal(t, "Gala Apples", lots[0].ProductName)
}

func TestConsumeLotFloorsAtZero(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	product := seedProduct(t, svc, 1, "Gala Apples", "APL-001")
	_, err := svc.CreateLot(context.Background(), 1, CreateLotRequest{
		ProductID:    product.ID,
		Code:         "LOT-001",
		ReceivedDate: time.Now(),
		AvailableQty: 5,
		UnitPrice:    decimal.RequireFromString("3.50"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.ConsumeLot(context.Background(), 1, "LOT-001", 8))
	lot, err := svc.GetLot(context.Background(), 1, "LOT-001")
	require.NoError(t, err)
	assert.Equal(t, int64(0), lot.AvailableQty)

	require.NoError(t, svc.RestockLot(context.Background(), 1, "LOT-001", 3))
	lot, err = svc.GetLot(context.Background(), 1, "LOT-001")
	require.NoError(t, err)
	assert.Equal(t, int64(3), lot.AvailableQty)
}

func TestTenantIsolation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	product := seedProduct(t, svc, 1, "Gala Apples", "APL-001")

	_, err := svc.GetProduct(context.Background(), 2, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
