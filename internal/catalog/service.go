package catalog

import (
	"context"
	"fmt"

	"github.com/profitpulse/profitpulse/internal/billing"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CreateProduct(ctx context.Context, p Product) (int64, error)
	GetProduct(ctx context.Context, tenantID, id int64) (*Product, error)
	ListProducts(ctx context.Context, tenantID int64, search string, limit, offset int) ([]Product, int, error)
	UpdateProduct(ctx context.Context, tenantID, id int64, updates map[string]any) error
	CreateLot(ctx context.Context, lot Lot) (int64, error)
	GetLotByCode(ctx context.Context, tenantID int64, code string) (*Lot, error)
	LotsByCodes(ctx context.Context, tenantID int64, codes []string) ([]Lot, error)
	ListLots(ctx context.Context, tenantID int64, req ListLotsRequest) ([]Lot, int, error)
	AdjustLotQty(ctx context.Context, tenantID int64, code string, delta int64) error
}

// Service coordinates catalog operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateProduct registers a product for the tenant.
func (s *Service) CreateProduct(ctx context.Context, tenantID int64, req CreateProductRequest) (*Product, error) {
	product := Product{
		TenantID: tenantID,
		Name:     req.Name,
		SKU:      req.SKU,
		Category: req.Category,
		Unit:     req.Unit,
		IsActive: true,
	}
	id, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return s.repo.GetProduct(ctx, tenantID, id)
}

// GetProduct retrieves a product by ID.
func (s *Service) GetProduct(ctx context.Context, tenantID, id int64) (*Product, error) {
	return s.repo.GetProduct(ctx, tenantID, id)
}

// ListProducts returns a paginated product listing.
func (s *Service) ListProducts(ctx context.Context, tenantID int64, search string, limit, offset int) ([]Product, int, error) {
	return s.repo.ListProducts(ctx, tenantID, search, limit, offset)
}

// UpdateProduct patches the provided fields.
func (s *Service) UpdateProduct(ctx context.Context, tenantID, id int64, req UpdateProductRequest) (*Product, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateProduct(ctx, tenantID, id, updates); err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	return s.repo.GetProduct(ctx, tenantID, id)
}

// CreateLot registers a received batch against a product. Prices must be
// non-negative; the product name is denormalised onto the lot for display.
func (s *Service) CreateLot(ctx context.Context, tenantID int64, req CreateLotRequest) (*Lot, error) {
	if req.UnitPrice.IsNegative() || req.CostPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	product, err := s.repo.GetProduct(ctx, tenantID, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}

	lot := Lot{
		TenantID:     tenantID,
		ProductID:    product.ID,
		ProductName:  product.Name,
		Code:         req.Code,
		Supplier:     req.Supplier,
		ReceivedDate: req.ReceivedDate,
		AvailableQty: req.AvailableQty,
		UnitPrice:    req.UnitPrice,
		CostPrice:    req.CostPrice,
	}
	if _, err := s.repo.CreateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	return s.repo.GetLotByCode(ctx, tenantID, req.Code)
}

// ListLots returns a paginated lot listing.
func (s *Service) ListLots(ctx context.Context, tenantID int64, req ListLotsRequest) ([]Lot, int, error) {
	return s.repo.ListLots(ctx, tenantID, req)
}

// GetLot retrieves one lot by code.
func (s *Service) GetLot(ctx context.Context, tenantID int64, code string) (*Lot, error) {
	return s.repo.GetLotByCode(ctx, tenantID, code)
}

// LotsForAllocation resolves the requested codes into billing lots. Codes
// without a matching lot are simply absent from the result; the allocation
// engine skips them.
func (s *Service) LotsForAllocation(ctx context.Context, tenantID int64, codes []string) ([]billing.Lot, error) {
	lots, err := s.repo.LotsByCodes(ctx, tenantID, codes)
	if err != nil {
		return nil, fmt.Errorf("resolve lots: %w", err)
	}
	out := make([]billing.Lot, 0, len(lots))
	for _, lot := range lots {
		out = append(out, billing.Lot{
			Code:         lot.Code,
			ProductName:  lot.ProductName,
			Supplier:     lot.Supplier,
			ReceivedDate: lot.ReceivedDate,
			AvailableQty: lot.AvailableQty,
			UnitPrice:    lot.UnitPrice,
			CostPrice:    lot.CostPrice,
		})
	}
	return out, nil
}

// ConsumeLot decrements availability after an invoice is finalized. The
// decrement floors at zero: availability caps are advisory at selection time.
func (s *Service) ConsumeLot(ctx context.Context, tenantID int64, code string, qty int64) error {
	if qty <= 0 {
		return nil
	}
	return s.repo.AdjustLotQty(ctx, tenantID, code, -qty)
}

// RestockLot returns quantity to a lot after a return is finalized.
func (s *Service) RestockLot(ctx context.Context, tenantID int64, code string, qty int64) error {
	if qty <= 0 {
		return nil
	}
	return s.repo.AdjustLotQty(ctx, tenantID, code, qty)
}
