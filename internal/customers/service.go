package customers

import (
	"context"
	"fmt"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, c Customer) (int64, error)
	Get(ctx context.Context, tenantID, id int64) (*Customer, error)
	List(ctx context.Context, tenantID int64, search string, activeOnly bool, limit, offset int) ([]Customer, int, error)
	Update(ctx context.Context, tenantID, id int64, updates map[string]any) error
}

// Service provides customer directory operations.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a customer service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a customer.
func (s *Service) Create(ctx context.Context, tenantID int64, req CreateCustomerRequest) (*Customer, error) {
	customer := Customer{
		TenantID: tenantID,
		Name:     req.Name,
		Contact:  req.Contact,
		Email:    req.Email,
		Address:  req.Address,
		IsActive: true,
	}
	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return s.repo.Get(ctx, tenantID, id)
}

// Get retrieves a customer by ID.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*Customer, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns a paginated customer listing.
func (s *Service) List(ctx context.Context, tenantID int64, search string, activeOnly bool, limit, offset int) ([]Customer, int, error) {
	return s.repo.List(ctx, tenantID, search, activeOnly, limit, offset)
}

// Update patches the provided fields.
func (s *Service) Update(ctx context.Context, tenantID, id int64, req UpdateCustomerRequest) (*Customer, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Contact != nil {
		updates["contact"] = *req.Contact
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, tenantID, id, updates); err != nil {
			return nil, fmt.Errorf("update customer: %w", err)
		}
	}
	return s.repo.Get(ctx, tenantID, id)
}
