package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/profitpulse/profitpulse/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, m Member) (int64, error)
	Get(ctx context.Context, tenantID, id int64) (*Member, error)
	GetByEmail(ctx context.Context, tenantID int64, email string) (*Member, error)
	List(ctx context.Context, tenantID int64, activeOnly bool, limit, offset int) ([]Member, int, error)
	Update(ctx context.Context, tenantID, id int64, updates map[string]any) error
}

// Service manages staff accounts and credential checks.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a staff account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, tenantID int64, req CreateMemberRequest) (*Member, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.Create(ctx, Member{
		TenantID:     tenantID,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		Role:         req.Role,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tenantID, id)
}

// Get loads a staff member.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*Member, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns the tenant's staff.
func (s *Service) List(ctx context.Context, tenantID int64, activeOnly bool, limit, offset int) ([]Member, int, error) {
	return s.repo.List(ctx, tenantID, activeOnly, limit, offset)
}

// Update modifies selected fields, rehashing the password when present.
func (s *Service) Update(ctx context.Context, tenantID, id int64, req UpdateMemberRequest) (*Member, error) {
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Role != nil {
		updates["role"] = string(*req.Role)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}
	if err := s.repo.Update(ctx, tenantID, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, tenantID, id)
}

// CanFinalize checks that the acting staff member may freeze documents.
// Unknown and deactivated members are forbidden, as are clerks.
func (s *Service) CanFinalize(ctx context.Context, tenantID, staffID int64) error {
	member, err := s.repo.Get(ctx, tenantID, staffID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.ErrForbidden
		}
		return err
	}
	if !member.IsActive || !member.CanFinalize() {
		return shared.ErrForbidden
	}
	return nil
}

// Authenticate verifies credentials for an active account. All failure modes
// collapse into ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, tenantID int64, email, password string) (*Member, error) {
	member, err := s.repo.GetByEmail(ctx, tenantID, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !member.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return member, nil
}
