package assets

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"hrms/internal/platform/metrics"
)

type Service struct {
	store   StoreAPI
	Metrics *metrics.Collector
	NewTag  func() string
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, NewTag: generateTag}
}

// generateTag derives a short asset tag from a random UUID.
func generateTag() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "AST-" + strings.ToUpper(id[:8])
}

func (s *Service) Get(ctx context.Context, id int64) (Asset, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Asset, int, error) {
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func normalize(a *Asset) error {
	a.Tag = strings.ToUpper(strings.TrimSpace(a.Tag))
	a.Name = strings.TrimSpace(a.Name)
	a.Category = strings.ToLower(strings.TrimSpace(a.Category))
	a.SerialNumber = strings.TrimSpace(a.SerialNumber)
	a.Notes = strings.TrimSpace(a.Notes)
	if a.Name == "" || a.Category == "" {
		return ErrInvalidField
	}
	return nil
}

// Create registers a new asset as available. A blank tag is generated.
func (s *Service) Create(ctx context.Context, a Asset) (Asset, error) {
	if err := normalize(&a); err != nil {
		return Asset{}, err
	}
	if a.Tag == "" {
		a.Tag = s.NewTag()
	}
	a.Status = StatusAvailable
	id, err := s.store.Create(ctx, a)
	if err != nil {
		return Asset{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, a Asset) (Asset, Asset, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Asset{}, Asset{}, err
	}
	if err := normalize(&a); err != nil {
		return Asset{}, Asset{}, err
	}
	a.ID = id
	if err := s.store.Update(ctx, a); err != nil {
		return Asset{}, Asset{}, err
	}
	after, err := s.store.Get(ctx, id)
	return before, after, err
}

func (s *Service) SetStatus(ctx context.Context, id int64, status string) (Asset, Asset, error) {
	before, err := s.store.Get(ctx, id)
	if err != nil {
		return Asset{}, Asset{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if err := CanSetStatus(before.Status, status); err != nil {
		return Asset{}, Asset{}, err
	}
	if before.Status != status {
		if err := s.store.SetStatus(ctx, id, before.Status, status); err != nil {
			return Asset{}, Asset{}, err
		}
	}
	after, err := s.store.Get(ctx, id)
	return before, after, err
}

func (s *Service) Allocate(ctx context.Context, assetID, employeeID, actorID int64, notes string) (Asset, error) {
	current, err := s.store.Get(ctx, assetID)
	if err != nil {
		return Asset{}, err
	}
	if current.Status != StatusAvailable {
		return Asset{}, ErrNotAvailable
	}
	if _, err := s.store.Allocate(ctx, assetID, employeeID, actorID, strings.TrimSpace(notes)); err != nil {
		return Asset{}, err
	}
	s.Metrics.Event("asset_allocated")
	return s.store.Get(ctx, assetID)
}

// Return closes the open allocation. Damaged assets go to maintenance and
// lost assets are retired.
func (s *Service) Return(ctx context.Context, assetID int64, condition, notes string) (Asset, error) {
	current, err := s.store.Get(ctx, assetID)
	if err != nil {
		return Asset{}, err
	}
	if current.Status != StatusAllocated {
		return Asset{}, ErrNotAllocated
	}
	condition = strings.ToLower(strings.TrimSpace(condition))
	if condition == "" {
		condition = ConditionGood
	}
	if err := s.store.Return(ctx, assetID, condition, StatusAfterReturn(condition), strings.TrimSpace(notes)); err != nil {
		return Asset{}, err
	}
	return s.store.Get(ctx, assetID)
}

func (s *Service) Allocations(ctx context.Context, assetID int64) ([]Allocation, error) {
	if _, err := s.store.Get(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.ListAllocations(ctx, assetID)
}

func (s *Service) HeldBy(ctx context.Context, employeeID int64) ([]Allocation, error) {
	return s.store.HeldBy(ctx, employeeID)
}
