package zones

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

// Service exposes delivery zones to checkout and pricing.
type Service interface {
	// Resolve returns nil for a nil id. Missing or inactive zones are validation errors.
	Resolve(ctx context.Context, id *uuid.UUID) (*pricing.Zone, error)
	List(ctx context.Context) ([]pricing.Zone, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("zone repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Resolve(ctx context.Context, id *uuid.UUID) (*pricing.Zone, error) {
	if id == nil || *id == uuid.Nil {
		return nil, nil
	}
	zone, err := s.repo.Find(ctx, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unknownZone(*id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup delivery zone").WithReason(pkgerrors.ReasonPersistence)
	}
	if !zone.IsActive {
		return nil, unknownZone(*id)
	}
	return &pricing.Zone{ID: zone.ID, Name: zone.Name, Charge: zone.Charge}, nil
}

func (s *service) List(ctx context.Context) ([]pricing.Zone, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list delivery zones").WithReason(pkgerrors.ReasonPersistence)
	}
	out := make([]pricing.Zone, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.Zone{ID: row.ID, Name: row.Name, Charge: row.Charge})
	}
	return out, nil
}

func unknownZone(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "delivery zone is not available").
		WithReason(pkgerrors.ReasonUnknownZone).
		WithDetails(map[string]any{"delivery_zone_id": id.String()})
}
