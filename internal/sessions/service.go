package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

// Service exposes checkout sessions to operators for cart recovery.
type Service interface {
	Get(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	ListAbandoned(ctx context.Context, olderThan time.Duration, limit int) ([]models.CheckoutSession, error)
	Delete(ctx context.Context, sessionID string) error
}

type canceller interface {
	Cancel(sessionID string)
}

type service struct {
	repo    Repository
	tracker canceller
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, tracker canceller, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("session tracker required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tracker: tracker, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	row, err := s.repo.FindActive(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load checkout session").WithReason(pkgerrors.ReasonPersistence)
	}
	return row, nil
}

// ListAbandoned returns unconverted sessions idle for at least olderThan, newest first.
func (s *service) ListAbandoned(ctx context.Context, olderThan time.Duration, limit int) ([]models.CheckoutSession, error) {
	if olderThan < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "older_than must not be negative")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.repo.ListAbandoned(ctx, s.now().UTC().Add(-olderThan), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list abandoned sessions").WithReason(pkgerrors.ReasonPersistence)
	}
	return rows, nil
}

// Delete removes the active session row and drops any pending autosave for it.
func (s *service) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	s.tracker.Cancel(sessionID)

	removed, err := s.repo.DeleteActive(ctx, sessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete checkout session").WithReason(pkgerrors.ReasonPersistence)
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "checkout session deleted by operator")
	return nil
}
