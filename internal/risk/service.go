package risk

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/fraud"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/angelmondragon/orderdesk-backend/pkg/phone"
)

// SignalClient fetches delivery history from the fraud provider.
type SignalClient interface {
	Check(ctx context.Context, rawPhone string) (*fraud.Signal, error)
}

// Assessment is a risk lookup result.
type Assessment struct {
	Signal    fraud.Signal   `json:"signal"`
	Tier      enums.RiskTier `json:"tier"`
	FromCache bool           `json:"fromCache"`
}

// Service looks up risk signals cache-first.
type Service interface {
	Check(ctx context.Context, rawPhone string) (Assessment, error)
	Policy() GatePolicy
	ClearCache(ctx context.Context) (int64, error)
}

type service struct {
	cache   *Cache
	client  SignalClient
	policy  GatePolicy
	metrics *metrics.IntegrationMetrics
	logg    *logger.Logger
	group   singleflight.Group
}

// NewService wires the cache in front of the provider client.
func NewService(cache *Cache, client SignalClient, policy GatePolicy, m *metrics.IntegrationMetrics, logg *logger.Logger) (Service, error) {
	if cache == nil {
		return nil, fmt.Errorf("risk cache required")
	}
	if client == nil {
		return nil, fmt.Errorf("fraud client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{cache: cache, client: client, policy: policy, metrics: m, logg: logg}, nil
}

func (s *service) Check(ctx context.Context, rawPhone string) (Assessment, error) {
	canonical, ok := phone.Normalize(rawPhone)
	if !ok {
		s.metrics.Observe("fraud", "check", metrics.OutcomeInvalid, 0)
		return Assessment{}, pkgerrors.New(pkgerrors.CodeValidation, "phone number is not a valid mobile number").
			WithReason(pkgerrors.ReasonInvalidPhone)
	}

	if cached, hit := s.cache.Get(ctx, canonical); hit {
		return Assessment{Signal: *cached, Tier: cached.Tier(), FromCache: true}, nil
	}

	// Concurrent lookups for one phone share a single provider call.
	res, err, _ := s.group.Do(canonical, func() (any, error) {
		started := time.Now()
		signal, err := s.client.Check(ctx, canonical)
		if err != nil {
			s.metrics.Observe("fraud", "check", outcomeFor(err), time.Since(started))
			return nil, err
		}
		s.metrics.Observe("fraud", "check", metrics.OutcomeOK, time.Since(started))
		s.cache.Put(ctx, canonical, signal)
		return signal, nil
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "phone", phone.Mask(canonical)), "risk lookup failed")
		return Assessment{}, err
	}

	signal := res.(*fraud.Signal)
	return Assessment{Signal: *signal, Tier: signal.Tier()}, nil
}

func (s *service) Policy() GatePolicy {
	return s.policy
}

func (s *service) ClearCache(ctx context.Context) (int64, error) {
	removed, err := s.cache.Clear(ctx)
	if err != nil {
		return removed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear risk cache").WithReason(pkgerrors.ReasonUpstreamUnavailable)
	}
	s.logg.Info(s.logg.WithField(ctx, "removed", removed), "risk cache cleared")
	return removed, nil
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.HasReason(err, pkgerrors.ReasonInvalidPhone):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeUnavailable
	}
}
