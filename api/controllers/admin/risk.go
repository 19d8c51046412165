package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

type riskService interface {
	Check(ctx context.Context, rawPhone string) (risk.Assessment, error)
	Policy() risk.GatePolicy
	ClearCache(ctx context.Context) (int64, error)
}

// CheckRisk shows the delivery-history signal and what the confirm gate would decide.
func CheckRisk(svc riskService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "risk service unavailable"))
			return
		}

		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if phone == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "phone query parameter required").
				WithDetails(map[string]any{"field": "phone"}))
			return
		}

		assessment, err := svc.Check(r.Context(), phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, RiskResponse{
			Signal:    assessment.Signal,
			Tier:      assessment.Tier,
			FromCache: assessment.FromCache,
			Gate:      svc.Policy().Evaluate(assessment.Signal),
		})
	}
}

func ClearRiskCache(svc riskService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "risk service unavailable"))
			return
		}

		removed, err := svc.ClearCache(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "removed", removed), "risk cache cleared")
		}
		responses.WriteSuccess(w, map[string]int64{"removed": removed})
	}
}
