package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/pkg/courier"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

type balanceChecker interface {
	CheckBalance(ctx context.Context) courier.BalanceReport
}

// CourierBalance reports the merchant balance. An unreachable courier yields
// known=false with a null balance rather than an error.
func CourierBalance(client balanceChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "courier client unavailable"))
			return
		}

		report := client.CheckBalance(r.Context())
		resp := BalanceResponse{Known: report.Known, CheckedAt: report.CheckedAt}
		if report.Known {
			balance := report.Balance
			resp.Balance = &balance
		}
		responses.WriteSuccess(w, resp)
	}
}
