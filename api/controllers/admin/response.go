package admin

import (
	"time"

	"github.com/angelmondragon/orderdesk-backend/api/controllers/dto"
	internalorders "github.com/angelmondragon/orderdesk-backend/internal/orders"
	"github.com/angelmondragon/orderdesk-backend/internal/risk"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/fraud"
)

type OrderDetailResponse struct {
	Order   *dto.Order        `json:"order"`
	History []dto.StatusEvent `json:"history"`
}

type DispatchResponse struct {
	Order         *dto.Order `json:"order"`
	ConsignmentID string     `json:"consignment_id"`
	TrackingCode  string     `json:"tracking_code"`
	CourierStatus string     `json:"courier_status"`
}

type TransitionResponse struct {
	Order          *dto.Order               `json:"order"`
	From           enums.OrderStatus        `json:"from"`
	To             enums.OrderStatus        `json:"to"`
	Risk           *risk.GateDecision       `json:"risk,omitempty"`
	RiskOverridden bool                     `json:"risk_overridden"`
	Dispatch       *DispatchResponse        `json:"dispatch,omitempty"`
	Warnings       []internalorders.Warning `json:"warnings,omitempty"`
}

type CourierStatusResponse struct {
	Order          *dto.Order                  `json:"order"`
	Status         string                      `json:"status"`
	Known          bool                        `json:"known"`
	CheckedAt      time.Time                   `json:"checked_at"`
	Reconciliation enums.CourierReconciliation `json:"reconciliation"`
}

type RiskResponse struct {
	Signal    fraud.Signal      `json:"signal"`
	Tier      enums.RiskTier    `json:"tier"`
	FromCache bool              `json:"from_cache"`
	Gate      risk.GateDecision `json:"gate"`
}

type BalanceResponse struct {
	Balance   *float64  `json:"balance"`
	Known     bool      `json:"known"`
	CheckedAt time.Time `json:"checked_at"`
}

type SessionResponse struct {
	SessionID      string                  `json:"session_id"`
	Customer       models.CustomerSnapshot `json:"customer"`
	Cart           []models.CartLine       `json:"cart"`
	DeliveryZoneID *string                 `json:"delivery_zone_id,omitempty"`
	LastUpdatedAt  time.Time               `json:"last_updated_at"`
}

func newDispatch(result *internalorders.DispatchResult) *DispatchResponse {
	if result == nil {
		return nil
	}
	return &DispatchResponse{
		Order:         dto.NewOrder(result.Order),
		ConsignmentID: result.ConsignmentID,
		TrackingCode:  result.TrackingCode,
		CourierStatus: result.CourierStatus,
	}
}

func newTransition(result *internalorders.TransitionResult) TransitionResponse {
	return TransitionResponse{
		Order:          dto.NewOrder(result.Order),
		From:           result.From,
		To:             result.To,
		Risk:           result.Risk,
		RiskOverridden: result.RiskOverridden,
		Dispatch:       newDispatch(result.Dispatch),
		Warnings:       result.Warnings,
	}
}

func newSession(row models.CheckoutSession) SessionResponse {
	item := SessionResponse{
		SessionID:     row.SessionID,
		Customer:      row.Customer,
		Cart:          row.Cart,
		LastUpdatedAt: row.LastUpdatedAt,
	}
	if row.DeliveryZoneID != nil {
		id := row.DeliveryZoneID.String()
		item.DeliveryZoneID = &id
	}
	return item
}

func newSessions(rows []models.CheckoutSession) []SessionResponse {
	out := make([]SessionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, newSession(row))
	}
	return out
}
