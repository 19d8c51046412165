package checkout

import (
	"github.com/angelmondragon/orderdesk-backend/api/controllers/dto"
	internalorders "github.com/angelmondragon/orderdesk-backend/internal/orders"
)

type QuoteResponse struct {
	Quote  dto.Quote                       `json:"quote"`
	Coupon *internalorders.CouponRejection `json:"coupon_rejection,omitempty"`
}

type PlaceOrderResponse struct {
	Order *dto.Order `json:"order"`
	Quote dto.Quote  `json:"quote"`
}

type SessionAccepted struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}
