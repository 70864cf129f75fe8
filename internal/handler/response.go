package handler

import (
	"github.com/tastemash/compatibility-service/internal/ranking"
	"github.com/tastemash/compatibility-service/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type MashResponse struct {
	UserID  int64               `json:"user_id"`
	OtherID int64               `json:"other_id"`
	Mash    *service.MashResult `json:"mash"`
}

type TwinsResponse struct {
	UserID int64               `json:"user_id"`
	Twins  []service.TwinMatch `json:"twins"`
}

// DiscoveryResponse shapes ranking output; Found false renders the
// feature's empty state.
type DiscoveryResponse struct {
	UserID  int64          `json:"user_id,omitempty"`
	Feature string         `json:"feature"`
	Result  ranking.Result `json:"result"`
}
