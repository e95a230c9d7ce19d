package handlers

import (
	"net/http"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HTTPHandler mirrors the RPC actions for plain HTTP clients. Both surfaces
// share the RPCHandler core, so an HTTP mutation broadcasts and audits
// exactly like a websocket one.
type HTTPHandler struct {
	core *RPCHandler
	log  logger.Logger
}

func NewHTTPHandler(core *RPCHandler, log logger.Logger) *HTTPHandler {
	return &HTTPHandler{core: core, log: log}
}

func (h *HTTPHandler) Register(g *echo.Group) {
	g.POST("/auctions", h.CreateAuction)
	g.GET("/auctions/:id", h.GetAuction)
	g.POST("/auctions/:id/bids", h.PlaceBid)
	g.POST("/auctions/:id/close", h.CloseAuction)
	g.GET("/auctions/:id/history", h.History)
}

type bidRequest struct {
	Bidder *string  `json:"bidder"`
	Amount *float64 `json:"amount"`
}

func (h *HTTPHandler) CreateAuction(c echo.Context) error {
	var req openAuctionRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.WrapError(domain.KindMalformedRequest, err, "undecodable request body"))
	}
	if req.AuctionID == nil || req.Item == nil || req.StartingBid == nil {
		return writeError(c, domain.NewError(domain.KindMalformedRequest,
			"auctionId, item and startingBid are required"))
	}

	auction, err := h.core.OpenAuction(c.Request().Context(), "", *req.AuctionID, *req.Item, *req.StartingBid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, auction)
}

func (h *HTTPHandler) GetAuction(c echo.Context) error {
	auction, err := h.core.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, auction)
}

func (h *HTTPHandler) PlaceBid(c echo.Context) error {
	var req bidRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, domain.WrapError(domain.KindMalformedRequest, err, "undecodable request body"))
	}
	if req.Bidder == nil || req.Amount == nil {
		return writeError(c, domain.NewError(domain.KindMalformedRequest, "bidder and amount are required"))
	}

	auction, err := h.core.PlaceBid(c.Request().Context(), "", c.Param("id"), *req.Bidder, *req.Amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, auction)
}

func (h *HTTPHandler) CloseAuction(c echo.Context) error {
	auction, err := h.core.CloseAuction(c.Request().Context(), "", c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, auction)
}

func (h *HTTPHandler) History(c echo.Context) error {
	if !h.core.AuditEnabled() {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "audit trail is not configured"})
	}

	events, err := h.core.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.log.Error("Failed to load audit history", "auction_id", c.Param("id"), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
	}
	return c.JSON(http.StatusOK, events)
}

func writeError(c echo.Context, err error) error {
	kind := domain.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case domain.KindInvalidArgument, domain.KindMalformedRequest:
		status = http.StatusBadRequest
	case domain.KindAuctionNotFound:
		status = http.StatusNotFound
	case domain.KindDuplicateAuction, domain.KindAuctionClosed:
		status = http.StatusConflict
	}

	return c.JSON(status, map[string]string{
		"kind":  string(kind),
		"error": err.Error(),
	})
}
