package handlers

import (
	"context"
	"encoding/json"
	"time"

	"auction-node/internal/domain"
	"auction-node/internal/services"
	"auction-node/pkg/logger"
)

// RPCHandler is the node's service endpoint: it validates inbound payloads,
// delegates to the auction engine, and on success triggers the peer
// broadcast. The caller's response never waits on broadcast outcomes.
type RPCHandler struct {
	engine      *services.AuctionEngine
	broadcaster domain.Broadcaster
	audit       domain.AuditRepository // nil disables the audit trail
	log         logger.Logger
}

func NewRPCHandler(engine *services.AuctionEngine, broadcaster domain.Broadcaster,
	audit domain.AuditRepository, log logger.Logger) *RPCHandler {
	return &RPCHandler{
		engine:      engine,
		broadcaster: broadcaster,
		audit:       audit,
		log:         log,
	}
}

// Wire-level request shapes. Pointer fields distinguish a missing field
// (MalformedRequest) from a present-but-invalid value (InvalidArgument).
type openAuctionRequest struct {
	AuctionID   *string  `json:"auctionId"`
	Item        *string  `json:"item"`
	StartingBid *float64 `json:"startingBid"`
}

type placeBidRequest struct {
	AuctionID *string  `json:"auctionId"`
	Bidder    *string  `json:"bidder"`
	Amount    *float64 `json:"amount"`
}

type auctionIDRequest struct {
	AuctionID *string `json:"auctionId"`
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return domain.NewError(domain.KindMalformedRequest, "request payload is empty")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return domain.WrapError(domain.KindMalformedRequest, err, "undecodable request payload")
	}
	return nil
}

// Dispatch routes one RPC request. Origin is empty for client-originated
// calls and carries the originating node's identity on replication traffic.
func (h *RPCHandler) Dispatch(ctx context.Context, action domain.Action, origin string,
	payload json.RawMessage) (interface{}, error) {

	switch action {
	case domain.ActionOpenAuction:
		var req openAuctionRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.AuctionID == nil || req.Item == nil || req.StartingBid == nil {
			return nil, domain.NewError(domain.KindMalformedRequest,
				"open-auction requires auctionId, item and startingBid")
		}
		return h.OpenAuction(ctx, origin, *req.AuctionID, *req.Item, *req.StartingBid)

	case domain.ActionPlaceBid:
		var req placeBidRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.AuctionID == nil || req.Bidder == nil || req.Amount == nil {
			return nil, domain.NewError(domain.KindMalformedRequest,
				"place-bid requires auctionId, bidder and amount")
		}
		return h.PlaceBid(ctx, origin, *req.AuctionID, *req.Bidder, *req.Amount)

	case domain.ActionCloseAuction:
		var req auctionIDRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.AuctionID == nil {
			return nil, domain.NewError(domain.KindMalformedRequest, "close-auction requires auctionId")
		}
		return h.CloseAuction(ctx, origin, *req.AuctionID)

	case domain.ActionGetAuction:
		var req auctionIDRequest
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		if req.AuctionID == nil {
			return nil, domain.NewError(domain.KindMalformedRequest, "get-auction requires auctionId")
		}
		return h.engine.GetAuction(ctx, *req.AuctionID)

	default:
		return nil, domain.NewError(domain.KindMalformedRequest, "unknown action %q", action)
	}
}

func (h *RPCHandler) OpenAuction(ctx context.Context, origin, auctionID, item string,
	startingBid float64) (*domain.Auction, error) {

	auction, err := h.engine.OpenAuction(ctx, auctionID, item, startingBid)
	if err != nil {
		return nil, err
	}

	h.recordMutation(ctx, &domain.MutationEvent{
		AuctionID: auctionID,
		Action:    domain.ActionOpenAuction,
		Amount:    startingBid,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	})
	h.replicate(origin, domain.ActionOpenAuction, domain.OpenAuctionPayload{
		AuctionID:   auctionID,
		Item:        item,
		StartingBid: startingBid,
	})
	return auction, nil
}

func (h *RPCHandler) PlaceBid(ctx context.Context, origin, auctionID, bidder string,
	amount float64) (*domain.Auction, error) {

	auction, err := h.engine.PlaceBid(ctx, auctionID, bidder, amount)
	if err != nil {
		return nil, err
	}

	h.recordMutation(ctx, &domain.MutationEvent{
		AuctionID: auctionID,
		Action:    domain.ActionPlaceBid,
		Actor:     bidder,
		Amount:    amount,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	})
	h.replicate(origin, domain.ActionPlaceBid, domain.PlaceBidPayload{
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amount,
	})
	return auction, nil
}

func (h *RPCHandler) CloseAuction(ctx context.Context, origin, auctionID string) (*domain.Auction, error) {
	auction, err := h.engine.CloseAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	event := &domain.MutationEvent{
		AuctionID: auctionID,
		Action:    domain.ActionCloseAuction,
		Origin:    origin,
		Timestamp: time.Now().UTC(),
	}
	if auction.Winner != nil {
		event.Actor = auction.Winner.Bidder
		event.Amount = auction.Winner.Amount
	}
	h.recordMutation(ctx, event)
	h.replicate(origin, domain.ActionCloseAuction, domain.CloseAuctionPayload{AuctionID: auctionID})
	return auction, nil
}

func (h *RPCHandler) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	return h.engine.GetAuction(ctx, auctionID)
}

func (h *RPCHandler) History(ctx context.Context, auctionID string) ([]*domain.MutationEvent, error) {
	if h.audit == nil {
		return nil, nil
	}
	return h.audit.History(ctx, auctionID)
}

func (h *RPCHandler) AuditEnabled() bool {
	return h.audit != nil
}

// replicate fans a client-originated mutation out to the peers. Mutations
// that arrived from a peer are already a replica and are not re-broadcast.
func (h *RPCHandler) replicate(origin string, action domain.Action, payload interface{}) {
	if origin != "" {
		return
	}
	h.broadcaster.Broadcast(action, payload)
}

// recordMutation appends to the audit trail. Best effort: the record store
// already holds the durable truth, so a failed audit insert is only logged.
func (h *RPCHandler) recordMutation(ctx context.Context, event *domain.MutationEvent) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordMutation(ctx, event); err != nil {
		h.log.Error("Failed to record audit event", "auction_id", event.AuctionID,
			"action", event.Action, "error", err)
	}
}
