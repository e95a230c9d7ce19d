package services

import (
	"context"
	"math"
	"sync"
	"time"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"
)

// AuctionEngine owns the auction lifecycle: open -> bids -> closed.
// Mutations for one auction id are serialized under a per-id mutex, and
// every successful mutation is persisted before the engine returns.
type AuctionEngine struct {
	store  domain.AuctionStore
	log    logger.Logger
	locks  map[string]*sync.Mutex
	lockMu sync.Mutex
}

func NewAuctionEngine(store domain.AuctionStore, log logger.Logger) *AuctionEngine {
	return &AuctionEngine{
		store: store,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing writers of one auction id.
// Lock entries are kept for the life of the process; auctions are never
// destroyed, so there is nothing to garbage collect.
func (e *AuctionEngine) lockFor(auctionID string) *sync.Mutex {
	e.lockMu.Lock()
	defer e.lockMu.Unlock()

	lock, exists := e.locks[auctionID]
	if !exists {
		lock = &sync.Mutex{}
		e.locks[auctionID] = lock
	}
	return lock
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (e *AuctionEngine) OpenAuction(ctx context.Context, auctionID, item string, startingBid float64) (*domain.Auction, error) {
	if auctionID == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "auctionId must not be empty")
	}
	if item == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "item must not be empty")
	}
	if !isFinite(startingBid) || startingBid < 0 {
		return nil, domain.NewError(domain.KindInvalidArgument, "startingBid must be a finite non-negative number")
	}

	lock := e.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewError(domain.KindDuplicateAuction, "auction %s already exists", auctionID)
	}

	now := time.Now().UTC()
	auction := &domain.Auction{
		ID:          auctionID,
		Item:        item,
		StartingBid: startingBid,
		Bids:        []domain.Bid{},
		Status:      domain.AuctionOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.store.PutAuction(ctx, auction); err != nil {
		return nil, err
	}

	e.log.Info("Auction opened", "auction_id", auctionID, "item", item, "starting_bid", startingBid)
	return auction, nil
}

func (e *AuctionEngine) PlaceBid(ctx context.Context, auctionID, bidder string, amount float64) (*domain.Auction, error) {
	if bidder == "" {
		return nil, domain.NewError(domain.KindInvalidArgument, "bidder must not be empty")
	}
	if !isFinite(amount) {
		return nil, domain.NewError(domain.KindInvalidArgument, "amount must be a finite number")
	}

	lock := e.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	auction, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, domain.NewError(domain.KindAuctionNotFound, "auction %s not found", auctionID)
	}
	if auction.Status == domain.AuctionClosed {
		return nil, domain.NewError(domain.KindAuctionClosed, "auction %s is closed", auctionID)
	}

	auction.Bids = append(auction.Bids, domain.Bid{
		AuctionID: auctionID,
		Bidder:    bidder,
		Amount:    amount,
		PlacedAt:  time.Now().UTC(),
	})
	auction.UpdatedAt = time.Now().UTC()

	if err := e.store.PutAuction(ctx, auction); err != nil {
		return nil, err
	}

	e.log.Info("Bid placed", "auction_id", auctionID, "bidder", bidder, "amount", amount, "bid_count", len(auction.Bids))
	return auction, nil
}

func (e *AuctionEngine) CloseAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	lock := e.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	auction, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, domain.NewError(domain.KindAuctionNotFound, "auction %s not found", auctionID)
	}
	if auction.Status == domain.AuctionClosed {
		return nil, domain.NewError(domain.KindAuctionClosed, "auction %s is already closed", auctionID)
	}

	auction.Winner = selectWinner(auction.Bids)
	auction.Status = domain.AuctionClosed
	auction.UpdatedAt = time.Now().UTC()

	if err := e.store.PutAuction(ctx, auction); err != nil {
		return nil, err
	}

	if auction.Winner != nil {
		e.log.Info("Auction closed", "auction_id", auctionID, "winner", auction.Winner.Bidder, "amount", auction.Winner.Amount)
	} else {
		e.log.Info("Auction closed without bids", "auction_id", auctionID)
	}
	return auction, nil
}

func (e *AuctionEngine) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	lock := e.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	auction, err := e.store.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, domain.NewError(domain.KindAuctionNotFound, "auction %s not found", auctionID)
	}
	return auction, nil
}

// selectWinner scans the bid history for the maximum amount. Ties keep the
// earliest-inserted bid, so the result is deterministic for any given
// append order.
func selectWinner(bids []domain.Bid) *domain.Bid {
	var winner *domain.Bid
	for i := range bids {
		if winner == nil || bids[i].Amount > winner.Amount {
			winner = &bids[i]
		}
	}
	if winner == nil {
		return nil
	}
	w := *winner
	return &w
}
