package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"auction-node/internal/domain"
	"auction-node/internal/services"
	"auction-node/internal/transport/ws"
	"auction-node/pkg/logger"
)

// staticDirectory resolves every identity to one fixed address, so the demo
// client can reuse the connection supervisor without a discovery service.
type staticDirectory struct {
	address string
}

func (d *staticDirectory) Announce(ctx context.Context, record domain.PeerRecord, ttl time.Duration) error {
	return nil
}

func (d *staticDirectory) Resolve(ctx context.Context, publicID string) (string, error) {
	return d.address, nil
}

func (d *staticDirectory) Peers(ctx context.Context) ([]string, error) {
	return []string{"node"}, nil
}

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "auction node address")
	auctionID := flag.String("auction", "auction1", "auction id to run the demo flow against")
	item := flag.String("item", "Pic#1", "item description")
	startingBid := flag.Float64("starting-bid", 75, "starting bid")
	flag.Parse()

	log := logger.New()

	directory := &staticDirectory{address: *addr}
	dialer := &ws.Dialer{Log: log} // client calls carry no origin
	supervisor := services.NewConnectionSupervisor(directory, dialer, services.DefaultRetryPolicy(), log)
	defer supervisor.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Info("Opening auction", "auction_id", *auctionID, "item", *item, "starting_bid", *startingBid)
	if _, err := supervisor.Call(ctx, "node", domain.ActionOpenAuction, domain.OpenAuctionPayload{
		AuctionID:   *auctionID,
		Item:        *item,
		StartingBid: *startingBid,
	}); err != nil {
		log.Error("open-auction failed", "error", err)
		os.Exit(1)
	}

	log.Info("Placing bid", "auction_id", *auctionID)
	if _, err := supervisor.Call(ctx, "node", domain.ActionPlaceBid, domain.PlaceBidPayload{
		AuctionID: *auctionID,
		Bidder:    "client2",
		Amount:    *startingBid + 0.5,
	}); err != nil {
		log.Error("place-bid failed", "error", err)
		os.Exit(1)
	}

	log.Info("Closing auction", "auction_id", *auctionID)
	result, err := supervisor.Call(ctx, "node", domain.ActionCloseAuction, domain.CloseAuctionPayload{
		AuctionID: *auctionID,
	})
	if err != nil {
		log.Error("close-auction failed", "error", err)
		os.Exit(1)
	}

	var auction domain.Auction
	if err := json.Unmarshal(result, &auction); err != nil {
		log.Error("undecodable close-auction result", "error", err)
		os.Exit(1)
	}

	pretty, _ := json.MarshalIndent(auction, "", "  ")
	fmt.Println(string(pretty))
}
