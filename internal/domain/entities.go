package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Auction struct {
	ID          string        `json:"auctionId"`
	Item        string        `json:"item"`
	StartingBid float64       `json:"startingBid"`
	Bids        []Bid         `json:"bids"`
	Status      AuctionStatus `json:"status"`
	Winner      *Bid          `json:"winner,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Bid struct {
	AuctionID string    `json:"auctionId"`
	Bidder    string    `json:"bidder"`
	Amount    float64   `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

type AuctionStatus int

const (
	AuctionOpen AuctionStatus = iota
	AuctionClosed
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionOpen:
		return "open"
	case AuctionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s AuctionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *AuctionStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw {
	case "open":
		*s = AuctionOpen
	case "closed":
		*s = AuctionClosed
	default:
		return fmt.Errorf("unknown auction status %q", raw)
	}
	return nil
}

type Action string

const (
	ActionOpenAuction  Action = "open-auction"
	ActionPlaceBid     Action = "place-bid"
	ActionCloseAuction Action = "close-auction"
	ActionGetAuction   Action = "get-auction"
)

// Wire payloads carried by the RPC actions and replayed to peers.
type OpenAuctionPayload struct {
	AuctionID   string  `json:"auctionId"`
	Item        string  `json:"item"`
	StartingBid float64 `json:"startingBid"`
}

type PlaceBidPayload struct {
	AuctionID string  `json:"auctionId"`
	Bidder    string  `json:"bidder"`
	Amount    float64 `json:"amount"`
}

type CloseAuctionPayload struct {
	AuctionID string `json:"auctionId"`
}

type GetAuctionPayload struct {
	AuctionID string `json:"auctionId"`
}

// PeerRecord is a node's entry in the peer directory: where to reach it,
// signed with the private half of the identity being announced.
type PeerRecord struct {
	PublicID  string `json:"public_id"`
	Address   string `json:"address"`
	Signature []byte `json:"signature"`
}

// MutationEvent is one row of the append-only audit trail.
type MutationEvent struct {
	AuctionID string    `json:"auction_id"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor"`
	Amount    float64   `json:"amount"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}
