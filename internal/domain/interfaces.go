package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Store interfaces
type AuctionStore interface {
	// GetAuction returns (nil, nil) when no record exists for the id.
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	PutAuction(ctx context.Context, auction *Auction) error
}

type SeedStore interface {
	// GetSeed returns (nil, nil) when the named seed has never been written.
	GetSeed(ctx context.Context, name string) ([]byte, error)
	PutSeed(ctx context.Context, name string, seed []byte) error
}

// Discovery interfaces
type PeerDirectory interface {
	Announce(ctx context.Context, record PeerRecord, ttl time.Duration) error
	// Resolve maps a public identity to its current network address,
	// verifying the announcement signature.
	Resolve(ctx context.Context, publicID string) (string, error)
	// Peers returns a snapshot of currently announced identities.
	Peers(ctx context.Context) ([]string, error)
}

// Transport interfaces
type Transport interface {
	// Send issues one request over the session and waits for its response.
	// A dead session surfaces as a ChannelClosed error; application errors
	// returned by the remote side keep their original kind.
	Send(ctx context.Context, action Action, payload interface{}) (json.RawMessage, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, address string) (Transport, error)
}

// PeerCaller is the broadcaster's view of the connection supervisor.
type PeerCaller interface {
	Call(ctx context.Context, peerID string, action Action, payload interface{}) (json.RawMessage, error)
}

// Broadcast interface
type Broadcaster interface {
	// Broadcast fans the mutation out to all known peers. Fire-and-forget:
	// it returns before any delivery completes.
	Broadcast(action Action, payload interface{})
}

// Audit interface
type AuditRepository interface {
	RecordMutation(ctx context.Context, event *MutationEvent) error
	History(ctx context.Context, auctionID string) ([]*MutationEvent, error)
}
