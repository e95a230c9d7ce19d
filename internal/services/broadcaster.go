package services

import (
	"context"
	"sync"
	"sync/atomic"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"
)

// DeliveryResult is the outcome of one peer delivery within a broadcast.
type DeliveryResult struct {
	PeerID string
	Err    error
}

// PeerBroadcaster replays a local mutation to every known peer. Deliveries
// are independent units of work: one peer failing, or being unreachable,
// never blocks or aborts the others, and nothing is reported back to the
// caller that triggered the broadcast.
type PeerBroadcaster struct {
	directory domain.PeerDirectory
	caller    domain.PeerCaller
	selfID    string
	log       logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	delivered uint64
	failed    uint64
}

func NewPeerBroadcaster(directory domain.PeerDirectory, caller domain.PeerCaller,
	selfID string, log logger.Logger) *PeerBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	return &PeerBroadcaster{
		directory: directory,
		caller:    caller,
		selfID:    selfID,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Broadcast fans the mutation out and returns immediately. Deliveries run on
// the broadcaster's own context, not the caller's: the RPC response that
// triggered the broadcast must not be held up, and must not cancel it.
func (b *PeerBroadcaster) Broadcast(action domain.Action, payload interface{}) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.fanOut(action, payload)
	}()
}

func (b *PeerBroadcaster) fanOut(action domain.Action, payload interface{}) {
	// Snapshot the peer set once per broadcast; directory churn during the
	// fan-out does not affect this round.
	peers, err := b.directory.Peers(b.ctx)
	if err != nil {
		b.log.Error("Failed to snapshot peers, skipping broadcast", "action", action, "error", err)
		return
	}

	targets := peers[:0]
	for _, peerID := range peers {
		if peerID != b.selfID {
			targets = append(targets, peerID)
		}
	}
	if len(targets) == 0 {
		return
	}

	results := make([]DeliveryResult, len(targets))
	var wg sync.WaitGroup
	for i, peerID := range targets {
		wg.Add(1)
		go func(i int, peerID string) {
			defer wg.Done()
			_, err := b.caller.Call(b.ctx, peerID, action, payload)
			results[i] = DeliveryResult{PeerID: peerID, Err: err}
		}(i, peerID)
	}
	wg.Wait()

	failures := 0
	for _, result := range results {
		if result.Err != nil {
			failures++
			atomic.AddUint64(&b.failed, 1)
			b.log.Warn("Peer delivery failed", "peer_id", result.PeerID, "action", action, "error", result.Err)
		} else {
			atomic.AddUint64(&b.delivered, 1)
		}
	}

	b.log.Info("Broadcast completed", "action", action, "peers", len(targets), "failures", failures)
}

// Stats returns the running delivered/failed counters.
func (b *PeerBroadcaster) Stats() (delivered, failed uint64) {
	return atomic.LoadUint64(&b.delivered), atomic.LoadUint64(&b.failed)
}

// Shutdown stops new deliveries and waits for in-flight ones to drain,
// bounded by ctx.
func (b *PeerBroadcaster) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	b.cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
