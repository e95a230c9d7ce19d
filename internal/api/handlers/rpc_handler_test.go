package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"auction-node/internal/domain"
	"auction-node/internal/infrastructure/leveldb"
	"auction-node/internal/services"
	"auction-node/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedBroadcast struct {
	Action  domain.Action
	Payload interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	bcasts []recordedBroadcast
}

func (b *fakeBroadcaster) Broadcast(action domain.Action, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bcasts = append(b.bcasts, recordedBroadcast{Action: action, Payload: payload})
}

func (b *fakeBroadcaster) recorded() []recordedBroadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedBroadcast(nil), b.bcasts...)
}

type fakeAudit struct {
	mu     sync.Mutex
	events []*domain.MutationEvent
	err    error
}

func (a *fakeAudit) RecordMutation(ctx context.Context, event *domain.MutationEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, event)
	return nil
}

func (a *fakeAudit) History(ctx context.Context, auctionID string) ([]*domain.MutationEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*domain.MutationEvent
	for _, event := range a.events {
		if event.AuctionID == auctionID {
			out = append(out, event)
		}
	}
	return out, nil
}

func newTestHandler(t *testing.T) (*RPCHandler, *fakeBroadcaster, *fakeAudit) {
	t.Helper()

	store, err := leveldb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	broadcaster := &fakeBroadcaster{}
	audit := &fakeAudit{}
	engine := services.NewAuctionEngine(store, logger.NewNop())
	return NewRPCHandler(engine, broadcaster, audit, logger.NewNop()), broadcaster, audit
}

func dispatch(t *testing.T, h *RPCHandler, action domain.Action, origin, payload string) (interface{}, error) {
	t.Helper()
	return h.Dispatch(context.Background(), action, origin, json.RawMessage(payload))
}

func TestDispatch_EndToEndFlow(t *testing.T) {
	h, _, _ := newTestHandler(t)

	_, err := dispatch(t, h, domain.ActionOpenAuction, "",
		`{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	require.NoError(t, err)

	_, err = dispatch(t, h, domain.ActionPlaceBid, "",
		`{"auctionId":"a1","bidder":"c2","amount":75.5}`)
	require.NoError(t, err)

	result, err := dispatch(t, h, domain.ActionCloseAuction, "", `{"auctionId":"a1"}`)
	require.NoError(t, err)

	auction, ok := result.(*domain.Auction)
	require.True(t, ok)
	assert.Equal(t, "Pic#1", auction.Item)
	assert.Equal(t, 75.0, auction.StartingBid)
	require.Len(t, auction.Bids, 1)
	assert.Equal(t, "c2", auction.Bids[0].Bidder)
	assert.Equal(t, 75.5, auction.Bids[0].Amount)
	assert.Equal(t, domain.AuctionClosed, auction.Status)
	require.NotNil(t, auction.Winner)
	assert.Equal(t, "c2", auction.Winner.Bidder)
	assert.Equal(t, 75.5, auction.Winner.Amount)
}

func TestDispatch_MalformedRequests(t *testing.T) {
	h, broadcaster, _ := newTestHandler(t)

	tests := []struct {
		name    string
		action  domain.Action
		payload string
	}{
		{"empty payload", domain.ActionOpenAuction, ""},
		{"invalid json", domain.ActionOpenAuction, `{"auctionId":`},
		{"missing starting bid", domain.ActionOpenAuction, `{"auctionId":"a1","item":"x"}`},
		{"wrong-typed amount", domain.ActionPlaceBid, `{"auctionId":"a1","bidder":"b","amount":"12"}`},
		{"missing bidder", domain.ActionPlaceBid, `{"auctionId":"a1","amount":12}`},
		{"missing auction id", domain.ActionCloseAuction, `{}`},
		{"unknown action", domain.Action("burn-auction"), `{"auctionId":"a1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dispatch(t, h, tt.action, "", tt.payload)
			assert.True(t, domain.IsKind(err, domain.KindMalformedRequest), "got %v", err)
		})
	}

	// Validation happens before state is touched, so nothing was broadcast.
	assert.Empty(t, broadcaster.recorded())
}

func TestDispatch_EngineErrorKindsPropagate(t *testing.T) {
	h, broadcaster, _ := newTestHandler(t)

	_, err := dispatch(t, h, domain.ActionPlaceBid, "", `{"auctionId":"ghost","bidder":"b","amount":1}`)
	assert.True(t, domain.IsKind(err, domain.KindAuctionNotFound))

	_, err = dispatch(t, h, domain.ActionOpenAuction, "", `{"auctionId":"a1","item":"","startingBid":5}`)
	assert.True(t, domain.IsKind(err, domain.KindInvalidArgument))

	assert.Empty(t, broadcaster.recorded(), "failed mutations must not broadcast")
}

func TestDispatch_ClientMutationBroadcastsOnce(t *testing.T) {
	h, broadcaster, _ := newTestHandler(t)

	_, err := dispatch(t, h, domain.ActionOpenAuction, "",
		`{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	require.NoError(t, err)

	recorded := broadcaster.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, domain.ActionOpenAuction, recorded[0].Action)
	assert.Equal(t, domain.OpenAuctionPayload{AuctionID: "a1", Item: "Pic#1", StartingBid: 75},
		recorded[0].Payload)
}

func TestDispatch_ReplicatedMutationNotRebroadcast(t *testing.T) {
	h, broadcaster, _ := newTestHandler(t)

	_, err := dispatch(t, h, domain.ActionOpenAuction, "peer-node-identity",
		`{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	require.NoError(t, err)

	assert.Empty(t, broadcaster.recorded(), "replication traffic must not loop")

	// The replica is still persisted and readable.
	auction, err := h.GetAuction(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "Pic#1", auction.Item)
}

func TestDispatch_GetAuction(t *testing.T) {
	h, broadcaster, _ := newTestHandler(t)

	_, err := dispatch(t, h, domain.ActionOpenAuction, "",
		`{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	require.NoError(t, err)

	result, err := dispatch(t, h, domain.ActionGetAuction, "", `{"auctionId":"a1"}`)
	require.NoError(t, err)
	auction := result.(*domain.Auction)
	assert.Equal(t, domain.AuctionOpen, auction.Status)

	_, err = dispatch(t, h, domain.ActionGetAuction, "", `{"auctionId":"ghost"}`)
	assert.True(t, domain.IsKind(err, domain.KindAuctionNotFound))

	assert.Len(t, broadcaster.recorded(), 1, "reads must not broadcast")
}

func TestDispatch_AuditTrail(t *testing.T) {
	h, _, _ := newTestHandler(t)

	_, err := dispatch(t, h, domain.ActionOpenAuction, "",
		`{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	require.NoError(t, err)
	_, err = dispatch(t, h, domain.ActionPlaceBid, "origin-node",
		`{"auctionId":"a1","bidder":"c2","amount":80}`)
	require.NoError(t, err)

	events, err := h.History(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ActionOpenAuction, events[0].Action)
	assert.Equal(t, domain.ActionPlaceBid, events[1].Action)
	assert.Equal(t, "c2", events[1].Actor)
	assert.Equal(t, "origin-node", events[1].Origin)
}

func TestDispatch_AuditFailureDoesNotFailMutation(t *testing.T) {
	h, _, audit := newTestHandler(t)
	audit.err = errors.New("mysql is down")

	result, err := dispatch(t, h, domain.ActionOpenAuction, "",
		`{"auctionId":"a1","item":"Pic#1","startingBid":75}`)
	require.NoError(t, err, "audit trail is best-effort")
	assert.NotNil(t, result)
}
