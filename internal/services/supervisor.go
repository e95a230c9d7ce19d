package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"
)

type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Factor       float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		Factor:       2,
	}
}

// ConnectionSupervisor owns the outbound sessions to peers. A channel-closed
// failure tears the session down; the next attempt re-resolves the peer's
// address and dials a fresh session with the same identity. Every call is
// wrapped in one bounded exponential-backoff retry loop.
type ConnectionSupervisor struct {
	directory domain.PeerDirectory
	dialer    domain.Dialer
	policy    RetryPolicy
	log       logger.Logger

	mu    sync.Mutex
	conns map[string]domain.Transport
}

func NewConnectionSupervisor(directory domain.PeerDirectory, dialer domain.Dialer,
	policy RetryPolicy, log logger.Logger) *ConnectionSupervisor {
	return &ConnectionSupervisor{
		directory: directory,
		dialer:    dialer,
		policy:    policy,
		log:       log,
		conns:     make(map[string]domain.Transport),
	}
}

func (s *ConnectionSupervisor) Call(ctx context.Context, peerID string, action domain.Action,
	payload interface{}) (json.RawMessage, error) {

	var lastErr error
	delay := s.policy.InitialDelay

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay = time.Duration(float64(delay) * s.policy.Factor)
			s.log.Debug("Retrying call", "peer_id", peerID, "action", action, "attempt", attempt)
		}

		transport, err := s.session(ctx, peerID)
		if err != nil {
			lastErr = err
			continue
		}

		result, err := transport.Send(ctx, action, payload)
		if err == nil {
			return result, nil
		}

		if domain.IsKind(err, domain.KindChannelClosed) {
			s.log.Warn("Channel closed, dropping session", "peer_id", peerID, "action", action, "attempt", attempt)
			s.drop(peerID, transport)
			lastErr = err
			continue
		}

		// Application errors from the remote side are definitive.
		return nil, err
	}

	return nil, domain.WrapError(domain.KindRetryExhausted, lastErr,
		"calling %s on peer %s failed after %d attempts", action, peerID, s.policy.MaxAttempts)
}

// session returns the live transport for a peer, dialing one if needed.
func (s *ConnectionSupervisor) session(ctx context.Context, peerID string) (domain.Transport, error) {
	s.mu.Lock()
	if transport, exists := s.conns[peerID]; exists {
		s.mu.Unlock()
		return transport, nil
	}
	s.mu.Unlock()

	address, err := s.directory.Resolve(ctx, peerID)
	if err != nil {
		return nil, err
	}

	transport, err := s.dialer.Dial(ctx, address)
	if err != nil {
		return nil, domain.WrapError(domain.KindChannelClosed, err, "dial peer %s at %s", peerID, address)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, exists := s.conns[peerID]; exists {
		// Lost the race against a concurrent dial; keep the first one.
		transport.Close()
		return existing, nil
	}
	s.conns[peerID] = transport
	return transport, nil
}

// drop removes a session, but only if it is still the registered one, so a
// concurrent caller's replacement session is never torn down by mistake.
func (s *ConnectionSupervisor) drop(peerID string, transport domain.Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, exists := s.conns[peerID]; exists && current == transport {
		delete(s.conns, peerID)
	}
	transport.Close()
}

func (s *ConnectionSupervisor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for peerID, transport := range s.conns {
		if err := transport.Close(); err != nil {
			s.log.Error("Failed to close peer session", "peer_id", peerID, "error", err)
		}
		delete(s.conns, peerID)
	}
	return nil
}
