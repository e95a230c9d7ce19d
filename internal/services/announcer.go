package services

import (
	"context"
	"fmt"
	"time"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Signer is the identity material the announcer publishes for this node.
type Signer interface {
	PublicID() string
	Sign(message []byte) []byte
}

// PresenceAnnouncer keeps this node's signed directory record alive. The
// record carries a TTL longer than the announce interval, so a node that
// dies simply ages out of every peer's view.
type PresenceAnnouncer struct {
	cron      *cron.Cron
	directory domain.PeerDirectory
	signer    Signer
	address   string
	interval  time.Duration
	ttl       time.Duration
	log       logger.Logger
}

func NewPresenceAnnouncer(directory domain.PeerDirectory, signer Signer, address string,
	interval, ttl time.Duration, log logger.Logger) *PresenceAnnouncer {
	return &PresenceAnnouncer{
		cron:      cron.New(cron.WithSeconds()),
		directory: directory,
		signer:    signer,
		address:   address,
		interval:  interval,
		ttl:       ttl,
		log:       log,
	}
}

func (a *PresenceAnnouncer) Start(ctx context.Context) error {
	a.log.Info("Starting presence announcer", "address", a.address, "interval", a.interval)

	// Announce once up front so the node is discoverable before the first tick.
	if err := a.announce(ctx); err != nil {
		return err
	}

	_, err := a.cron.AddFunc(fmt.Sprintf("@every %s", a.interval), func() {
		if err := a.announce(ctx); err != nil {
			a.log.Error("Failed to announce presence", "error", err)
		}
	})
	if err != nil {
		return err
	}

	a.cron.Start()
	return nil
}

func (a *PresenceAnnouncer) Stop() error {
	a.log.Info("Stopping presence announcer")
	a.cron.Stop()
	return nil
}

func (a *PresenceAnnouncer) announce(ctx context.Context) error {
	record := domain.PeerRecord{
		PublicID:  a.signer.PublicID(),
		Address:   a.address,
		Signature: a.signer.Sign([]byte(a.address)),
	}
	return a.directory.Announce(ctx, record, a.ttl)
}
