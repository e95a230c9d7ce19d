package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"auction-node/internal/domain"
	"auction-node/internal/infrastructure/identity"
	"auction-node/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const peerKeyPrefix = "auction_peer:"

// PeerDirectory is the discovery service: nodes announce signed records
// under their public identity with a TTL, so a node that stops announcing
// ages out of the peer set on its own.
type PeerDirectory struct {
	client *redis.Client
	log    logger.Logger
}

func NewPeerDirectory(client *redis.Client, log logger.Logger) *PeerDirectory {
	return &PeerDirectory{client: client, log: log}
}

func peerKey(publicID string) string {
	return fmt.Sprintf("%s%s", peerKeyPrefix, publicID)
}

func (d *PeerDirectory) Announce(ctx context.Context, record domain.PeerRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return d.client.Set(ctx, peerKey(record.PublicID), data, ttl).Err()
}

func (d *PeerDirectory) Resolve(ctx context.Context, publicID string) (string, error) {
	data, err := d.client.Get(ctx, peerKey(publicID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", domain.NewError(domain.KindPeerUnreachable, "peer %s is not announced", publicID)
		}
		return "", domain.WrapError(domain.KindPeerUnreachable, err, "resolve peer %s", publicID)
	}

	var record domain.PeerRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return "", domain.WrapError(domain.KindPeerUnreachable, err, "corrupt announcement for peer %s", publicID)
	}
	if record.PublicID != publicID {
		return "", domain.NewError(domain.KindPeerUnreachable, "announcement identity mismatch for peer %s", publicID)
	}
	if err := identity.VerifyRecord(record); err != nil {
		return "", domain.WrapError(domain.KindPeerUnreachable, err, "rejecting announcement for peer %s", publicID)
	}

	return record.Address, nil
}

func (d *PeerDirectory) Peers(ctx context.Context) ([]string, error) {
	var peers []string
	var cursor uint64

	for {
		keys, next, err := d.client.Scan(ctx, cursor, peerKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			peers = append(peers, strings.TrimPrefix(key, peerKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return peers, nil
}
