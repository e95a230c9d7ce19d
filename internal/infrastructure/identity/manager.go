package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"
)

const (
	// Seed names in the durable store. Written once and reused across
	// restarts; regenerated only on absence or wrong-length corruption.
	DHTSeedKey = "dht-seed"
	RPCSeedKey = "rpc-seed"
)

// Manager holds the node's long-lived key material. The RPC key pair is the
// node's public identity on the network; the DHT key pair identifies it to
// the discovery layer.
type Manager struct {
	dhtPublic  ed25519.PublicKey
	dhtPrivate ed25519.PrivateKey
	rpcPublic  ed25519.PublicKey
	rpcPrivate ed25519.PrivateKey
}

// KeyPairFrom derives a deterministic ed25519 key pair from a 32-byte seed.
func KeyPairFrom(seed []byte) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	private := ed25519.NewKeyFromSeed(seed)
	return private.Public().(ed25519.PublicKey), private, nil
}

func Load(ctx context.Context, seeds domain.SeedStore, log logger.Logger) (*Manager, error) {
	dhtSeed, err := loadOrGenerateSeed(ctx, seeds, DHTSeedKey, log)
	if err != nil {
		return nil, err
	}
	rpcSeed, err := loadOrGenerateSeed(ctx, seeds, RPCSeedKey, log)
	if err != nil {
		return nil, err
	}

	m := &Manager{}
	if m.dhtPublic, m.dhtPrivate, err = KeyPairFrom(dhtSeed); err != nil {
		return nil, err
	}
	if m.rpcPublic, m.rpcPrivate, err = KeyPairFrom(rpcSeed); err != nil {
		return nil, err
	}
	return m, nil
}

func loadOrGenerateSeed(ctx context.Context, seeds domain.SeedStore, name string, log logger.Logger) ([]byte, error) {
	seed, err := seeds.GetSeed(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(seed) == ed25519.SeedSize {
		return seed, nil
	}
	if seed != nil {
		log.Warn("Stored seed has wrong length, regenerating", "seed", name, "length", len(seed))
	}

	seed = make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate seed %s: %w", name, err)
	}
	if err := seeds.PutSeed(ctx, name, seed); err != nil {
		return nil, err
	}

	log.Info("Generated new seed", "seed", name)
	return seed, nil
}

// PublicID is the hex-encoded RPC public key: the identity peers use to
// address this node.
func (m *Manager) PublicID() string {
	return hex.EncodeToString(m.rpcPublic)
}

// DHTPublicID is the hex-encoded discovery-layer identity.
func (m *Manager) DHTPublicID() string {
	return hex.EncodeToString(m.dhtPublic)
}

// Sign signs a message with the node's RPC private key.
func (m *Manager) Sign(message []byte) []byte {
	return ed25519.Sign(m.rpcPrivate, message)
}

// VerifyRecord checks a directory announcement: the signature must cover the
// announced address and verify against the announced public identity.
func VerifyRecord(record domain.PeerRecord) error {
	public, err := hex.DecodeString(record.PublicID)
	if err != nil || len(public) != ed25519.PublicKeySize {
		return fmt.Errorf("malformed public identity %q", record.PublicID)
	}
	if !ed25519.Verify(ed25519.PublicKey(public), []byte(record.Address), record.Signature) {
		return fmt.Errorf("announcement signature does not verify for %s", record.PublicID)
	}
	return nil
}
