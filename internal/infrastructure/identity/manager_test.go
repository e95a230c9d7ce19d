package identity

import (
	"context"
	"crypto/ed25519"
	"testing"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSeedStore struct {
	seeds map[string][]byte
}

func newMemSeedStore() *memSeedStore {
	return &memSeedStore{seeds: make(map[string][]byte)}
}

func (s *memSeedStore) GetSeed(ctx context.Context, name string) ([]byte, error) {
	return s.seeds[name], nil
}

func (s *memSeedStore) PutSeed(ctx context.Context, name string, seed []byte) error {
	s.seeds[name] = seed
	return nil
}

func TestLoad_GeneratesAndPersistsSeeds(t *testing.T) {
	seeds := newMemSeedStore()
	ctx := context.Background()

	m, err := Load(ctx, seeds, logger.NewNop())
	require.NoError(t, err)
	assert.Len(t, seeds.seeds[DHTSeedKey], ed25519.SeedSize)
	assert.Len(t, seeds.seeds[RPCSeedKey], ed25519.SeedSize)
	assert.NotEqual(t, m.PublicID(), m.DHTPublicID())

	// The same store yields the same identity on restart.
	again, err := Load(ctx, seeds, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, m.PublicID(), again.PublicID())
	assert.Equal(t, m.DHTPublicID(), again.DHTPublicID())
}

func TestLoad_RegeneratesCorruptSeed(t *testing.T) {
	seeds := newMemSeedStore()
	ctx := context.Background()

	m, err := Load(ctx, seeds, logger.NewNop())
	require.NoError(t, err)
	originalID := m.PublicID()

	seeds.seeds[RPCSeedKey] = []byte("short")

	m, err = Load(ctx, seeds, logger.NewNop())
	require.NoError(t, err)
	assert.NotEqual(t, originalID, m.PublicID(), "wrong-length seed must be replaced")
	assert.Len(t, seeds.seeds[RPCSeedKey], ed25519.SeedSize)
}

func TestKeyPairFrom_Deterministic(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}

	pub1, priv1, err := KeyPairFrom(seed)
	require.NoError(t, err)
	pub2, _, err := KeyPairFrom(seed)
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)

	message := []byte("hello")
	assert.True(t, ed25519.Verify(pub1, message, ed25519.Sign(priv1, message)))

	_, _, err = KeyPairFrom([]byte("too short"))
	assert.Error(t, err)
}

func TestVerifyRecord(t *testing.T) {
	seeds := newMemSeedStore()
	m, err := Load(context.Background(), seeds, logger.NewNop())
	require.NoError(t, err)

	record := domain.PeerRecord{
		PublicID:  m.PublicID(),
		Address:   "127.0.0.1:8080",
		Signature: m.Sign([]byte("127.0.0.1:8080")),
	}
	assert.NoError(t, VerifyRecord(record))

	tampered := record
	tampered.Address = "10.0.0.1:9999"
	assert.Error(t, VerifyRecord(tampered), "signature must cover the announced address")

	bogus := record
	bogus.PublicID = "not-hex"
	assert.Error(t, VerifyRecord(bogus))
}
