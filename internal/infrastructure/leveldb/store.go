package leveldb

import (
	"context"
	"encoding/json"
	"fmt"

	"auction-node/internal/domain"

	"github.com/syndtr/goleveldb/leveldb"
)

// Store is the node's durable backing store: auction records and seed
// material in one embedded ordered key-value database. LevelDB serializes
// writes, so per-key write ordering matches call ordering.
type Store struct {
	db *leveldb.DB
}

func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func auctionKey(auctionID string) []byte {
	return []byte("auction:" + auctionID)
}

func seedKey(name string) []byte {
	return []byte("seed:" + name)
}

func (s *Store) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	data, err := s.db.Get(auctionKey(auctionID), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auction %s: %w", auctionID, err)
	}

	var auction domain.Auction
	if err := json.Unmarshal(data, &auction); err != nil {
		return nil, fmt.Errorf("decode auction %s: %w", auctionID, err)
	}
	return &auction, nil
}

func (s *Store) PutAuction(ctx context.Context, auction *domain.Auction) error {
	data, err := json.Marshal(auction)
	if err != nil {
		return fmt.Errorf("encode auction %s: %w", auction.ID, err)
	}
	if err := s.db.Put(auctionKey(auction.ID), data, nil); err != nil {
		return fmt.Errorf("put auction %s: %w", auction.ID, err)
	}
	return nil
}

func (s *Store) GetSeed(ctx context.Context, name string) ([]byte, error) {
	data, err := s.db.Get(seedKey(name), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get seed %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) PutSeed(ctx context.Context, name string, seed []byte) error {
	if err := s.db.Put(seedKey(name), seed, nil); err != nil {
		return fmt.Errorf("put seed %s: %w", name, err)
	}
	return nil
}
