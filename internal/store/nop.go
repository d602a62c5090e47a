package store

import "github.com/amishk599/dealscan/internal/model"

// NopStore is a no-op cache used with --no-cache. Every lookup misses,
// so each record is sent to the model.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Get(key string) (*model.EnrichmentResult, error) { return nil, nil }
func (s *NopStore) Put(key string, res model.EnrichmentResult) error { return nil }
