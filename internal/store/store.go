package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrEmptyKey = errors.New("empty record key")
)

// RecordStore is a durable key/value map of JSON documents. A single Put is
// atomic; there are no multi-key transactions.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON decodes the record at key into dest. It returns ErrNotFound when the
// key is absent.
func GetJSON(ctx context.Context, s RecordStore, key string, dest any) error {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func PutJSON(ctx context.Context, s RecordStore, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, payload); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// LoadIndex reads an id list stored at key. A missing index is empty.
func LoadIndex(ctx context.Context, s RecordStore, key string) ([]string, error) {
	var ids []string
	err := GetJSON(ctx, s, key, &ids)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AppendIndex adds id to the index at key unless it is already present.
// Callers serialize index updates themselves.
func AppendIndex(ctx context.Context, s RecordStore, key string, id string) error {
	ids, err := LoadIndex(ctx, s, key)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return PutJSON(ctx, s, key, append(ids, id))
}

func RemoveFromIndex(ctx context.Context, s RecordStore, key string, id string) error {
	ids, err := LoadIndex(ctx, s, key)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	return PutJSON(ctx, s, key, kept)
}
