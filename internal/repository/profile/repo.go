// Package profile stores trained recommendation factors in Redis.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/db"
	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/recommend"
)

// store is the consumer interface for profile data (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
}

// Repo reads user profiles from "<prefix>profile:<user>" (a JSON array)
// and item factors from the "<prefix>item_factors" hash (id -> vector).
type Repo struct {
	store  store
	prefix string
}

// New creates a profile repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

func (r *Repo) profileKey(userID string) string { return r.prefix + "profile:" + userID }
func (r *Repo) itemsKey() string                { return r.prefix + "item_factors" }

// Profile returns the user's latent factors or domain.ErrProfileNotFound.
func (r *Repo) Profile(ctx context.Context, userID string) (recommend.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return recommend.Profile{}, domain.ErrProfileNotFound
	}

	raw, err := r.store.Get(ctx, r.profileKey(userID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return recommend.Profile{}, fmt.Errorf("user %s: %w", userID, domain.ErrProfileNotFound)
		}
		return recommend.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}

	var factors []float32
	if err := json.Unmarshal(raw, &factors); err != nil {
		return recommend.Profile{}, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	p, err := recommend.NewProfile(userID, factors)
	if err != nil {
		return recommend.Profile{}, fmt.Errorf("profile %s: %w", userID, err)
	}
	return p, nil
}

// SaveProfile writes the user's factors.
func (r *Repo) SaveProfile(ctx context.Context, p *recommend.Profile) error {
	data, err := json.Marshal(p.Factors())
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := r.store.Set(ctx, r.profileKey(p.UserID()), data); err != nil {
		return fmt.Errorf("set profile %s: %w", p.UserID(), err)
	}
	return nil
}

// ItemFactors returns every stored item vector. Undecodable entries are skipped.
func (r *Repo) ItemFactors(ctx context.Context) (map[string][]float32, error) {
	m, err := r.store.HGetAll(ctx, r.itemsKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return map[string][]float32{}, nil
		}
		return nil, fmt.Errorf("get item factors: %w", err)
	}

	out := make(map[string][]float32, len(m))
	for id, raw := range m {
		v, err := product.ParseVector(raw)
		if err != nil || len(v) == 0 {
			continue
		}
		out[id] = v
	}
	return out, nil
}

// SaveItemFactors merges item vectors into the factors hash.
func (r *Repo) SaveItemFactors(ctx context.Context, items map[string][]float32) error {
	if len(items) == 0 {
		return nil
	}
	fields := make(map[string]string, len(items))
	for id, v := range items {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal item %s: %w", id, err)
		}
		fields[id] = string(data)
	}
	if err := r.store.HSet(ctx, r.itemsKey(), fields); err != nil {
		return fmt.Errorf("set item factors: %w", err)
	}
	return nil
}
