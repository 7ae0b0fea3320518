package settings

import (
	"context"

	"linepay-be/internal/linepay"
	"linepay-be/internal/logger"

	"go.uber.org/zap"
)

// Provider resolves channel settings for a store: the store's own row,
// then the default row, then the deployment defaults from config.
// It is read-only and safe for concurrent use.
type Provider struct {
	repo     Repository
	defaults Settings
	cache    SnapshotCache
}

type ProviderOption func(*Provider)

func WithRepository(repo Repository) ProviderOption {
	return func(p *Provider) { p.repo = repo }
}

func WithSnapshotCache(cache SnapshotCache) ProviderOption {
	return func(p *Provider) { p.cache = cache }
}

func NewProvider(defaults Settings, opts ...ProviderOption) *Provider {
	p := &Provider{defaults: defaults}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Load(ctx context.Context, storeID int64) (Settings, error) {
	if p.repo == nil {
		return p.defaults, nil
	}

	resolved := Settings{}
	scopes := []int64{storeID}
	if storeID != DefaultStoreID {
		scopes = append(scopes, DefaultStoreID)
	}

	for _, scope := range scopes {
		s, found, err := p.repo.Load(ctx, scope)
		if err != nil {
			return Settings{}, err
		}
		if found {
			resolved = resolved.merge(s)
		}
	}

	return resolved.merge(p.defaults), nil
}

// Resolve returns the credentials and merchant display for one store from
// a single settings snapshot. The snapshot comes from the cache when
// present; cache failures are logged and bypassed.
func (p *Provider) Resolve(ctx context.Context, storeID int64) (linepay.Credentials, linepay.MerchantDisplay, error) {
	s, err := p.snapshot(ctx, storeID)
	if err != nil {
		return linepay.Credentials{}, linepay.MerchantDisplay{}, err
	}
	if s.ChannelID == "" || s.ChannelSecret == "" {
		return linepay.Credentials{}, linepay.MerchantDisplay{}, linepay.ErrMisconfiguredCredentials
	}

	creds := linepay.Credentials{ChannelID: s.ChannelID, ChannelSecret: s.ChannelSecret}
	display := linepay.MerchantDisplay{PictureURL: s.PictureURL, Locale: s.Locale}
	return creds, display, nil
}

func (p *Provider) snapshot(ctx context.Context, storeID int64) (Settings, error) {
	log := logger.FromCtx(ctx).With(zap.Int64("store_id", storeID))

	if p.cache != nil {
		s, ok, err := p.cache.Get(ctx, storeID)
		if err != nil {
			log.Warn("settings cache unavailable", zap.Error(err))
		}
		if ok {
			return s, nil
		}
	}

	s, err := p.Load(ctx, storeID)
	if err != nil {
		return Settings{}, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, storeID, s); err != nil {
			log.Warn("failed to cache settings", zap.Error(err))
		}
	}

	return s, nil
}
