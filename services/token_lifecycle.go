package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
	"github.com/monthwrap/integrations/internal/expiry"
	"github.com/monthwrap/integrations/internal/metrics"
	"github.com/monthwrap/integrations/internal/providers"
)

// RefreshSkew is how long before the stored expiry a token is already
// treated as expired, absorbing clock drift and request latency.
const RefreshSkew = 10 * time.Second

// TokenLifecycleService owns the stored OAuth records: exchanging
// authorization codes, refreshing before use and disconnecting. The
// persistent store is the single source of truth; every transition
// reads before it writes.
type TokenLifecycleService struct {
	store    domain.IntegrationRepository
	adapters map[domain.Provider]providers.Adapter
	skew     time.Duration
	group    singleflight.Group
	now      func() time.Time
}

// NewTokenLifecycleService creates the service. Adapters are keyed by
// provider name; a request for a provider without an adapter fails
// with a configuration error.
func NewTokenLifecycleService(store domain.IntegrationRepository, adapters map[domain.Provider]providers.Adapter) *TokenLifecycleService {
	return &TokenLifecycleService{
		store:    store,
		adapters: adapters,
		skew:     RefreshSkew,
		now:      time.Now,
	}
}

func (s *TokenLifecycleService) adapter(provider domain.Provider) (providers.Adapter, error) {
	a, ok := s.adapters[provider]
	if !ok {
		return nil, ierrors.NewConfiguration(provider.String(), "no adapter configured")
	}
	return a, nil
}

// ExchangeAuthorizationCode trades a one-time code for tokens and
// upserts the record. Returns true when no record existed before.
func (s *TokenLifecycleService) ExchangeAuthorizationCode(ctx context.Context, userID string, provider domain.Provider, code, redirectURI string) (bool, error) {
	adapter, err := s.adapter(provider)
	if err != nil {
		return false, err
	}

	tok, err := adapter.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		metrics.CodeExchangesTotal.WithLabelValues(provider.String(), "error").Inc()
		return false, err
	}

	existing, err := s.store.Get(ctx, userID, provider)
	if err != nil {
		return false, err
	}

	record := s.recordFromToken(userID, provider, tok)
	if err := s.store.Upsert(ctx, record); err != nil {
		return false, err
	}

	metrics.CodeExchangesTotal.WithLabelValues(provider.String(), "success").Inc()
	log.Info().
		Str("user_id", userID).
		Str("provider", provider.String()).
		Bool("created", existing == nil).
		Msg("Authorization code exchanged")

	return existing == nil, nil
}

// EnsureAccessToken returns an access token valid for at least the
// refresh skew alongside the stored record, refreshing through the
// provider when the stored token is expired or near expiry.
func (s *TokenLifecycleService) EnsureAccessToken(ctx context.Context, userID string, provider domain.Provider) (string, *domain.IntegrationRecord, error) {
	record, err := s.connectedRecord(ctx, userID, provider)
	if err != nil {
		return "", nil, err
	}

	if record.AccessToken != "" && !expiry.Expired(record.ExpiresAt, s.skew, s.now()) {
		return record.AccessToken, record, nil
	}

	refreshed, err := s.refresh(ctx, userID, provider, record, false)
	if err != nil {
		return "", nil, err
	}
	return refreshed.AccessToken, refreshed, nil
}

// ForceRefresh refreshes regardless of the stored expiry and returns
// the updated record.
func (s *TokenLifecycleService) ForceRefresh(ctx context.Context, userID string, provider domain.Provider) (*domain.IntegrationRecord, error) {
	record, err := s.connectedRecord(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, userID, provider, record, true)
}

// refresh collapses concurrent refreshes for the same (user, provider)
// into one upstream call. This only saves refresh budget; correctness
// under a double refresh comes from the merge upsert. When force is
// set the fresh-token short circuit is skipped, so the provider is
// always called.
func (s *TokenLifecycleService) refresh(ctx context.Context, userID string, provider domain.Provider, stale *domain.IntegrationRecord, force bool) (*domain.IntegrationRecord, error) {
	key := userID + "/" + provider.String()
	v, err, _ := s.group.Do(key, func() (any, error) {
		// The flight's result is shared by every joiner, so it must
		// not die with the first caller's context. The adapter's HTTP
		// client timeout still bounds the upstream call.
		ctx := context.WithoutCancel(ctx)

		// Re-read inside the flight: a concurrent caller may have
		// already refreshed and upserted.
		current, err := s.store.Get(ctx, userID, provider)
		if err != nil {
			return nil, err
		}
		if current == nil {
			current = stale
		}
		if !force && current.AccessToken != "" && !expiry.Expired(current.ExpiresAt, s.skew, s.now()) {
			return current, nil
		}

		if current.RefreshToken == "" {
			return nil, ierrors.NewReauthorizationRequired(provider.String())
		}

		adapter, err := s.adapter(provider)
		if err != nil {
			return nil, err
		}

		tok, err := adapter.Refresh(ctx, current.RefreshToken)
		if err != nil {
			metrics.TokenRefreshesTotal.WithLabelValues(provider.String(), "error").Inc()
			return nil, err
		}
		if tok.AccessToken == "" {
			metrics.TokenRefreshesTotal.WithLabelValues(provider.String(), "error").Inc()
			return nil, ierrors.NewRefreshFailed(provider.String())
		}

		record := s.recordFromToken(userID, provider, tok)
		if err := s.store.Upsert(ctx, record); err != nil {
			return nil, err
		}

		updated, err := s.store.Get(ctx, userID, provider)
		if err != nil {
			return nil, err
		}

		metrics.TokenRefreshesTotal.WithLabelValues(provider.String(), "success").Inc()
		log.Debug().
			Str("user_id", userID).
			Str("provider", provider.String()).
			Msg("Access token refreshed")

		return updated, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.IntegrationRecord), nil
}

// Disconnect removes the stored record. Removing an absent record is
// not an error; the bool reports whether anything was deleted.
func (s *TokenLifecycleService) Disconnect(ctx context.Context, userID string, provider domain.Provider) (bool, error) {
	removed, err := s.store.Delete(ctx, userID, provider)
	if err != nil {
		return false, err
	}
	metrics.DisconnectsTotal.WithLabelValues(provider.String()).Inc()
	log.Info().
		Str("user_id", userID).
		Str("provider", provider.String()).
		Bool("removed", removed).
		Msg("Integration disconnected")
	return removed, nil
}

// ConnectionStatus is the token-free view of a stored record.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Provider  string `json:"provider"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

// Status reports whether a usable record exists, without touching the
// provider and without exposing token material.
func (s *TokenLifecycleService) Status(ctx context.Context, userID string, provider domain.Provider) (*ConnectionStatus, error) {
	record, err := s.store.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	status := &ConnectionStatus{Provider: provider.String()}
	if record != nil && record.Connected() {
		status.Connected = true
		status.ExpiresAt = record.ExpiresAt
		status.Scope = record.Scope
	}
	return status, nil
}

func (s *TokenLifecycleService) connectedRecord(ctx context.Context, userID string, provider domain.Provider) (*domain.IntegrationRecord, error) {
	record, err := s.store.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	if record == nil || !record.Connected() {
		return nil, ierrors.NewNotConnected(provider.String())
	}
	return record, nil
}

// recordFromToken maps a provider token response onto a storable
// record. Absolute expiry wins over relative when both are present.
func (s *TokenLifecycleService) recordFromToken(userID string, provider domain.Provider, tok *domain.RawTokenResponse) *domain.IntegrationRecord {
	expiresAt := ""
	switch {
	case tok.ExpiresAt > 0:
		expiresAt = expiry.Format(tok.ExpiresAt)
	case tok.ExpiresIn > 0:
		expiresAt = expiry.Format(s.now().Unix() + tok.ExpiresIn)
	}

	now := s.now().UTC()
	return &domain.IntegrationRecord{
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
		Scope:        tok.Scope,
		Meta:         tok.Extra,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
