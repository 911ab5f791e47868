package domain

import "context"

// IntegrationRepository is the keyed record store addressed by
// (user_id, provider). Upsert has merge semantics: the stored row is combined
// with the incoming one via MergeRecords, so provider-omitted fields survive
// partial updates.
type IntegrationRepository interface {
	// Get returns the stored record, or (nil, nil) when absent.
	Get(ctx context.Context, userID string, provider Provider) (*IntegrationRecord, error)

	// Upsert merges record into the row keyed by (record.UserID,
	// record.Provider), creating it when missing.
	Upsert(ctx context.Context, record *IntegrationRecord) error

	// Delete removes the row. Deleting a missing row is not an error and
	// returns false.
	Delete(ctx context.Context, userID string, provider Provider) (bool, error)
}
