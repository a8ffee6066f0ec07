package store

import (
	"context"
	"log"

	"gate-checkin-backend/internal/parse"
)

// MigrateStewardProviders converts packed "Name | Provider" steward records
// into a bare name plus provider reference once the provider exists. Records
// whose provider is still unknown are left packed. It returns how many
// records were converted.
func MigrateStewardProviders(ctx context.Context, s Store) (int, error) {
	records, err := s.ListPackedStewardRecords(ctx)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, rec := range records {
		name, providerName := parse.UnpackStewardName(rec.StaffName)
		if providerName == "" {
			continue
		}
		provider, err := s.FindProviderByName(ctx, providerName)
		if err != nil {
			return migrated, err
		}
		if provider == nil {
			continue
		}
		if err := s.ResolveStewardProvider(ctx, rec.ID, name, provider.ID); err != nil {
			return migrated, err
		}
		migrated++
	}
	if migrated > 0 {
		log.Printf("Resolved provider for %d packed steward records", migrated)
	}
	return migrated, nil
}
