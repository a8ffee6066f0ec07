package checkin

import (
	"log"

	"gate-checkin-backend/internal/model"
)

// pickRosterEntry resolves the roster rows found for a badge at one event.
// No row means the badge is unlisted. Several rows (the same badge uploaded by
// more than one provider for the event) resolve to the lowest id.
func pickRosterEntry(eventID, badgeID string, entries []model.StaffDetail) *model.StaffDetail {
	switch len(entries) {
	case 0:
		return nil
	case 1:
		return &entries[0]
	default:
		log.Printf("Warning: badge %s has %d roster entries at event %s; using staff detail %d",
			badgeID, len(entries), eventID, entries[0].ID)
		return &entries[0]
	}
}

// providerName returns the provider of a roster entry, or the unknown placeholder.
func providerName(entry *model.StaffDetail) string {
	if entry == nil || entry.Assignment.Provider.Name == "" {
		return UnknownProvider
	}
	return entry.Assignment.Provider.Name
}
