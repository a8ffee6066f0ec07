package checkin

import (
	"gate-checkin-backend/internal/model"
	"gate-checkin-backend/internal/parse"
)

// StewardRole is reported for records created through the steward path.
const StewardRole = "Steward"

// Identity returns the display name, provider and role of a record. Loaded
// associations win; steward records fall back to the packed "Name | Provider"
// form written when the provider was not on file.
func Identity(rec *model.CheckInRecord) (name, provider, role string) {
	if d := rec.StaffDetail; d != nil {
		provider = d.Assignment.Provider.Name
		if provider == "" {
			provider = UnknownProvider
		}
		return d.Name, provider, d.Role
	}

	name = rec.StaffName
	if rec.BadgeID == model.StewardBadge {
		name, provider = parse.UnpackStewardName(rec.StaffName)
		role = StewardRole
	}
	if rec.Provider != nil && rec.Provider.Name != "" {
		provider = rec.Provider.Name
	}
	if name == "" {
		name = UnknownStaff
	}
	if provider == "" {
		provider = UnknownProvider
	}
	return name, provider, role
}

// DisplayName formats a record for listings as "Name | Provider", or just the
// name when the provider is unknown.
func DisplayName(rec *model.CheckInRecord) string {
	name, provider, _ := Identity(rec)
	if provider == UnknownProvider {
		return name
	}
	return parse.PackStewardName(name, provider)
}
