package parse

import "strings"

// StewardSeparator joins a steward's name and an unresolved provider name.
const StewardSeparator = " | "

// PackStewardName formats the display name stored for a steward whose
// provider could not be resolved to a provider row.
func PackStewardName(name, provider string) string {
	name = strings.TrimSpace(name)
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return name
	}
	return name + StewardSeparator + provider
}

// UnpackStewardName splits a packed steward name. Names without the
// separator are returned whole with an empty provider.
func UnpackStewardName(packed string) (name, provider string) {
	i := strings.Index(packed, strings.TrimSpace(StewardSeparator))
	if i < 0 {
		return strings.TrimSpace(packed), ""
	}
	return strings.TrimSpace(packed[:i]), strings.TrimSpace(packed[i+1:])
}
