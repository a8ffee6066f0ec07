package parse

import (
	"strings"

	"gate-checkin-backend/internal/model"
)

// LicenceNumberLength is the digit count of a registry licence number.
const LicenceNumberLength = 16

// Scan is a normalized gate input.
type Scan struct {
	BadgeID string
	// Method is the capture method as stored: OCR collapses into QR.
	Method model.CheckInMethod
}

// NormalizeScan trims and upper-cases raw scanner or keyboard input and maps
// the capture method onto its stored form. Unknown methods are treated as QR.
func NormalizeScan(raw string, method model.CheckInMethod) Scan {
	return Scan{
		BadgeID: strings.ToUpper(strings.TrimSpace(raw)),
		Method:  StoredMethod(method),
	}
}

// StoredMethod returns the persisted value for a capture method.
func StoredMethod(method model.CheckInMethod) model.CheckInMethod {
	if method == model.MethodManualEntry {
		return model.MethodManualEntry
	}
	return model.MethodQRScan
}

// IsLicenceNumber reports whether s is exactly sixteen ASCII digits.
func IsLicenceNumber(s string) bool {
	if len(s) != LicenceNumberLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
