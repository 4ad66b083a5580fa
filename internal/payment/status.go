package payment

import "strings"

// Status is the reconciled outcome shown to the buyer. Anything the provider
// reports that is not a definitive success or failure stays UNKNOWN.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
	StatusUnknown Status = "UNKNOWN"
)

// MapStatus folds a provider-reported status string into a Status.
// Comparison is case-insensitive.
func MapStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS":
		return StatusSuccess
	case "FAIL", "FAILED", "ERROR", "CLOSED":
		return StatusFail
	default:
		return StatusUnknown
	}
}
