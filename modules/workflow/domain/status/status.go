package status

import "strings"

// Status values shared by every workflow-governed entity. DELETED is a real
// stored value but never appears in a declared step graph: soft-delete and
// restore run outside the engine.
const (
	Draft     = "DRAFT"
	Submitted = "SUBMITTED"
	Approved  = "APPROVED"
	Rejected  = "REJECTED"
	Deleted   = "DELETED"
)

var all = []string{Draft, Submitted, Approved, Rejected, Deleted}

func IsValid(s string) bool {
	for _, v := range all {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Is compares two status values case-insensitively.
func Is(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Normalize maps a status to its canonical upper-case spelling.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
