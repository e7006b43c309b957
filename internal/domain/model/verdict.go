package model

// Outcome enumerates every way a verification attempt can conclude. Exactly
// one outcome is produced per attempt and recorded in the audit log.
type Outcome string

const (
	OutcomeFirstUse           Outcome = "first_use"
	OutcomeStillValid         Outcome = "still_valid"
	OutcomeUnknown            Outcome = "unknown"
	OutcomeOwnedByOther       Outcome = "owned_by_other"
	OutcomeExpired            Outcome = "expired"
	OutcomePermanentlyExpired Outcome = "permanently_expired"
	OutcomeInternalError      Outcome = "internal_error"
)

// Accepted reports whether the outcome grants access.
func (o Outcome) Accepted() bool {
	return o == OutcomeFirstUse || o == OutcomeStillValid
}

// Detail is the human-readable phrasing written to the audit log.
func (o Outcome) Detail() string {
	switch o {
	case OutcomeFirstUse:
		return "valid (first use)"
	case OutcomeStillValid:
		return "valid (already owned)"
	case OutcomeUnknown:
		return "unknown code"
	case OutcomeOwnedByOther:
		return "owned by another user"
	case OutcomeExpired:
		return "expired"
	case OutcomePermanentlyExpired:
		return "permanently expired"
	default:
		return "internal error"
	}
}

// Verdict is the engine's decision for one verification call. Entry is set
// when a ledger entry exists or was created by the call.
type Verdict struct {
	Outcome Outcome
	Entry   *LedgerEntry
}
