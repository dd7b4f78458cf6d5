// Package validation holds the pure field validators for the core. Each
// validator returns a Result carrying zero or more problems; results combine
// by concatenation. No validator touches storage or any other state.
package validation

import (
	"fmt"
	"strings"

	"github.com/pairpoints/pairpoints-backend/internal/models"
	"github.com/pairpoints/pairpoints-backend/pkg/apperrors"
)

const (
	// MinPoints and MaxPoints bound the magnitude of a single transaction.
	MinPoints = 1
	MaxPoints = 10

	// MaxMessageLength bounds the optional transaction message.
	MaxMessageLength = 200

	// MatchingCodeLength is the fixed length of a matching code.
	MatchingCodeLength = 6
)

// Result is the outcome of one or more validators.
type Result struct {
	Problems []string
}

// OK reports whether no problems were found.
func (r Result) OK() bool {
	return len(r.Problems) == 0
}

// Err returns nil for a clean result, or a single ValidationError listing
// every problem found.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return apperrors.Validation(strings.Join(r.Problems, "; "))
}

func ok() Result {
	return Result{}
}

func fail(format string, args ...interface{}) Result {
	return Result{Problems: []string{fmt.Sprintf(format, args...)}}
}

// Merge concatenates the problems of several results.
func Merge(results ...Result) Result {
	var merged Result
	for _, r := range results {
		merged.Problems = append(merged.Problems, r.Problems...)
	}
	return merged
}

// Points checks that the signed point value has a magnitude within bounds
// and a sign consistent with the transaction type.
func Points(points int, txType models.TransactionType) Result {
	magnitude := points
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude < MinPoints || magnitude > MaxPoints {
		return fail("points magnitude must be between %d and %d, got %d", MinPoints, MaxPoints, magnitude)
	}
	switch txType {
	case models.TransactionTypeGive:
		if points <= 0 {
			return fail("GIVE transactions require positive points, got %d", points)
		}
	case models.TransactionTypeDeduct:
		if points >= 0 {
			return fail("DEDUCT transactions require negative points, got %d", points)
		}
	default:
		return fail("unknown transaction type %q", txType)
	}
	return ok()
}

// Message checks the optional transaction message length.
func Message(message string) Result {
	if len(message) > MaxMessageLength {
		return fail("message exceeds %d characters (got %d)", MaxMessageLength, len(message))
	}
	return ok()
}

// MatchingCode checks that a code is exactly MatchingCodeLength uppercase
// alphanumeric characters.
func MatchingCode(code string) Result {
	if len(code) != MatchingCodeLength {
		return fail("matching code must be exactly %d characters", MatchingCodeLength)
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return fail("matching code must contain only A-Z and 0-9")
		}
	}
	return ok()
}

// UserID checks the shape of an externally supplied user id.
func UserID(id string) Result {
	if strings.TrimSpace(id) == "" {
		return fail("user id must not be empty")
	}
	return ok()
}

// DistinctUsers rejects operations where both parties are the same user.
func DistinctUsers(a, b string) Result {
	if a == b {
		return fail("both parties refer to the same user %q", a)
	}
	return ok()
}
