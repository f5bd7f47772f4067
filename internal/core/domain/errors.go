package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured or unreachable.
	// Slot extraction degrades to keyword and lexical matching only.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrMalformedOutput indicates an LLM reply did not match the expected grammar.
	ErrMalformedOutput = errors.New("malformed model output")

	// Conversation Errors.

	// ErrExtractionFailure indicates slot extraction failed after the retry.
	// Recovered locally: the turn asks the user to rephrase.
	ErrExtractionFailure = errors.New("slot extraction failed")

	// ErrNormalizationAmbiguous indicates no confident standard-term match.
	// Never returned to callers; the raw phrase is passed through instead.
	ErrNormalizationAmbiguous = errors.New("normalization ambiguous")

	// ErrSessionNotFound indicates an unknown or expired session ID.
	ErrSessionNotFound = errors.New("session not found")

	// Recommendation Errors.

	// ErrRecordNotFound indicates no historical record has the given identifier.
	ErrRecordNotFound = errors.New("record not found")

	// ErrNoCandidates indicates the recommendation query matched nothing.
	ErrNoCandidates = errors.New("no candidates")

	// ErrTooManyCandidates indicates the candidate set is too large to rank usefully.
	ErrTooManyCandidates = errors.New("too many candidates")

	// ErrReferenceData indicates the vocabulary or historical-record store failed.
	// This is the only failure that propagates out of a turn.
	ErrReferenceData = errors.New("reference data unavailable")
)
