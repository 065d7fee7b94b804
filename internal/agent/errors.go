package agent

import "errors"

// Sentinel errors for agent operations.
var (
	// ErrToolRoundsExhausted indicates the model kept requesting tools
	// past the configured round limit.
	ErrToolRoundsExhausted = errors.New("tool rounds exhausted")

	// ErrExecutionFailed indicates agent execution failed.
	ErrExecutionFailed = errors.New("execution failed")
)

// User-facing explanations for common upstream failure classes. These are
// persisted as the assistant message when a turn fails, so they must make
// sense without any technical context.
const (
	msgBilling = "I'm unable to respond right now because the AI service reported a billing problem. " +
		"Please check the account's billing status and try again."

	msgRateLimited = "The AI service is rate limiting requests at the moment. " +
		"Please wait a little while and try again."

	msgBadCredentials = "I couldn't authenticate with the AI service. " +
		"Please check that the API key is configured correctly."

	msgCircuitOpen = "The AI service has been failing repeatedly, so requests are paused briefly. " +
		"Please try again in about a minute."

	msgToolRounds = "I wasn't able to finish researching your question within my lookup limit. " +
		"Please try asking something more specific."

	msgGeneric = "Something went wrong while generating a response. Please try again."
)

// FriendlyMessage maps an upstream failure to user-readable text.
// It pattern-matches the error string because the provider SDKs do not
// expose typed errors for these conditions.
func FriendlyMessage(err error) string {
	if err == nil {
		return msgGeneric
	}
	switch {
	case errors.Is(err, ErrToolRoundsExhausted):
		return msgToolRounds
	case errors.Is(err, ErrCircuitOpen):
		return msgCircuitOpen
	case containsAny(err.Error(), "billing", "payment", "insufficient funds", "purchase"):
		return msgBilling
	case containsAny(err.Error(), "rate limit", "quota exceeded", "429", "resource exhausted"):
		return msgRateLimited
	case containsAny(err.Error(), "api key", "unauthenticated", "401", "403", "permission denied", "invalid credential"):
		return msgBadCredentials
	default:
		return msgGeneric
	}
}
