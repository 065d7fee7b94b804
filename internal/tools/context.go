// Package tools defines the agent's Genkit tools: internal knowledge
// search and external web search. Tool handlers never return errors to
// the loop; failures become model-visible text so a single bad tool
// call cannot abort the conversation.
package tools

import "context"

// Empty structs as context keys, zero allocation.
type (
	emitterKey   struct{}
	collectorKey struct{}
	orgIDKey     struct{}
)

// ContextWithOrgID stores the caller's organization scope. Tool
// handlers read it to partition knowledge searches.
func ContextWithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDKey{}, orgID)
}

// OrgIDFromContext returns the organization scope, or "" when unset.
func OrgIDFromContext(ctx context.Context) string {
	orgID, _ := ctx.Value(orgIDKey{}).(string)
	return orgID
}
