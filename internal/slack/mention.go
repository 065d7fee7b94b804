package slack

import "regexp"

// Slack inline markup, in resolution precedence order. Display-name
// variants carry the name after a pipe and win over map lookups.
var (
	userMentionRe = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|([^>]+))?>`)
	channelRefRe  = regexp.MustCompile(`<#([A-Z0-9]+)(?:\|([^>]*))?>`)
	subteamRe     = regexp.MustCompile(`<!subteam\^([A-Z0-9]+)(?:\|@?([^>]*))?>`)
	broadcastRe   = regexp.MustCompile(`<!(here|channel|everyone)(?:\|[^>]*)?>`)
	linkRe        = regexp.MustCompile(`<((?:https?|mailto):[^<>|]+)(?:\|([^>]*))?>`)
)

// ResolveMentions converts Slack inline markup into plain display text
// using the supplied user ID to display-name map. Unresolvable IDs fall
// back to the raw identifier, never an empty string, and malformed
// markup passes through verbatim. The function is pure.
func ResolveMentions(text string, names map[string]string) string {
	// <@U123|alice> carries its own name; <@U123> consults the map.
	out := userMentionRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := userMentionRe.FindStringSubmatch(m)
		if sub[2] != "" {
			return "@" + sub[2]
		}
		if name, ok := names[sub[1]]; ok && name != "" {
			return "@" + name
		}
		return "@" + sub[1]
	})

	// <#C123|general> keeps the carried name; bare <#C123> keeps the ID.
	out = channelRefRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := channelRefRe.FindStringSubmatch(m)
		if sub[2] != "" {
			return "#" + sub[2]
		}
		return "#" + sub[1]
	})

	// User-group mentions: keep the handle when present, else the group ID.
	out = subteamRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := subteamRe.FindStringSubmatch(m)
		if sub[2] != "" {
			return "@" + sub[2]
		}
		return "@" + sub[1]
	})

	// Broadcast keywords render literally.
	out = broadcastRe.ReplaceAllString(out, "@$1")

	// <url|label> keeps only the label; bare <url> keeps the URL.
	out = linkRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		if sub[2] != "" {
			return sub[2]
		}
		return sub[1]
	})

	return out
}

// MentionedUserIDs returns the user IDs referenced by bare <@U123>
// mentions, deduplicated in first-appearance order. Variants that carry
// their own display name need no lookup and are excluded.
func MentionedUserIDs(text string) []string {
	var (
		ids  []string
		seen = make(map[string]bool)
	)
	for _, sub := range userMentionRe.FindAllStringSubmatch(text, -1) {
		if sub[2] != "" || seen[sub[1]] {
			continue
		}
		seen[sub[1]] = true
		ids = append(ids, sub[1])
	}
	return ids
}
