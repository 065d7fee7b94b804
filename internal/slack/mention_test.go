package slack

import "testing"

func TestResolveMentions(t *testing.T) {
	names := map[string]string{
		"U123": "Alice",
		"U456": "Bob",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "mapped user mention",
			in:   "hey <@U123> can you review?",
			want: "hey @Alice can you review?",
		},
		{
			name: "unmapped user falls back to raw id",
			in:   "ping <@U999>",
			want: "ping @U999",
		},
		{
			name: "carried display name wins over map",
			in:   "<@U123|alice.w> shipped it",
			want: "@alice.w shipped it",
		},
		{
			name: "channel reference with name",
			in:   "posted in <#C042|general>",
			want: "posted in #general",
		},
		{
			name: "channel reference without name",
			in:   "posted in <#C042>",
			want: "posted in #C042",
		},
		{
			name: "broadcast keywords render literally",
			in:   "<!here> standup in 5, <!channel> fyi",
			want: "@here standup in 5, @channel fyi",
		},
		{
			name: "everyone broadcast with label",
			in:   "<!everyone|everyone> release today",
			want: "@everyone release today",
		},
		{
			name: "user group mention",
			in:   "cc <!subteam^S777|@platform-team>",
			want: "cc @platform-team",
		},
		{
			name: "link keeps label only",
			in:   "see <https://docs.internal/runbook|the runbook>",
			want: "see the runbook",
		},
		{
			name: "bare link passes through",
			in:   "see <https://docs.internal/runbook>",
			want: "see https://docs.internal/runbook",
		},
		{
			name: "multiple mentions in one message",
			in:   "<@U123> and <@U456> own <#C042|general>",
			want: "@Alice and @Bob own #general",
		},
		{
			name: "malformed markup passes through verbatim",
			in:   "a < b and <@> and <#|>",
			want: "a < b and <@> and <#|>",
		},
		{
			name: "plain text untouched",
			in:   "no markup here",
			want: "no markup here",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveMentions(tt.in, names); got != tt.want {
				t.Errorf("ResolveMentions(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveMentionsNilMap(t *testing.T) {
	got := ResolveMentions("hi <@U123>", nil)
	if got != "hi @U123" {
		t.Errorf("ResolveMentions with nil map = %q, want %q", got, "hi @U123")
	}
}
