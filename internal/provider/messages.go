package provider

import "strings"

// foldSystem extracts system messages into one instruction string for
// backends that carry them in a dedicated request field instead of the
// message list.
func foldSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if strings.TrimSpace(m.Content) != "" {
				system = append(system, m.Content)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// mergeConsecutive joins adjacent same-role messages for backends that
// require strictly alternating roles.
func mergeConsecutive(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}

// ensureLeadingUser prepends a neutral user turn when the history would
// otherwise open with an assistant message, which some backends reject.
func ensureLeadingUser(messages []Message) []Message {
	if len(messages) == 0 || messages[0].Role != RoleUser {
		return append([]Message{{Role: RoleUser, Content: "."}}, messages...)
	}
	return messages
}
