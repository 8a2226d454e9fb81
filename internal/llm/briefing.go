// Package llm holds the transcription and briefing collaborators.
package llm

import (
	"encoding/json"
	"errors"
	"html"
	"strings"

	"github.com/anemonautas/meetingbot/internal/domain/meeting"
)

const fallbackSubject = "Meeting briefing"

// ParseBriefing reads a {"subject", "htmlBody"} document out of a model
// reply. Replies that are not JSON become a preformatted body.
func ParseBriefing(reply string) (*meeting.Briefing, error) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return nil, errors.New("empty briefing reply")
	}

	var b meeting.Briefing
	if err := json.Unmarshal([]byte(stripFence(text)), &b); err == nil && b.Body != "" {
		if b.Subject == "" {
			b.Subject = fallbackSubject
		}
		return &b, nil
	}

	return &meeting.Briefing{
		Subject: fallbackSubject,
		Body:    "<pre>" + html.EscapeString(text) + "</pre>",
	}, nil
}

// stripFence removes a surrounding ```json ... ``` block.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
