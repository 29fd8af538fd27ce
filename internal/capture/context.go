package capture

import (
	"fmt"
	"strings"
	"time"
)

const (
	contextSessionLimit     = 5
	contextPromptLimit      = 10
	contextObservationLimit = 15
)

// buildContext renders recent project history (sessions, summaries,
// prompts, observations) as a Markdown payload for the session-start
// hook. Returns "" when the project has no history at all.
func (p *Pipeline) buildContext(project string) (string, error) {
	sessions, err := p.store.RecentSessions(project, contextSessionLimit)
	if err != nil {
		return "", err
	}
	prompts, err := p.store.RecentPromptsForProject(project, contextPromptLimit)
	if err != nil {
		return "", err
	}
	observations, err := p.store.RecentObservationsForProject(project, contextObservationLimit)
	if err != nil {
		return "", err
	}
	if len(sessions) == 0 && len(prompts) == 0 && len(observations) == 0 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Recent memory for %s\n", project)

	if len(sessions) > 0 {
		b.WriteString("\n## Recent sessions\n")
		for _, s := range sessions {
			line := fmt.Sprintf("- %s (%s, %d observation(s))",
				formatMillis(s.StartedAt), s.Status, s.ObservationCount)
			if s.Summary != nil && *s.Summary != "" {
				line += ": " + *s.Summary
			}
			b.WriteString(line + "\n")
		}
	}

	if len(prompts) > 0 {
		b.WriteString("\n## Recent prompts\n")
		for _, p := range prompts {
			fmt.Fprintf(&b, "- [#%d] %s\n", p.PromptNumber, truncateRunes(p.PromptText, 120))
		}
	}

	if len(observations) > 0 {
		b.WriteString("\n## Recent activity\n")
		for _, o := range observations {
			line := "- " + o.Title
			if o.Subtitle != "" {
				line += " — " + o.Subtitle
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String(), nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
