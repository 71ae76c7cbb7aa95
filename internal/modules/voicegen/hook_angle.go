package voicegen

import (
	"strings"

	"github.com/yungbote/postvoice-backend/internal/domain/content"
)

// angleRules are checked in order; the first rule with a matching keyword
// wins. Data-driven comes first so "the numbers tell a story" stays data-driven.
var angleRules = []struct {
	angle    content.HookAngle
	keywords []string
}{
	{content.HookDataDriven, []string{"data", "statistic", "number", "metric", "percent", "%", "survey", "research", "study"}},
	{content.HookStorytelling, []string{"story", "experience", "journey", "anecdote", "personal", "lesson learned", "narrative"}},
	{content.HookEmotional, []string{"emotion", "feel", "inspir", "frustrat", "fear", "passion", "empath", "vulnerab"}},
	{content.HookContrarian, []string{"contrarian", "controvers", "myth", "unpopular", "challenge", "debate", "counterintuitive", "against"}},
}

// DeriveHookAngle picks a hook angle from classifier reasoning. Analytical is
// the default when nothing matches.
func DeriveHookAngle(reasoning string) content.HookAngle {
	r := strings.ToLower(reasoning)
	for _, rule := range angleRules {
		for _, kw := range rule.keywords {
			if strings.Contains(r, kw) {
				return rule.angle
			}
		}
	}
	return content.HookAnalytical
}
