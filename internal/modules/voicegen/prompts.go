package voicegen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const classifySystemPrompt = `You route post ideas for a single LinkedIn creator into one of their content pillars.

For the topic you are given:
- choose exactly one pillar by its number
- confidence (0-100): how sure you are that this pillar is the right home
- relevance (0-100): how well the topic serves that pillar's audience at all
- reasoning: one or two sentences naming the angle you would take
- tags: up to five short hashtag words, no '#'

Be strict. A topic that only loosely fits any pillar should get low relevance.`

const classifyUserTemplate = `Pillars:
%s

Topic:
%s`

const draftSystemTemplate = `You ghostwrite LinkedIn posts for one specific person. Match their voice exactly: sentence length, rhythm, vocabulary, punctuation, use of line breaks and emoji.

Writing samples from this person:
%s

Content pillar: %s
%s
Style for this variant: %s
%s

Rules:
- hook: the first one or two lines, must earn the "see more" click (aim under %d characters)
- body: the main post; short paragraphs separated by blank lines
- call_to_action: one closing line inviting a response
- tags: %d to %d hashtag words without '#'
- hook, body, call_to_action and hashtags together must stay under %d characters
%s`

const draftUserTemplate = `Topic:
%s

Suggested hook angle: %s
%s`

var classifySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"pillar_number": map[string]any{"type": "integer"},
		"confidence":    map[string]any{"type": "number"},
		"relevance":     map[string]any{"type": "number"},
		"reasoning":     map[string]any{"type": "string"},
		"tags":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required":             []string{"pillar_number", "confidence", "relevance", "reasoning", "tags"},
	"additionalProperties": false,
}

var draftSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"hook":           map[string]any{"type": "string"},
		"body":           map[string]any{"type": "string"},
		"call_to_action": map[string]any{"type": "string"},
		"tags":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required":             []string{"hook", "body", "call_to_action", "tags"},
	"additionalProperties": false,
}

func buildClassifyPrompt(topic string, pillars []PillarContext) CompletionRequest {
	var b strings.Builder
	for i, p := range pillars {
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
		if d := strings.TrimSpace(p.Description); d != "" {
			fmt.Fprintf(&b, " - %s", d)
		}
		if a := strings.TrimSpace(p.Audience); a != "" {
			fmt.Fprintf(&b, " (audience: %s)", a)
		}
		b.WriteString("\n")
	}
	return CompletionRequest{
		System:     classifySystemPrompt,
		User:       fmt.Sprintf(classifyUserTemplate, strings.TrimRight(b.String(), "\n"), strings.TrimSpace(topic)),
		SchemaName: "topic_classification",
		Schema:     classifySchema,
	}
}

func buildDraftPrompt(cfg GenerationConfig, in GenerateInput, style StyleSpec) CompletionRequest {
	var samples strings.Builder
	n := cfg.MaxVoiceExamples
	if n <= 0 || n > len(in.VoiceExamples) {
		n = len(in.VoiceExamples)
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(&samples, "--- sample %d ---\n%s\n", i+1, truncateRunes(strings.TrimSpace(in.VoiceExamples[i]), cfg.MaxExampleChars))
	}

	var pillar strings.Builder
	if s := strings.TrimSpace(in.Pillar.Description); s != "" {
		fmt.Fprintf(&pillar, "Pillar focus: %s\n", s)
	}
	if s := strings.TrimSpace(in.Pillar.Tone); s != "" {
		fmt.Fprintf(&pillar, "Tone: %s\n", s)
	}
	if s := strings.TrimSpace(in.Pillar.Audience); s != "" {
		fmt.Fprintf(&pillar, "Audience: %s\n", s)
	}
	if s := strings.TrimSpace(in.Pillar.CustomInstructions); s != "" {
		fmt.Fprintf(&pillar, "Creator instructions: %s\n", s)
	}

	styleLine := style.Name
	if s := strings.TrimSpace(style.Instruction); s != "" {
		styleLine = style.Name + ". " + s
	}

	patterns := ""
	if in.Patterns != nil {
		patterns = in.Patterns.PromptContext()
	}

	var extra strings.Builder
	if len(in.Topic.Tags) > 0 {
		fmt.Fprintf(&extra, "Related tags: %s\n", strings.Join(in.Topic.Tags, ", "))
	}
	if p := strings.TrimSpace(in.Perspective); p != "" {
		fmt.Fprintf(&extra, "Take this perspective: %s\n", p)
	}

	return CompletionRequest{
		System: fmt.Sprintf(draftSystemTemplate,
			strings.TrimRight(samples.String(), "\n"),
			in.Pillar.Name,
			strings.TrimRight(pillar.String(), "\n"),
			styleLine,
			patterns,
			cfg.HookFoldChars,
			cfg.MinTags, cfg.MaxTags,
			cfg.MaxChars,
			"Return JSON only.",
		),
		User:       fmt.Sprintf(draftUserTemplate, strings.TrimSpace(in.Topic.Content), in.Topic.HookAngle, strings.TrimRight(extra.String(), "\n")),
		SchemaName: "linkedin_post",
		Schema:     draftSchema,
	}
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
