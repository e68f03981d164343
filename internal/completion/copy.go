// AngelaMos | 2026
// copy.go

package completion

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/carterperez-dev/copystudio/internal/core"
	"github.com/carterperez-dev/copystudio/internal/prompt"
)

type Copy struct {
	Index     int    `json:"index"`
	Headline  string `json:"headline"`
	Subtext   string `json:"subtext"`
	Style     string `json:"style"`
	Trigger   string `json:"psychological_trigger"`
	Reasoning string `json:"reasoning"`
}

var (
	styleSet   = canonicalSet(prompt.Styles)
	triggerSet = canonicalSet(prompt.Triggers)
)

func canonicalSet(values []string) map[string]string {
	m := make(map[string]string, len(values))
	for _, v := range values {
		m[strings.ToLower(v)] = v
	}
	return m
}

// ParseCopies extracts the copies from the model's JSON message content.
// Tag values are matched case-insensitively and normalised.
func ParseCopies(body string) ([]Copy, error) {
	if strings.TrimSpace(body) == "" {
		return nil, modelErr("response has no message content")
	}
	if !gjson.Valid(body) {
		return nil, modelErr("message content is not JSON")
	}

	entries := gjson.Get(body, "copies")
	if !entries.IsArray() {
		return nil, modelErr("copies missing")
	}

	items := entries.Array()
	if len(items) != prompt.CopyCount {
		return nil, modelErr(fmt.Sprintf("expected %d copies, got %d", prompt.CopyCount, len(items)))
	}

	copies := make([]Copy, 0, len(items))
	for i, item := range items {
		c, err := parseCopy(i, item)
		if err != nil {
			return nil, err
		}
		copies = append(copies, c)
	}

	return copies, nil
}

func parseCopy(i int, item gjson.Result) (Copy, error) {
	if !item.IsObject() {
		return Copy{}, modelErr(fmt.Sprintf("copy %d is not an object", i))
	}

	headline := strings.TrimSpace(item.Get("headline").String())
	subtext := strings.TrimSpace(item.Get("subtext").String())
	if headline == "" || subtext == "" {
		return Copy{}, modelErr(fmt.Sprintf("copy %d missing headline or subtext", i))
	}

	style, ok := styleSet[strings.ToLower(strings.TrimSpace(item.Get("style").String()))]
	if !ok {
		return Copy{}, modelErr(fmt.Sprintf("copy %d has unknown style %q", i, item.Get("style").String()))
	}

	triggerRaw := item.Get("psychologicalTrigger").String()
	trigger, ok := triggerSet[strings.ToLower(strings.TrimSpace(triggerRaw))]
	if !ok {
		return Copy{}, modelErr(fmt.Sprintf("copy %d has unknown trigger %q", i, triggerRaw))
	}

	return Copy{
		Index:     i,
		Headline:  headline,
		Subtext:   subtext,
		Style:     style,
		Trigger:   trigger,
		Reasoning: strings.TrimSpace(item.Get("reasoning").String()),
	}, nil
}

func modelErr(msg string) error {
	return fmt.Errorf("parse completion: %s: %w", msg, core.ErrModel)
}
