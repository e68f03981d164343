// AngelaMos | 2026
// prompt.go

package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/carterperez-dev/copystudio/internal/core"
)

// Version is stored on every generation so copies can be traced back to
// the instruction that produced them.
const Version = "appstore-copy/v2"

const CopyCount = 5

var Styles = []string{"bold", "subtle", "feature", "benefit", "emotional"}

var Triggers = []string{"FOMO", "social proof", "simplicity", "transformation", "status"}

type Audience struct {
	AgeRange   string `json:"age_range"`
	Occupation string `json:"occupation"`
	PainPoint  string `json:"pain_point"`
}

type Brief struct {
	ScreenshotURL   string
	AppName         string
	AppCategory     string
	Audience        Audience
	ScreenFeature   string
	Tone            string
	KeyBenefit      string
	Competitors     []string
	IncludeKeywords []string
	ExcludeKeywords []string
}

// Summary is the short form of a brief kept on the generation record.
func (b Brief) Summary() string {
	return fmt.Sprintf("App: %s, Feature: %s", b.AppName, b.ScreenFeature)
}

const instructionText = `You are an expert App Store marketer who has helped apps achieve 50%+ conversion rate increases.

CONTEXT:
- App Name: {{.AppName}}
- Category: {{.AppCategory}}
- Target Audience: {{.Audience.Occupation}}, ages {{.Audience.AgeRange}}
- Their Pain Point: {{.Audience.PainPoint}}
- This Screenshot Shows: {{.ScreenFeature}}
- Key Benefit: {{.KeyBenefit}}
- Tone: {{.Tone}}
{{- if .Competitors}}
- Competitors: {{join .Competitors}}
{{- end}}
{{- if .IncludeKeywords}}
- Keywords To Include: {{join .IncludeKeywords}}
{{- end}}
{{- if .ExcludeKeywords}}
- Keywords To Avoid: {{join .ExcludeKeywords}}
{{- end}}

TASK:
Analyze this screenshot and create {{.Count}} compelling marketing headlines.

REQUIREMENTS:
1. Each headline must be 6-10 words maximum
2. Use power words that trigger emotion (discover, transform, unleash, effortless)
3. Focus on the BENEFIT, not the feature
4. Make it specific to what's shown in the screenshot
5. Use the target audience's language ({{.Audience.Occupation}} talk differently than others)
6. If competitors exist, ensure headlines differentiate from them
7. Test a different psychological trigger in each headline:
{{- range $i, $t := .Triggers}}
   - Headline {{inc $i}}: {{$t}}
{{- end}}

FORMAT:
Return ONLY a JSON object with a single key "copies" holding an array of exactly {{.Count}} objects:
{
  "copies": [
    {
      "headline": "Your headline here",
      "subtext": "Supporting text (10-15 words)",
      "style": {{quoted .Styles}},
      "psychologicalTrigger": {{quoted .Triggers}},
      "reasoning": "Why this works for {{.Audience.Occupation}}"
    }
  ]
}

Now analyze the screenshot and create headlines that convert.`

var instruction = template.Must(template.New("instruction").Funcs(template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
	"inc":  func(i int) int { return i + 1 },
	"quoted": func(items []string) string {
		quoted := make([]string, len(items))
		for i, s := range items {
			quoted[i] = `"` + s + `"`
		}
		return strings.Join(quoted, " | ")
	},
}).Parse(instructionText))

type view struct {
	Brief
	Count    int
	Styles   []string
	Triggers []string
}

// Build renders the model instruction for b. Identical briefs always yield
// byte-identical output.
func Build(b Brief) (string, error) {
	if err := validate(b); err != nil {
		return "", err
	}

	b.Competitors = cleanList(b.Competitors)
	b.IncludeKeywords = cleanList(b.IncludeKeywords)
	b.ExcludeKeywords = cleanList(b.ExcludeKeywords)

	var buf bytes.Buffer
	err := instruction.Execute(&buf, view{
		Brief:    b,
		Count:    CopyCount,
		Styles:   Styles,
		Triggers: Triggers,
	})
	if err != nil {
		return "", fmt.Errorf("render instruction: %w", err)
	}

	return buf.String(), nil
}

func validate(b Brief) error {
	fields := []struct{ name, value string }{
		{"app_name", b.AppName},
		{"app_category", b.AppCategory},
		{"audience age_range", b.Audience.AgeRange},
		{"audience occupation", b.Audience.Occupation},
		{"audience pain_point", b.Audience.PainPoint},
		{"screen_feature", b.ScreenFeature},
		{"tone", b.Tone},
		{"key_benefit", b.KeyBenefit},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("brief %s is required: %w", f.name, core.ErrInvalidInput)
		}
	}
	return nil
}

// cleanList trims entries and drops blanks while keeping caller order.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SplitList parses the comma separated form the wizard submits.
func SplitList(s string) []string {
	return cleanList(strings.Split(s, ","))
}
