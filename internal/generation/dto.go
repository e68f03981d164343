// AngelaMos | 2026
// dto.go

package generation

import (
	"time"

	"github.com/carterperez-dev/copystudio/internal/completion"
	"github.com/carterperez-dev/copystudio/internal/prompt"
)

type AudienceRequest struct {
	AgeRange   string `json:"age_range"  validate:"required,max=50"`
	Occupation string `json:"occupation" validate:"required,max=100"`
	PainPoint  string `json:"pain_point" validate:"required,max=300"`
}

type GenerateRequest struct {
	ScreenshotURL   string          `json:"screenshot_url"   validate:"required,url,max=2048"`
	AppName         string          `json:"app_name"         validate:"required,max=100"`
	AppCategory     string          `json:"app_category"     validate:"required,max=100"`
	TargetAudience  AudienceRequest `json:"target_audience"`
	ScreenFeature   string          `json:"screen_feature"   validate:"required,max=300"`
	TonePreference  string          `json:"tone_preference"  validate:"required,max=100"`
	KeyBenefit      string          `json:"key_benefit"      validate:"required,max=300"`
	Competitors     string          `json:"competitors"      validate:"omitempty,max=500"`
	IncludeKeywords []string        `json:"include_keywords" validate:"omitempty,max=20,dive,max=50"`
	ExcludeKeywords []string        `json:"exclude_keywords" validate:"omitempty,max=20,dive,max=50"`
}

func (r GenerateRequest) ToBrief() prompt.Brief {
	return prompt.Brief{
		ScreenshotURL: r.ScreenshotURL,
		AppName:       r.AppName,
		AppCategory:   r.AppCategory,
		Audience: prompt.Audience{
			AgeRange:   r.TargetAudience.AgeRange,
			Occupation: r.TargetAudience.Occupation,
			PainPoint:  r.TargetAudience.PainPoint,
		},
		ScreenFeature:   r.ScreenFeature,
		Tone:            r.TonePreference,
		KeyBenefit:      r.KeyBenefit,
		Competitors:     prompt.SplitList(r.Competitors),
		IncludeKeywords: r.IncludeKeywords,
		ExcludeKeywords: r.ExcludeKeywords,
	}
}

type GenerateResponse struct {
	GenerationID string            `json:"generation_id"`
	Copies       []completion.Copy `json:"copies"`
	CreditsUsed  int               `json:"credits_used"`
	Balance      int               `json:"balance"`
}

type GenerationResponse struct {
	ID             string            `json:"id"`
	ScreenshotURL  string            `json:"screenshot_url"`
	BriefSummary   string            `json:"brief_summary"`
	TargetAudience prompt.Audience   `json:"target_audience"`
	Copies         []completion.Copy `json:"copies"`
	CreditsUsed    int               `json:"credits_used"`
	PromptVersion  string            `json:"prompt_version"`
	CreatedAt      time.Time         `json:"created_at"`
}

func ToGenerateResponse(r *Result) GenerateResponse {
	return GenerateResponse{
		GenerationID: r.GenerationID,
		Copies:       r.Copies,
		CreditsUsed:  r.CreditsUsed,
		Balance:      r.Balance,
	}
}

func ToGenerationResponse(g *Generation) GenerationResponse {
	return GenerationResponse{
		ID:             g.ID,
		ScreenshotURL:  g.ScreenshotURL,
		BriefSummary:   g.BriefSummary,
		TargetAudience: prompt.Audience(g.TargetAudience),
		Copies:         g.Copies,
		CreditsUsed:    g.CreditsUsed,
		PromptVersion:  g.PromptVersion,
		CreatedAt:      g.CreatedAt,
	}
}

func ToGenerationResponseList(gens []Generation) []GenerationResponse {
	out := make([]GenerationResponse, 0, len(gens))
	for i := range gens {
		out = append(out, ToGenerationResponse(&gens[i]))
	}
	return out
}
