// AngelaMos | 2026
// dto.go

package feedback

import "time"

type SubmitRequest struct {
	GenerationID string `json:"generation_id" validate:"required,uuid"`
	CopyIndex    *int   `json:"copy_index"    validate:"required,min=0"`
	Rating       int    `json:"rating"        validate:"required,min=1,max=5"`
}

type FeedbackResponse struct {
	ID           string    `json:"id"`
	GenerationID string    `json:"generation_id"`
	CopyIndex    int       `json:"copy_index"`
	Rating       int       `json:"rating"`
	Updated      bool      `json:"updated"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToFeedbackResponse(f *Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:           f.ID,
		GenerationID: f.GenerationID,
		CopyIndex:    f.CopyIndex,
		Rating:       f.Rating,
		Updated:      !f.Inserted,
		UpdatedAt:    f.UpdatedAt,
	}
}

func ToFeedbackResponseList(items []Feedback) []FeedbackResponse {
	out := make([]FeedbackResponse, 0, len(items))
	for i := range items {
		r := ToFeedbackResponse(&items[i])
		r.Updated = items[i].UpdatedAt.After(items[i].CreatedAt)
		out = append(out, r)
	}
	return out
}
