// AngelaMos | 2026
// dto.go

package upload

type SlotRequest struct {
	Filename    string `json:"filename"     validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=100"`
	Size        int64  `json:"size"         validate:"required,min=1"`
}

type SlotResponse struct {
	UploadURL string `json:"upload_url"`
	FileKey   string `json:"file_key"`
	PublicURL string `json:"public_url"`
}

type FinalizeRequest struct {
	FileKey     string `json:"file_key"     validate:"required,max=512"`
	ContentType string `json:"content_type" validate:"required,max=100"`
	Size        int64  `json:"size"         validate:"required,min=1"`
}

type FinalizeResponse struct {
	ID        string `json:"id"`
	FileKey   string `json:"file_key"`
	PublicURL string `json:"public_url"`
}
