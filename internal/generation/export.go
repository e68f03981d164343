// AngelaMos | 2026
// export.go

package generation

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/carterperez-dev/copystudio/internal/core"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var csvHeader = []string{"index", "headline", "subtext", "style", "psychological_trigger", "reasoning"}

type Export struct {
	Body        []byte
	ContentType string
	Filename    string
}

// Export renders a stored generation's copies for download.
func (s *Service) Export(ctx context.Context, userID, id, format string) (*Export, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatJSON {
		return nil, fmt.Errorf("export format %q: %w", format, core.ErrInvalidInput)
	}

	g, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if format == FormatJSON {
		body, err := json.MarshalIndent(struct {
			GenerationID  string `json:"generation_id"`
			BriefSummary  string `json:"brief_summary"`
			PromptVersion string `json:"prompt_version"`
			Copies        Copies `json:"copies"`
		}{g.ID, g.BriefSummary, g.PromptVersion, g.Copies}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode export: %w", err)
		}
		return &Export{
			Body:        body,
			ContentType: "application/json",
			Filename:    "copies-" + g.ID + ".json",
		}, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	for _, c := range g.Copies {
		row := []string{
			strconv.Itoa(c.Index),
			csvCell(c.Headline),
			csvCell(c.Subtext),
			csvCell(c.Style),
			csvCell(c.Trigger),
			csvCell(c.Reasoning),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("encode export: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	return &Export{
		Body:        buf.Bytes(),
		ContentType: "text/csv; charset=utf-8",
		Filename:    "copies-" + g.ID + ".csv",
	}, nil
}

// csvCell keeps spreadsheet apps from evaluating model text as a formula.
func csvCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}
