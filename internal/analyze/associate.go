package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mfcarvalho/examina/internal/pdfdoc"
	"github.com/mfcarvalho/examina/internal/providers"
	"github.com/mfcarvalho/examina/internal/segment"
)

var errUnrecoverablePayload = errors.New("unrecoverable response payload")

// ImageRef is the compact description of an accepted image handed to the
// association pass.
type ImageRef struct {
	Index int
	Page  int
	BBoxY *float64 // top of the image in page coordinates, nil if unknown
}

type associationsPayload struct {
	Associations []struct {
		ImageIndex     int  `json:"image_index"`
		QuestionNumber *int `json:"question_number"`
	} `json:"associations"`
}

// AssociateImages asks the model to attach each image to a question using
// page proximity and vertical ordering. The result maps image index to
// question number; unmatched images are absent. A collaborator failure
// returns an empty map, leaving every image unassociated.
func (a *Analyzer) AssociateImages(ctx context.Context, questions []segment.Candidate, images []ImageRef, pages []pdfdoc.Page) map[int]int {
	if len(questions) == 0 || len(images) == 0 {
		return nil
	}

	var qLines, imgLines []string
	for _, q := range questions {
		page := pdfdoc.PageForOffset(pages, q.Start)
		qLines = append(qLines, fmt.Sprintf("Question %d: page %d", q.Number, page))
	}
	for _, img := range images {
		pos := "unknown"
		if img.BBoxY != nil {
			pos = fmt.Sprintf("%.0f", *img.BBoxY)
		}
		imgLines = append(imgLines, fmt.Sprintf("Image %d: page %d, Y position: %s", img.Index, img.Page, pos))
	}

	result, err := a.chat.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: associationSystemPrompt},
			{Role: "user", Content: associationPrompt(strings.Join(qLines, "\n"), strings.Join(imgLines, "\n"))},
		},
		Temperature:    0.3,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		a.log.Warn("image association failed, leaving images unassociated", "error", err)
		return nil
	}

	raw, err := providers.ParseStructuredJSON(result.Content)
	if err != nil {
		a.log.Warn("image association payload unparseable", "error", err)
		return nil
	}
	var payload associationsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		a.log.Warn("image association payload malformed", "error", err)
		return nil
	}

	knownQuestion := make(map[int]bool, len(questions))
	for _, q := range questions {
		knownQuestion[q.Number] = true
	}
	knownImage := make(map[int]bool, len(images))
	for _, img := range images {
		knownImage[img.Index] = true
	}

	out := make(map[int]int)
	for _, assoc := range payload.Associations {
		if assoc.QuestionNumber == nil || !knownQuestion[*assoc.QuestionNumber] {
			continue
		}
		if !knownImage[assoc.ImageIndex] {
			continue
		}
		out[assoc.ImageIndex] = *assoc.QuestionNumber
	}
	return out
}
