package analyze

import "fmt"

const validationSystemPrompt = `You are an expert at validating exam question extraction. ` +
	`Answer with valid JSON only, no markdown and no extra text. ` +
	`The JSON must start with { and end with }.`

const associationSystemPrompt = `You are an expert at analyzing academic documents and ` +
	`mapping figures to exam questions. Answer with valid JSON only, no markdown and no extra text.`

func validationPrompt(sample, questionsJSON string) string {
	return fmt.Sprintf(`Validate and refine the extracted exam questions below. Return EVERY question in the batch, omitting none.

EXAM TEXT (sample):
%s

EXTRACTED QUESTIONS:
%s

INSTRUCTIONS:
1. Return every question in the batch, preserving numeric order.
2. Make each question's text complete but LIMITED to 2000 characters.
3. Escape all double quotes in text as \" and newlines as \n.
4. Do not add questions that are not in the batch.

RESPONSE FORMAT (valid JSON):
{"questions": [{"number": 1, "text": "validated question text", "start": 0, "end": 500}]}`, sample, questionsJSON)
}

func associationPrompt(questionsInfo, imagesInfo string) string {
	return fmt.Sprintf(`Associate each image with the most likely exam question.

IDENTIFIED QUESTIONS:
%s

EXTRACTED IMAGES:
%s

INSTRUCTIONS:
1. Use each image's page and vertical position.
2. Associate an image with a question on the same or a nearby page.
3. When no association is clear, set question_number to null.

RESPONSE FORMAT (valid JSON):
{"associations": [{"image_index": 0, "question_number": 1}, {"image_index": 1, "question_number": null}]}`, questionsInfo, imagesInfo)
}
