package dto

type AnswerPayload struct {
	FieldID string `json:"fieldId"`
	Value   any    `json:"value"`
}

type SubmitResponseRequest struct {
	Answers []AnswerPayload `json:"answers"`
}

type SubmitResponseResponse struct {
	ID          string `json:"id"`
	FormID      string `json:"form_id"`
	SubmittedAt string `json:"submitted_at"`
}

type ResponseDetail struct {
	ID          string          `json:"id"`
	Answers     []AnswerPayload `json:"answers"`
	SubmittedAt string          `json:"submitted_at"`
}

type ResponseListResponse struct {
	FormID    string           `json:"form_id"`
	Total     int              `json:"total"`
	Responses []ResponseDetail `json:"responses"`
}
