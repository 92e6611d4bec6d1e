package dto

import "github.com/eleven-am/formpulse/internal/schema"

type CreateFormRequest struct {
	OwnerID     string           `json:"owner_id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Fields      schema.FieldList `json:"fields"`
}

type UpdateFormRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Fields      schema.FieldList `json:"fields"`
}

// SchemaCheckRequest previews how a pending edit would be classified without
// saving anything.
type SchemaCheckRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Fields      schema.FieldList `json:"fields"`
}

type PublishFormRequest struct {
	Published bool `json:"published"`
}

type FormResponse struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Fields      schema.FieldList `json:"fields"`
	Published   bool             `json:"published"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

type FormListResponse struct {
	Forms []FormResponse `json:"forms"`
}

type UpdateFormResponse struct {
	Form         FormResponse         `json:"form"`
	ChangeReport *schema.ChangeReport `json:"change_report"`
}
