package siteapi

import (
	"encoding/json"
	"time"

	"lovepage-app/internal/domain/builder"
	"lovepage-app/internal/domain/templates"
)

type TemplateDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Tagline     string          `json:"tagline"`
	Description string          `json:"description"`
	Theme       templates.Theme `json:"theme"`
	Demo        templates.Demo  `json:"demo"`
	Palettes    []string        `json:"palettes,omitempty"`
}

type GetTemplatesResponse struct {
	Templates []TemplateDTO `json:"templates"`
}

type GetTemplateResponse struct {
	Template TemplateDTO      `json:"template"`
	Defaults builder.Document `json:"defaults"`
}

type PageDTO struct {
	Slug       string          `json:"slug"`
	TemplateID string          `json:"templateId"`
	Plan       string          `json:"plan"`
	Doc        json.RawMessage `json:"doc"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func toTemplateDTO(t templates.Template) TemplateDTO {
	return TemplateDTO{
		ID:          t.ID,
		Name:        t.Name,
		Tagline:     t.Tagline,
		Description: t.Description,
		Theme:       t.Theme,
		Demo:        t.Demo,
		Palettes:    t.Palettes,
	}
}
