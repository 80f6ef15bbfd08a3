package templates

import (
	_ "embed"
	"fmt"
	"strings"

	"lovepage-app/internal/domain/builder"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Theme struct {
	From  string `yaml:"from" json:"from"`
	Via   string `yaml:"via" json:"via,omitempty"`
	To    string `yaml:"to" json:"to"`
	Angle int    `yaml:"angle" json:"angle"`
}

type DemoMusic struct {
	URL      string `yaml:"url" json:"url"`
	Name     string `yaml:"name" json:"name"`
	MimeType string `yaml:"mimeType" json:"mimeType,omitempty"`
}

type Demo struct {
	Images []string   `yaml:"images" json:"images"`
	Music  *DemoMusic `yaml:"music" json:"music,omitempty"`
}

type noteSpec struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type defaultsSpec struct {
	Title               string     `yaml:"title"`
	Subtitle            string     `yaml:"subtitle"`
	Tagline             string     `yaml:"tagline"`
	ShowSubtitle        bool       `yaml:"showSubtitle"`
	LoveNotes           []noteSpec `yaml:"loveNotes"`
	MomentsTitle        string     `yaml:"momentsTitle"`
	Moments             []string   `yaml:"moments"`
	SelectedFont        string     `yaml:"selectedFont"`
	TitleSize           string     `yaml:"titleSize"`
	PhotoMood           string     `yaml:"photoMood"`
	BackgroundIntensity string     `yaml:"backgroundIntensity"`
	Palette             string     `yaml:"palette"`
}

// Template is immutable once the registry is loaded.
type Template struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Tagline     string   `yaml:"tagline" json:"tagline"`
	Description string   `yaml:"description" json:"description"`
	Theme       Theme    `yaml:"theme" json:"theme"`
	Demo        Demo     `yaml:"demo" json:"demo"`
	Palettes    []string `yaml:"palettes" json:"palettes,omitempty"`

	Defaults defaultsSpec `yaml:"defaults" json:"-"`
}

// DefaultDocument builds the document a builder opens with.
func (t Template) DefaultDocument() builder.Document {
	d := t.Defaults
	doc := builder.Document{
		TemplateID:          t.ID,
		Title:               d.Title,
		Subtitle:            d.Subtitle,
		Tagline:             d.Tagline,
		ShowSubtitle:        d.ShowSubtitle,
		LoveNotes:           make([]builder.LoveNote, 0, len(d.LoveNotes)),
		MomentsTitle:        d.MomentsTitle,
		Moments:             append(make([]string, 0, len(d.Moments)), d.Moments...),
		Photos:              []builder.Photo{},
		SelectedFont:        d.SelectedFont,
		TitleSize:           d.TitleSize,
		SectionOrder:        builder.DefaultSectionOrder(),
		PhotoMood:           d.PhotoMood,
		BackgroundIntensity: d.BackgroundIntensity,
		Palette:             d.Palette,
	}
	for _, n := range d.LoveNotes {
		doc.LoveNotes = append(doc.LoveNotes, builder.LoveNote{Title: n.Title, Body: n.Body})
	}
	if t.Demo.Music != nil {
		doc.Music = &builder.Music{URL: t.Demo.Music.URL, Name: t.Demo.Music.Name, MimeType: t.Demo.Music.MimeType}
	}
	return doc
}

// Coerce repairs raw against this template's defaults and schema.
func (t Template) Coerce(raw any, maxPhotos int) builder.Result {
	return builder.Coerce(t.DefaultDocument(), raw, builder.Options{
		MaxPhotos: maxPhotos,
		Palettes:  t.Palettes,
	})
}

type Registry struct {
	order []string
	byID  map[string]Template
}

// Load parses a catalog document and validates it.
func Load(data []byte) (*Registry, error) {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}

	r := &Registry{byID: make(map[string]Template, len(doc.Templates))}
	for _, t := range doc.Templates {
		if err := validate(t); err != nil {
			return nil, err
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("template %q defined twice", t.ID)
		}
		r.byID[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("template catalog is empty")
	}
	return r, nil
}

// Default returns the catalog compiled into the binary.
func Default() (*Registry, error) {
	return Load(catalogYAML)
}

func (r *Registry) Lookup(id string) (Template, bool) {
	t, ok := r.byID[strings.TrimSpace(id)]
	return t, ok
}

// All returns templates in catalog order.
func (r *Registry) All() []Template {
	out := make([]Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func validate(t Template) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template with empty id")
	}
	d := t.Defaults
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"selectedFont", d.SelectedFont, builder.Fonts},
		{"titleSize", d.TitleSize, builder.TitleSizes},
		{"photoMood", d.PhotoMood, builder.PhotoMoods},
		{"backgroundIntensity", d.BackgroundIntensity, builder.BackgroundIntensities},
	}
	for _, c := range checks {
		if !containsString(c.allowed, c.value) {
			return fmt.Errorf("template %q: default %s %q is not allowed", t.ID, c.field, c.value)
		}
	}
	if len(t.Palettes) > 0 && !containsString(t.Palettes, d.Palette) {
		return fmt.Errorf("template %q: default palette %q not in palettes", t.ID, d.Palette)
	}
	if len(t.Palettes) == 0 && d.Palette != "" {
		return fmt.Errorf("template %q: palette set without palettes", t.ID)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
