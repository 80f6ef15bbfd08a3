package builder

import (
	"encoding/json"
	"math"
	"sort"
)

// Correction reasons reported by Coerce.
const (
	ReasonNotObject      = "not_an_object"
	ReasonInvalidType    = "invalid_type"
	ReasonInvalidValue   = "invalid_value"
	ReasonDroppedEntries = "dropped_entries"
	ReasonTruncated      = "truncated"
	ReasonUnknownField   = "unknown_field"
	ReasonLegacyField    = "legacy_field"
)

// Correction records one field that did not survive coercion as submitted.
type Correction struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Result struct {
	Document    Document
	Corrections []Correction
}

// Clean reports whether the input was already a valid document.
func (r Result) Clean() bool {
	return len(r.Corrections) == 0
}

type Options struct {
	// MaxPhotos is the plan-derived photo ceiling. Non-positive allows none.
	MaxPhotos int
	// Palettes lists the template's palette choices; empty disables the field.
	Palettes []string
}

var knownFields = map[string]bool{
	"templateId": true, "title": true, "subtitle": true, "tagline": true,
	"showSubtitle": true, "loveNotes": true, "loveNote": true, "momentsTitle": true,
	"moments": true, "photos": true, "music": true, "selectedFont": true,
	"titleSize": true, "sectionOrder": true, "photoMood": true,
	"backgroundIntensity": true, "palette": true,
}

// Coerce repairs an untrusted payload into a complete document. Every field
// is checked independently and falls back to its default when it fails the
// check. It never fails.
func Coerce(defaults Document, raw any, opts Options) Result {
	res := Result{Document: defaults.Clone()}
	doc := &res.Document
	if len(opts.Palettes) == 0 {
		doc.Palette = ""
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		res.add("$", ReasonNotObject)
		doc.Photos = res.truncatePhotos(doc.Photos, opts.MaxPhotos)
		return res
	}

	c := coercer{obj: obj, res: &res}

	doc.Title = c.str("title", doc.Title)
	doc.Subtitle = c.str("subtitle", doc.Subtitle)
	doc.Tagline = c.str("tagline", doc.Tagline)
	doc.ShowSubtitle = c.boolean("showSubtitle", doc.ShowSubtitle)
	doc.MomentsTitle = c.str("momentsTitle", doc.MomentsTitle)
	doc.Moments = c.strList("moments", doc.Moments)
	doc.LoveNotes = c.loveNotes(doc.LoveNotes)
	doc.Photos = c.photos(doc.Photos)
	doc.Music = c.music(doc.Music)
	doc.SelectedFont = c.enum("selectedFont", doc.SelectedFont, Fonts)
	doc.TitleSize = c.enum("titleSize", doc.TitleSize, TitleSizes)
	doc.PhotoMood = c.enum("photoMood", doc.PhotoMood, PhotoMoods)
	doc.BackgroundIntensity = c.enum("backgroundIntensity", doc.BackgroundIntensity, BackgroundIntensities)
	doc.SectionOrder = c.sectionOrder(doc.SectionOrder)

	if len(opts.Palettes) > 0 {
		doc.Palette = c.enum("palette", doc.Palette, opts.Palettes)
	} else if _, present := obj["palette"]; present {
		res.add("palette", ReasonUnknownField)
	}

	doc.Photos = res.truncatePhotos(doc.Photos, opts.MaxPhotos)

	unknown := make([]string, 0)
	for k := range obj {
		if !knownFields[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		res.add(k, ReasonUnknownField)
	}

	return res
}

// CoerceJSON decodes data and coerces it. Undecodable input yields defaults.
func CoerceJSON(defaults Document, data []byte, opts Options) Result {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = nil
	}
	return Coerce(defaults, raw, opts)
}

func (r *Result) add(field, reason string) {
	r.Corrections = append(r.Corrections, Correction{Field: field, Reason: reason})
}

func (r *Result) truncatePhotos(photos []Photo, max int) []Photo {
	if max < 0 {
		max = 0
	}
	if len(photos) > max {
		r.add("photos", ReasonTruncated)
		return photos[:max]
	}
	return photos
}

type coercer struct {
	obj map[string]any
	res *Result
}

func (c coercer) str(key, def string) string {
	v, present := c.obj[key]
	if !present {
		return def
	}
	s, ok := v.(string)
	if !ok {
		c.res.add(key, ReasonInvalidType)
		return def
	}
	return s
}

func (c coercer) boolean(key string, def bool) bool {
	v, present := c.obj[key]
	if !present {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		c.res.add(key, ReasonInvalidType)
		return def
	}
	return b
}

func (c coercer) enum(key, def string, allowed []string) string {
	v, present := c.obj[key]
	if !present {
		return def
	}
	s, ok := v.(string)
	if !ok {
		c.res.add(key, ReasonInvalidType)
		return def
	}
	if !contains(allowed, s) {
		c.res.add(key, ReasonInvalidValue)
		return def
	}
	return s
}

func (c coercer) strList(key string, def []string) []string {
	v, present := c.obj[key]
	if !present {
		return def
	}
	items, ok := v.([]any)
	if !ok {
		c.res.add(key, ReasonInvalidType)
		return def
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) != len(items) {
		c.res.add(key, ReasonDroppedEntries)
	}
	return out
}

func (c coercer) loveNotes(def []LoveNote) []LoveNote {
	if v, present := c.obj["loveNotes"]; present {
		items, ok := v.([]any)
		if !ok {
			c.res.add("loveNotes", ReasonInvalidType)
			return def
		}
		out := make([]LoveNote, 0, len(items))
		for _, it := range items {
			if n, ok := loveNoteFrom(it); ok {
				out = append(out, n)
			}
		}
		if len(out) != len(items) {
			c.res.add("loveNotes", ReasonDroppedEntries)
		}
		return out
	}

	legacy, present := c.obj["loveNote"]
	if !present {
		return def
	}
	if s, ok := legacy.(string); ok {
		title := ""
		if len(def) > 0 {
			title = def[0].Title
		}
		c.res.add("loveNote", ReasonLegacyField)
		return []LoveNote{{Title: title, Body: s}}
	}
	if n, ok := loveNoteFrom(legacy); ok {
		c.res.add("loveNote", ReasonLegacyField)
		return []LoveNote{n}
	}
	c.res.add("loveNote", ReasonInvalidType)
	return def
}

func loveNoteFrom(v any) (LoveNote, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return LoveNote{}, false
	}
	title, ok := m["title"].(string)
	if !ok {
		return LoveNote{}, false
	}
	n := LoveNote{Title: title}
	if b, present := m["body"]; present {
		body, ok := b.(string)
		if !ok {
			return LoveNote{}, false
		}
		n.Body = body
	}
	return n, true
}

func (c coercer) photos(def []Photo) []Photo {
	v, present := c.obj["photos"]
	if !present {
		return def
	}
	items, ok := v.([]any)
	if !ok {
		c.res.add("photos", ReasonInvalidType)
		return def
	}

	out := make([]Photo, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		p, ok := photoFrom(it, i)
		if !ok || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	if len(out) != len(items) {
		c.res.add("photos", ReasonDroppedEntries)
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Order < out[b].Order })
	return out
}

func photoFrom(v any, index int) (Photo, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Photo{}, false
	}
	id, ok := m["id"].(string)
	if !ok || id == "" {
		return Photo{}, false
	}
	p := Photo{ID: id, Order: float64(index)}
	if s, present := m["src"]; present && s != nil {
		src, ok := s.(string)
		if !ok {
			return Photo{}, false
		}
		p.Src = src
	}
	if o, ok := number(m["order"]); ok {
		p.Order = o
	}
	return p, true
}

func (c coercer) music(def *Music) *Music {
	v, present := c.obj["music"]
	if !present {
		return def
	}
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		c.res.add("music", ReasonInvalidType)
		return def
	}
	url, okURL := m["url"].(string)
	name, okName := m["name"].(string)
	if !okURL || !okName || url == "" {
		c.res.add("music", ReasonInvalidValue)
		return def
	}
	out := &Music{URL: url, Name: name}
	if mt, present := m["mimeType"]; present && mt != nil {
		s, ok := mt.(string)
		if !ok {
			c.res.add("music", ReasonInvalidValue)
			return def
		}
		out.MimeType = s
	}
	if d, present := m["duration"]; present && d != nil {
		dur, ok := number(d)
		if !ok || dur < 0 {
			c.res.add("music", ReasonInvalidValue)
			return def
		}
		out.Duration = &dur
	}
	return out
}

func (c coercer) sectionOrder(def []string) []string {
	v, present := c.obj["sectionOrder"]
	if !present {
		if isSectionPermutation(def) {
			return def
		}
		return DefaultSectionOrder()
	}
	items, ok := v.([]any)
	if !ok {
		c.res.add("sectionOrder", ReasonInvalidType)
		return DefaultSectionOrder()
	}
	order := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			c.res.add("sectionOrder", ReasonInvalidValue)
			return DefaultSectionOrder()
		}
		order = append(order, s)
	}
	if !isSectionPermutation(order) {
		c.res.add("sectionOrder", ReasonInvalidValue)
		return DefaultSectionOrder()
	}
	return order
}

func isSectionPermutation(order []string) bool {
	if len(order) != 3 {
		return false
	}
	seen := map[string]bool{}
	for _, s := range order {
		switch s {
		case SectionGallery, SectionLoveNote, SectionMoments:
		default:
			return false
		}
		if seen[s] {
			return false
		}
		seen[s] = true
	}
	return true
}

// number accepts finite numerics only.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
