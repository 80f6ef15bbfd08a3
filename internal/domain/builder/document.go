package builder

// Section identifiers. A document's SectionOrder is always a permutation of
// exactly these three.
const (
	SectionGallery  = "gallery"
	SectionLoveNote = "love-note"
	SectionMoments  = "moments"
)

const (
	TitleSmall  = "small"
	TitleNormal = "normal"
	TitleBig    = "big"
)

const (
	MoodNatural = "natural"
	MoodWarm    = "warm"
	MoodDreamy  = "dreamy"
	MoodVintage = "vintage"
)

const (
	IntensitySubtle = "subtle"
	IntensityNormal = "normal"
	IntensityVivid  = "vivid"
)

var (
	TitleSizes            = []string{TitleSmall, TitleNormal, TitleBig}
	PhotoMoods            = []string{MoodNatural, MoodWarm, MoodDreamy, MoodVintage}
	BackgroundIntensities = []string{IntensitySubtle, IntensityNormal, IntensityVivid}

	// Fonts the renderers ship with.
	Fonts = []string{"playfair", "dancing-script", "great-vibes", "lora", "inter", "caveat"}
)

// DefaultSectionOrder returns a fresh copy of the canonical section order.
func DefaultSectionOrder() []string {
	return []string{SectionGallery, SectionLoveNote, SectionMoments}
}

// Document is the customization payload bound to one template. Slices are
// never nil on a coerced document so that it round-trips through JSON.
type Document struct {
	TemplateID string `json:"templateId"`

	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Tagline      string `json:"tagline"`
	ShowSubtitle bool   `json:"showSubtitle"`

	LoveNotes []LoveNote `json:"loveNotes"`

	MomentsTitle string   `json:"momentsTitle"`
	Moments      []string `json:"moments"`

	Photos []Photo `json:"photos"`
	Music  *Music  `json:"music"`

	SelectedFont        string   `json:"selectedFont"`
	TitleSize           string   `json:"titleSize"`
	SectionOrder        []string `json:"sectionOrder"`
	PhotoMood           string   `json:"photoMood"`
	BackgroundIntensity string   `json:"backgroundIntensity"`

	// Palette is only meaningful for templates that declare palettes.
	Palette string `json:"palette,omitempty"`
}

type LoveNote struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Photo order is the display sort key; array position is not.
type Photo struct {
	ID    string  `json:"id"`
	Src   string  `json:"src,omitempty"`
	Order float64 `json:"order"`
}

type Music struct {
	URL      string   `json:"url"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// Clone returns a deep copy so callers can mutate defaults safely.
func (d Document) Clone() Document {
	out := d
	out.LoveNotes = append(make([]LoveNote, 0, len(d.LoveNotes)), d.LoveNotes...)
	out.Moments = append(make([]string, 0, len(d.Moments)), d.Moments...)
	out.Photos = append(make([]Photo, 0, len(d.Photos)), d.Photos...)
	out.SectionOrder = append(make([]string, 0, len(d.SectionOrder)), d.SectionOrder...)
	if d.Music != nil {
		m := *d.Music
		if d.Music.Duration != nil {
			dur := *d.Music.Duration
			m.Duration = &dur
		}
		out.Music = &m
	}
	return out
}
