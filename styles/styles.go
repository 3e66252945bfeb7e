package styles

import "fmt"

// Descriptor is static reference data for one selectable visual
// transformation. PresetKey is a provider-specific identifier (for example
// a style-transfer SaaS style id) and may be empty.
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PresetKey   string `json:"-"`
	Prompt      string `json:"-"`
}

// Table is an immutable style lookup built once at startup and injected
// into the providers that need it.
type Table struct {
	ordered []Descriptor
	byID    map[string]Descriptor
}

func NewTable(descriptors []Descriptor) *Table {
	byID := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		byID[d.ID] = d
	}
	return &Table{ordered: descriptors, byID: byID}
}

func (t *Table) List() []Descriptor {
	out := make([]Descriptor, len(t.ordered))
	copy(out, t.ordered)
	return out
}

func (t *Table) Lookup(id string) (Descriptor, bool) {
	d, ok := t.byID[id]
	return d, ok
}

// PromptFor maps a known style id to its instruction text. Anything else is
// treated as free text and wrapped in a generic instruction.
func (t *Table) PromptFor(styleOrPrompt string) string {
	if d, ok := t.byID[styleOrPrompt]; ok && d.Prompt != "" {
		return d.Prompt
	}
	return fmt.Sprintf("Transform the image into %s style.", styleOrPrompt)
}

// DisplayName returns the human-readable name for a style id, or the id
// itself when it is not in the table.
func (t *Table) DisplayName(id string) string {
	if d, ok := t.byID[id]; ok {
		return d.Name
	}
	return id
}

// Defaults is the built-in style catalog.
func Defaults() []Descriptor {
	return []Descriptor{
		{
			ID:          "anime",
			Name:        "Anime",
			Description: "Japanese anime look with vivid colors and clean lines",
			Prompt:      "Convert the image into Japanese anime style with vivid colors and clean line work.",
		},
		{
			ID:          "cartoon",
			Name:        "Cartoon",
			Description: "Western cartoon with exaggerated features",
			Prompt:      "Convert the image into a western cartoon style with exaggerated features and bold colors.",
		},
		{
			ID:          "oil_painting",
			Name:        "Oil Painting",
			Description: "Classic oil painting with visible brush strokes",
			Prompt:      "Convert the image into a classic oil painting with visible brush strokes and rich layered colors.",
		},
		{
			ID:          "watercolor",
			Name:        "Watercolor",
			Description: "Soft watercolor with blended edges",
			Prompt:      "Convert the image into a soft watercolor style with natural color transitions and blurred edges.",
		},
		{
			ID:          "sketch",
			Name:        "Sketch",
			Description: "Black and white pencil sketch",
			Prompt:      "Convert the image into a black and white pencil sketch emphasizing lines and light contrast.",
		},
		{
			ID:          "realistic",
			Name:        "Realistic",
			Description: "Enhanced photorealistic detail",
			Prompt:      "Enhance the image into a hyper-realistic style with rich detail and lifelike lighting.",
		},
		{
			ID:          "fantasy",
			Name:        "Fantasy",
			Description: "Magical, dreamlike atmosphere",
			Prompt:      "Add magical and fantastical elements to the image, creating a dreamlike atmosphere.",
		},
		{
			ID:          "cyberpunk",
			Name:        "Cyberpunk",
			Description: "Neon lights and dark futuristic tech",
			Prompt:      "Convert the image into a cyberpunk style full of neon lights, futuristic technology and dark tones.",
		},
		{
			ID:          "vintage",
			Name:        "Vintage",
			Description: "Retro filter and nostalgic tones",
			Prompt:      "Apply a retro filter and nostalgic color grading so the image looks like an old photograph.",
		},
		{
			ID:          "modern",
			Name:        "Modern",
			Description: "Abstract or minimalist modern art",
			Prompt:      "Convert the image into a modern art style, abstract or minimalist.",
		},
		{
			ID:          "kandinsky",
			Name:        "Kandinsky",
			Description: "Abstract art in the manner of Kandinsky",
			PresetKey:   "873",
			Prompt:      "Convert the image into an abstract art style inspired by Kandinsky, with geometric shapes and vibrant colors.",
		},
	}
}
