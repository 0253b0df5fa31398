package domain

// AnnotationPayload is the raw, provider-specific detection output for one image.
// Field names follow the Google Vision images:annotate response so that
// adapters can decode straight into it.
type AnnotationPayload struct {
	Labels     []LabelAnnotation `json:"labelAnnotations,omitempty"`
	Objects    []LocalizedObject `json:"localizedObjectAnnotations,omitempty"`
	Logos      []LogoAnnotation  `json:"logoAnnotations,omitempty"`
	TextBlocks []TextAnnotation  `json:"textAnnotations,omitempty"`
	Web        *WebDetection     `json:"webDetection,omitempty"`
	Error      *AnnotationError  `json:"error,omitempty"`
}

// LabelAnnotation is a free-text tag with a score in [0,1]
type LabelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// LocalizedObject is a detected item with a bounding region
type LocalizedObject struct {
	Name         string        `json:"name"`
	Score        float64       `json:"score"`
	BoundingPoly *BoundingPoly `json:"boundingPoly,omitempty"`
}

// BoundingPoly holds the normalized vertices of a detected region (unused downstream)
type BoundingPoly struct {
	NormalizedVertices []Vertex `json:"normalizedVertices,omitempty"`
}

// Vertex is a normalized 2D point
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LogoAnnotation is a detected brand logo
type LogoAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// TextAnnotation is a block of detected text. The first block of a payload
// holds the full concatenated text; the rest are individual tokens.
type TextAnnotation struct {
	Description string `json:"description"`
	Locale      string `json:"locale,omitempty"`
}

// WebDetection groups web entity and page matches
type WebDetection struct {
	Entities      []WebEntity `json:"webEntities,omitempty"`
	MatchingPages []WebPage   `json:"pagesWithMatchingImages,omitempty"`
}

// WebEntity is an entity inferred from similar images on the web
type WebEntity struct {
	EntityID    string  `json:"entityId,omitempty"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// WebPage is a page containing a matching image
type WebPage struct {
	URL       string `json:"url"`
	PageTitle string `json:"pageTitle"`
}

// AnnotationError is a per-image error reported inside a successful response
type AnnotationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FullText returns the concatenated text block, or "" when no text was detected
func (p *AnnotationPayload) FullText() string {
	if p == nil || len(p.TextBlocks) == 0 {
		return ""
	}
	return p.TextBlocks[0].Description
}

// WebEntities returns the web entities, or nil when web detection is absent
func (p *AnnotationPayload) WebEntities() []WebEntity {
	if p == nil || p.Web == nil {
		return nil
	}
	return p.Web.Entities
}

// MatchingPages returns pages with matching images, or nil when web detection is absent
func (p *AnnotationPayload) MatchingPages() []WebPage {
	if p == nil || p.Web == nil {
		return nil
	}
	return p.Web.MatchingPages
}
