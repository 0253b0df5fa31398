package domain

// UnknownProduct is the display name used when nothing could be identified
const UnknownProduct = "Unknown Product"

// ProductIdentification is the normalized product identity derived from one image
type ProductIdentification struct {
	DisplayName   string       `json:"product_name"`
	Brand         *string      `json:"brand"`
	Model         *string      `json:"model"`
	Size          *string      `json:"size"`
	Color         *string      `json:"color"`
	Logos         []ScoredName `json:"logos"`
	Labels        []string     `json:"labels"`
	Objects       []ScoredName `json:"objects"`
	ExtractedText string       `json:"extracted_text"`
	Confidence    float64      `json:"confidence"` // 0-100
	Source        string       `json:"source,omitempty"`
	Note          string       `json:"note,omitempty"`
}

// ScoredName is a detection name with its score in [0,1]
type ScoredName struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// NewProductIdentification returns an identification with non-nil sequences
// and the unknown display name.
func NewProductIdentification() *ProductIdentification {
	return &ProductIdentification{
		DisplayName: UnknownProduct,
		Logos:       []ScoredName{},
		Labels:      []string{},
		Objects:     []ScoredName{},
	}
}

// Vision provider names as they appear in logs, cache keys and responses
const (
	ProviderSimple      = "simple"
	ProviderGoogle      = "google"
	ProviderAzure       = "azure"
	ProviderHuggingFace = "huggingface"
)
