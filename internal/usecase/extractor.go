package usecase

import (
	"github.com/rs/zerolog"

	"github.com/compario/backend/internal/domain"
)

// Extractor derives a product identity from a raw annotation payload
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor creates a new attribute extractor
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger.With().Str("component", "extractor").Logger()}
}

// Extract never fails: missing categories leave the matching attributes
// empty and the display name falls back to "Unknown Product".
func (e *Extractor) Extract(payload *domain.AnnotationPayload) *domain.ProductIdentification {
	result := domain.NewProductIdentification()
	if payload == nil {
		return result
	}

	brand, brandSource := extractBrand(payload)
	model := extractModel(payload)
	size := extractSize(payload)
	color := extractColor(payload)

	var fallback, fallbackSource string
	if model == "" {
		fallback, fallbackSource = fallbackName(payload)
	}

	result.DisplayName = buildDisplayName(brand, model, size, fallback)
	result.Brand = optional(brand)
	result.Model = optional(model)
	result.Size = optional(size)
	result.Color = optional(color)
	result.Logos = projectLogos(payload)
	result.Labels = projectLabels(payload)
	result.Objects = projectObjects(payload)
	result.ExtractedText = payload.FullText()
	result.Confidence = confidence(payload)

	e.logger.Debug().
		Str("product_name", result.DisplayName).
		Str("brand", brand).
		Str("brand_source", brandSource).
		Str("model", model).
		Str("size", size).
		Str("color", color).
		Str("name_source", fallbackSource).
		Float64("confidence", result.Confidence).
		Msg("attributes extracted")

	return result
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
