// Package simple guesses a coarse product category from image geometry.
// It needs no credentials and never fails.
package simple

import (
	"bytes"
	"context"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/compario/backend/internal/domain"
)

const (
	wideRatio = 1.5
	tallRatio = 0.7

	confidence = 50.0

	// Note is attached to every result
	Note = "Using basic detection. For better results, configure Hugging Face or Google Vision API."
)

// Category names
const (
	CategoryMobile   = "Smartphone or Mobile Device"
	CategoryComputer = "Laptop or Tablet"
	CategoryGeneric  = "Product"
)

// Detector is the local last-resort provider
type Detector struct {
	logger zerolog.Logger
}

// NewDetector creates a new local detector
func NewDetector(logger zerolog.Logger) *Detector {
	return &Detector{logger: logger.With().Str("provider", domain.ProviderSimple).Logger()}
}

// Name returns the provider name
func (d *Detector) Name() string {
	return domain.ProviderSimple
}

// DetectProduct classifies by aspect ratio. Undecodable images are reported
// as a generic product.
func (d *Detector) DetectProduct(ctx context.Context, image []byte) (*domain.ProductIdentification, error) {
	name := CategoryGeneric

	img, err := imaging.Decode(bytes.NewReader(image))
	if err != nil {
		d.logger.Warn().Err(err).Msg("could not decode image")
	} else {
		bounds := img.Bounds()
		name = Categorize(bounds.Dx(), bounds.Dy())
	}

	result := domain.NewProductIdentification()
	result.DisplayName = name
	result.Labels = []string{strings.ToLower(name)}
	result.Confidence = confidence
	result.Source = domain.ProviderSimple
	result.Note = Note

	d.logger.Info().Str("product_name", name).Msg("simple vision service detected")
	return result, nil
}

// Categorize maps image dimensions to a coarse category
func Categorize(width, height int) string {
	ratio := 1.0
	if height > 0 {
		ratio = float64(width) / float64(height)
	}

	switch {
	case ratio > wideRatio:
		return CategoryMobile
	case ratio < tallRatio:
		return CategoryComputer
	default:
		return CategoryGeneric
	}
}
