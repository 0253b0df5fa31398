package usecase

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/compario/backend/internal/domain"
)

// extractBrand resolves the brand from logos, then text, then labels.
func extractBrand(p *domain.AnnotationPayload) (string, string) {
	if len(p.Logos) > 0 {
		if name := strings.TrimSpace(p.Logos[0].Description); name != "" {
			return normalizeBrand(name), "logo"
		}
	}

	if text := p.FullText(); text != "" {
		for _, re := range brandTextPatterns {
			if m := re.FindStringSubmatch(text); m != nil {
				return normalizeBrand(m[1]), "text"
			}
		}
	}

	labels := firstLabels(p, labelScanLimit)
	for _, keyword := range labelBrandKeywords {
		for _, label := range labels {
			if strings.Contains(label, keyword) {
				return normalizeBrand(keyword), "label"
			}
		}
	}

	return "", ""
}

// normalizeBrand maps sub-brands to their parent and tidies capitalization.
func normalizeBrand(brand string) string {
	brand = strings.TrimSpace(brand)
	lower := strings.ToLower(brand)

	if parent, ok := subBrandParents[lower]; ok {
		return parent
	}
	if canonical, ok := canonicalBrands[lower]; ok {
		return canonical
	}
	return capitalize(brand)
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func extractModel(p *domain.AnnotationPayload) string {
	text := p.FullText()
	if text == "" {
		return ""
	}
	for _, re := range modelPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// extractSize collects storage, screen and dimension candidates in that
// order and keeps the first two.
func extractSize(p *domain.AnnotationPayload) string {
	text := p.FullText()
	if text == "" {
		return ""
	}

	var sizes []string
	for _, m := range storagePattern.FindAllStringSubmatch(text, -1) {
		sizes = append(sizes, fmt.Sprintf("%s %s", m[1], strings.ToUpper(m[2])))
	}
	for _, m := range screenPattern.FindAllStringSubmatch(text, -1) {
		sizes = append(sizes, m[1]+`"`)
	}
	for _, m := range dimensionPattern.FindAllStringSubmatch(text, -1) {
		sizes = append(sizes, m[1]+strings.ToLower(m[2]))
	}

	if len(sizes) == 0 {
		return ""
	}
	if len(sizes) > maxSizeCandidates {
		sizes = sizes[:maxSizeCandidates]
	}
	return strings.Join(sizes, ", ")
}

func extractColor(p *domain.AnnotationPayload) string {
	labels := firstLabels(p, labelScanLimit)
	for _, color := range colorKeywords {
		for _, label := range labels {
			if strings.Contains(label, color) {
				return capitalize(color)
			}
		}
	}

	text := strings.ToLower(p.FullText())
	if text == "" {
		return ""
	}
	for i, re := range colorTextPatterns {
		if re.MatchString(text) {
			return capitalize(colorKeywords[i])
		}
	}
	return ""
}

// confidence is the best object or label score as a percentage, 2 dp.
func confidence(p *domain.AnnotationPayload) float64 {
	best := 0.0
	for _, obj := range p.Objects {
		best = math.Max(best, obj.Score)
	}
	for _, label := range p.Labels {
		best = math.Max(best, label.Score)
	}
	return roundPercent(best)
}

func roundPercent(score float64) float64 {
	return math.Round(score*100*100) / 100
}

func projectLogos(p *domain.AnnotationPayload) []domain.ScoredName {
	out := make([]domain.ScoredName, 0, len(p.Logos))
	for _, logo := range p.Logos {
		out = append(out, domain.ScoredName{Name: logo.Description, Score: logo.Score})
	}
	return out
}

func projectLabels(p *domain.AnnotationPayload) []string {
	out := make([]string, 0, len(p.Labels))
	for _, label := range p.Labels {
		if label.Description != "" {
			out = append(out, label.Description)
		}
	}
	return out
}

func projectObjects(p *domain.AnnotationPayload) []domain.ScoredName {
	out := make([]domain.ScoredName, 0, len(p.Objects))
	for _, obj := range p.Objects {
		out = append(out, domain.ScoredName{Name: obj.Name, Score: obj.Score})
	}
	return out
}

// firstLabels returns up to n lowercase label descriptions.
func firstLabels(p *domain.AnnotationPayload, n int) []string {
	if len(p.Labels) < n {
		n = len(p.Labels)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = strings.ToLower(p.Labels[i].Description)
	}
	return out
}
