package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/compario/backend/internal/domain"
)

// nameStep is one stage of the fallback name waterfall.
type nameStep struct {
	source string
	find   func(*domain.AnnotationPayload) string
}

// fallbackSteps run in order when no model was found; the first non-empty
// result wins.
var fallbackSteps = []nameStep{
	{"object", bestObjectName},
	{"text_pattern", longestProductSpan},
	{"text_token", brandTokenName},
	{"web_entity", webEntityName},
	{"page_title", pageTitleName},
	{"label", labelName},
	{"last_resort", lastResortName},
}

// buildDisplayName joins brand, model (or the fallback name) and size.
func buildDisplayName(brand, model, size, fallback string) string {
	var parts []string

	if brand != "" {
		parts = append(parts, brand)
	}

	switch {
	case model != "" && brand != "" && strings.Contains(strings.ToLower(model), strings.ToLower(brand)):
		if stripped := stripFold(model, brand); stripped != "" {
			parts = append(parts, stripped)
		}
	case model != "":
		parts = append(parts, model)
	case fallback != "":
		parts = append(parts, fallback)
	}

	if size != "" {
		parts = append(parts, "("+size+")")
	}

	if len(parts) == 0 {
		return domain.UnknownProduct
	}
	return strings.Join(parts, " ")
}

// stripFold removes every case-insensitive occurrence of sub from s and
// collapses the whitespace left behind.
func stripFold(s, sub string) string {
	if sub == "" {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		if i+len(sub) <= len(s) && strings.EqualFold(s[i:i+len(sub)], sub) {
			b.WriteByte(' ')
			i += len(sub)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// fallbackName runs the waterfall and reports which step produced the name.
func fallbackName(p *domain.AnnotationPayload) (string, string) {
	for _, step := range fallbackSteps {
		if name := step.find(p); name != "" {
			return name, step.source
		}
	}
	return "", ""
}

// bestObjectName returns the highest scored object's name; ties keep the first.
func bestObjectName(p *domain.AnnotationPayload) string {
	if len(p.Objects) == 0 {
		return ""
	}
	best := p.Objects[0]
	for _, obj := range p.Objects[1:] {
		if obj.Score > best.Score {
			best = obj
		}
	}
	return best.Name
}

// hasTokenBlocks reports whether OCR produced the full text plus at least
// one word block.
func hasTokenBlocks(p *domain.AnnotationPayload) bool {
	return len(p.TextBlocks) > 1
}

// longestProductSpan returns the longest span matched by any product name
// pattern. Equal lengths keep the earliest found.
func longestProductSpan(p *domain.AnnotationPayload) string {
	if !hasTokenBlocks(p) {
		return ""
	}
	text := p.FullText()

	best, bestLen := "", 0
	for _, re := range productNamePatterns {
		for _, m := range re.FindAllString(text, -1) {
			candidate := strings.TrimSpace(m)
			if n := utf8.RuneCountInString(candidate); n > bestLen {
				best, bestLen = candidate, n
			}
		}
	}
	return best
}

// brandTokenName scans whitespace tokens for the first one that looks like a
// brand and grows it into a short name.
func brandTokenName(p *domain.AnnotationPayload) string {
	if !hasTokenBlocks(p) {
		return ""
	}
	tokens := strings.Fields(p.FullText())

	for i, token := range tokens {
		brand := matchTokenBrand(token)
		if brand == "" {
			continue
		}

		end := i + tokenWindow
		if end > len(tokens) {
			end = len(tokens)
		}
		candidate := strings.TrimSpace(candidateJunk.ReplaceAllString(strings.Join(tokens[i:end], " "), ""))
		if utf8.RuneCountInString(candidate) > utf8.RuneCountInString(brand) {
			return candidate
		}

		if i+1 < len(tokens) {
			next := tokens[i+1]
			if modelNumberToken.MatchString(next) || modelSuffixTokens[strings.ToLower(next)] {
				return brand + " " + next
			}
		}
	}
	return ""
}

// matchTokenBrand returns the first brand keyword that contains the token
// or is contained in it, ignoring case.
func matchTokenBrand(token string) string {
	lower := strings.ToLower(token)
	if lower == "" {
		return ""
	}
	for _, brand := range tokenBrandKeywords {
		brandLower := strings.ToLower(brand)
		if strings.Contains(lower, brandLower) || strings.Contains(brandLower, lower) {
			return brand
		}
	}
	return ""
}

func webEntityName(p *domain.AnnotationPayload) string {
	entities := p.WebEntities()
	if len(entities) > webScanLimit {
		entities = entities[:webScanLimit]
	}
	for _, entity := range entities {
		desc := strings.TrimSpace(entity.Description)
		if utf8.RuneCountInString(desc) <= 2 {
			continue
		}
		if !containsAny(strings.ToLower(desc), webGenericTerms) {
			return desc
		}
	}
	return ""
}

func pageTitleName(p *domain.AnnotationPayload) string {
	pages := p.MatchingPages()
	if len(pages) > webScanLimit {
		pages = pages[:webScanLimit]
	}
	for _, page := range pages {
		title := strings.TrimSpace(page.PageTitle)
		if utf8.RuneCountInString(title) <= 3 {
			continue
		}
		name := cleanPageTitle(title)
		if utf8.RuneCountInString(name) <= 3 {
			continue
		}
		if hasDigit.MatchString(name) || containsAny(name, pageTitleBrands) {
			return name
		}
	}
	return ""
}

// cleanPageTitle cuts a storefront page title down to the product name.
func cleanPageTitle(title string) string {
	for _, sep := range pageTitleSeparators {
		title, _, _ = strings.Cut(title, sep)
	}

	for _, store := range storefrontNames {
		if strings.HasPrefix(title, store) {
			title = strings.Trim(strings.TrimPrefix(title, store), " -:|")
		}
	}

	for _, suffix := range pageTitleSuffixes {
		title, _, _ = strings.Cut(title, suffix)
	}
	return strings.TrimSpace(title)
}

func labelName(p *domain.AnnotationPayload) string {
	for _, label := range p.Labels {
		desc := strings.TrimSpace(label.Description)
		if utf8.RuneCountInString(desc) <= 2 {
			continue
		}
		lower := strings.ToLower(desc)
		if labelSkipTerms[lower] {
			continue
		}
		if containsAny(lower, labelBrandIndicators) {
			return desc
		}
		if looksLikeProductLabel(desc, lower) && !overGenericDeviceLabels[lower] {
			return desc
		}
	}
	return ""
}

func looksLikeProductLabel(desc, lower string) bool {
	first, _ := utf8.DecodeRuneInString(desc)
	return unicode.IsUpper(first) ||
		strings.Contains(desc, " ") ||
		containsAny(lower, labelDeviceTerms)
}

// lastResortName returns the top label unless it is generic, else the first
// web entity.
func lastResortName(p *domain.AnnotationPayload) string {
	if len(p.Labels) > 0 && p.Labels[0].Description != "" {
		top := p.Labels[0].Description
		if !labelSkipTerms[strings.ToLower(top)] {
			return top
		}
	}
	if entities := p.WebEntities(); len(entities) > 0 {
		return entities[0].Description
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
