package usecase

import "regexp"

// Tables driving attribute extraction. Order is precedence: the first entry
// that matches wins unless noted otherwise.

// brandTextPatterns are matched against the full text block. The captured
// group is passed through normalizeBrand.
var brandTextPatterns = compileAll(
	`(?i)\b(Apple|iPhone|iPad|MacBook|iMac|AirPods)\b`,
	`(?i)\b(Samsung|Galaxy)\b`,
	`(?i)\b(Google|Pixel)\b`,
	`(?i)\b(OnePlus)\b`,
	`(?i)\b(Xiaomi|Redmi|POCO|Mi)\b`,
	`(?i)\b(Realme)\b`,
	`(?i)\b(Oppo)\b`,
	`(?i)\b(Vivo)\b`,
	`(?i)\b(Dell|XPS|Inspiron|Alienware)\b`,
	`(?i)\b(HP|Hewlett[\s-]?Packard)\b`,
	`(?i)\b(Lenovo|ThinkPad|IdeaPad)\b`,
	`(?i)\b(Asus|ROG|ZenBook)\b`,
	`(?i)\b(Acer|Predator|Aspire)\b`,
	`(?i)\b(MSI)\b`,
	`(?i)\b(Razer)\b`,
	`(?i)\b(Sony)\b`,
	`(?i)\b(LG)\b`,
	`(?i)\b(Nokia)\b`,
	`(?i)\b(Motorola)\b`,
)

// labelBrandKeywords are searched for inside the first labelScanLimit labels.
var labelBrandKeywords = []string{
	"apple", "samsung", "google", "oneplus", "xiaomi",
	"dell", "hp", "lenovo", "asus", "acer",
}

// subBrandParents maps product lines to the company that makes them.
var subBrandParents = map[string]string{
	"iphone":    "Apple",
	"ipad":      "Apple",
	"macbook":   "Apple",
	"imac":      "Apple",
	"airpods":   "Apple",
	"galaxy":    "Samsung",
	"xps":       "Dell",
	"inspiron":  "Dell",
	"alienware": "Dell",
	"thinkpad":  "Lenovo",
	"ideapad":   "Lenovo",
	"rog":       "Asus",
	"zenbook":   "Asus",
	"predator":  "Acer",
	"aspire":    "Acer",
	"pixel":     "Google",
	"redmi":     "Xiaomi",
	"poco":      "Xiaomi",
	"mi":        "Xiaomi",
}

// canonicalBrands keeps the house spelling of brands that plain
// capitalization would mangle.
var canonicalBrands = map[string]string{
	"hp":              "HP",
	"hewlett packard": "HP",
	"hewlett-packard": "HP",
	"hewlettpackard":  "HP",
	"lg":              "LG",
	"msi":             "MSI",
	"oneplus":         "OnePlus",
}

// modelPatterns are matched against the full text block.
var modelPatterns = compileAll(
	`(?i)(iPhone\s*(?:SE|Mini|Pro|Plus|Max)?\s*\d+[A-Z]*)`,
	`(?i)(Galaxy\s*(?:S|Note|A|Z|Fold|Flip)\s*\d+[A-Z]*(?:\s*Ultra|Plus)?)`,
	`(?i)(Pixel\s*\d+[A-Z]*(?:\s*Pro)?)`,
	`(?i)(OnePlus\s*\d+[A-Z]*(?:\s*Pro|T)?)`,
	`(?i)(MacBook\s*(?:Pro|Air)?\s*\d+[A-Z]*)`,
	`(?i)(iPad\s*(?:Pro|Air|Mini)?\s*\d+[A-Z]*)`,
	`(?i)((?:XPS|Inspiron|Alienware|ThinkPad|IdeaPad|ROG|ZenBook|Predator|Aspire)\s*\d+[A-Z]*)`,
)

// Size patterns, one per category. Candidates are collected storage first,
// then screen, then dimension.
var (
	storagePattern   = regexp.MustCompile(`(?i)\b(\d+)\s*(GB|TB)\b`)
	screenPattern    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:inches|inch|")`)
	dimensionPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(mm|cm)\b`)
)

// maxSizeCandidates bounds how many size candidates end up in the result.
const maxSizeCandidates = 2

// colorKeywords are checked in list order against labels, then text.
var colorKeywords = []string{
	"black", "white", "silver", "gold", "blue", "red", "green",
	"purple", "pink", "gray", "grey", "space gray", "midnight", "starlight",
}

// colorTextPatterns holds one word-boundary pattern per color keyword.
var colorTextPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(colorKeywords))
	for i, color := range colorKeywords {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(color) + `\b`)
	}
	return out
}()

// labelScanLimit is how many labels brand and color detection look at.
const labelScanLimit = 10

// productNamePatterns are full brand+model spans. Every match of every
// pattern is considered and the longest span wins.
var productNamePatterns = compileAll(
	// Apple
	`(?i)(iPhone\s*(?:SE|Mini|Pro|Plus|Max)?\s*\d+[A-Z]*(?:\s*Pro\s*Max)?)`,
	`(?i)(iPad\s*(?:Pro|Air|Mini)?\s*\d+[A-Z]*)`,
	`(?i)(MacBook\s*(?:Pro|Air)?\s*\d+[A-Z]*)`,
	`(?i)(iMac\s*\d+[A-Z]*)`,
	`(?i)(AirPods\s*(?:Pro|Max)?)`,
	`(?i)(Apple\s*Watch\s*(?:Series\s*)?\d+)`,
	// Samsung
	`(?i)(Samsung\s*Galaxy\s*(?:S|Note|A|Z|Fold|Flip)\s*\d+[A-Z]*(?:\s*Ultra|Plus)?)`,
	`(?i)(Galaxy\s*(?:S|Note|A|Z|Fold|Flip)\s*\d+[A-Z]*(?:\s*Ultra|Plus)?)`,
	// Google
	`(?i)(Google\s*Pixel\s*\d+[A-Z]*(?:\s*Pro)?)`,
	`(?i)(Pixel\s*\d+[A-Z]*(?:\s*Pro)?)`,
	// OnePlus
	`(?i)(OnePlus\s*\d+[A-Z]*(?:\s*Pro|T)?)`,
	// Xiaomi
	`(?i)(Xiaomi\s*(?:Mi|Redmi|POCO)\s*\d+[A-Z]*)`,
	`(?i)(Redmi\s*(?:Note|K)?\s*\d+[A-Z]*)`,
	// Others
	`(?i)(Realme\s*\d+[A-Z]*)`,
	`(?i)(Oppo\s*(?:Reno|Find)?\s*\d+[A-Z]*)`,
	`(?i)(Vivo\s*\d+[A-Z]*)`,
	// Laptops
	`(?i)(Dell\s*(?:XPS|Inspiron|Latitude|Alienware)\s*\d+)`,
	`(?i)(HP\s*(?:Pavilion|Envy|Spectre|Omen)\s*\d+)`,
	`(?i)(Lenovo\s*(?:ThinkPad|IdeaPad|Yoga)\s*\w+)`,
	`(?i)(Asus\s*(?:ROG|ZenBook|VivoBook)\s*\w+)`,
	`(?i)(Acer\s*(?:Predator|Aspire|Nitro)\s*\w+)`,
)

// tokenBrandKeywords drive the whitespace token scan.
var tokenBrandKeywords = []string{
	"iPhone", "Samsung", "Galaxy", "Pixel", "OnePlus", "Xiaomi", "Redmi",
	"MacBook", "iPad", "Dell", "HP", "Lenovo", "Asus", "Acer", "Apple",
	"Google", "Nokia", "Motorola", "Oppo", "Vivo", "Realme", "POCO",
}

// tokenWindow is the number of tokens joined into a candidate name.
const tokenWindow = 4

var (
	modelNumberToken = regexp.MustCompile(`^\d+[A-Z]*$`)
	candidateJunk    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
)

var modelSuffixTokens = map[string]bool{
	"pro": true, "max": true, "plus": true, "ultra": true, "mini": true,
}

// webScanLimit caps how many web entities and matching pages are examined.
const webScanLimit = 5

var webGenericTerms = []string{
	"image", "photo", "picture", "graphics", "illustration", "art",
}

// pageTitleSeparators are applied one after another, keeping the left part.
var pageTitleSeparators = []string{" - ", " | ", " : "}

var storefrontNames = []string{
	"Amazon", "Flipkart", "eBay", "Walmart", "Best Buy", "Target", "Shop",
}

var pageTitleSuffixes = []string{" Buy", " Price", " Online"}

var pageTitleBrands = []string{
	"iPhone", "Samsung", "Galaxy", "Pixel", "OnePlus", "MacBook", "iPad",
}

var hasDigit = regexp.MustCompile(`\d+`)

// labelSkipTerms are generic labels that never name a product.
var labelSkipTerms = map[string]bool{
	"red": true, "blue": true, "green": true, "black": true, "white": true,
	"color": true, "quality": true, "image": true, "photo": true,
	"picture": true, "graphics": true, "illustration": true,
	"mobile phone": true, "smartphone": true, "cell phone": true,
	"telephone": true,
}

var labelBrandIndicators = []string{
	"iphone", "samsung", "galaxy", "pixel", "oneplus", "xiaomi", "redmi",
	"macbook", "ipad", "dell", "hp", "lenovo", "asus", "acer",
}

var labelDeviceTerms = []string{
	"phone", "laptop", "computer", "device", "product", "item",
}

// overGenericDeviceLabels pass the device-term test but say nothing useful.
var overGenericDeviceLabels = map[string]bool{
	"mobile phone": true, "smartphone": true, "cell phone": true,
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
