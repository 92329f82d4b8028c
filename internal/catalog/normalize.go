package catalog

// normalize.go turns one raw header-keyed row into a canonical CatalogRow.
//
// Manufacturer exports are messy: headers vary in casing and naming, prices
// arrive malformed, and some exports carry a UTF-7 mojibake artifact in style
// names. Normalization recovers all of that locally with defaults instead of
// failing rows; the only lossy filter is dropping rows without a code.

import (
	"strings"

	"github.com/shopspring/decimal"
)

// styleArtifact is a UTF-7 encoding leftover ("+AC0-" for "-") seen in
// catalog exports from certain manufacturer tooling.
const styleArtifact = "+AC0-"

// Header aliases per field, tried in order. Matching is case-insensitive, so
// "Item", "ITEM" and "item" all resolve the code field.
var (
	codeAliases         = []string{"item", "code"}
	styleAliases        = []string{"style"}
	descriptionAliases  = []string{"description"}
	colorAliases        = []string{"color"}
	typeAliases         = []string{"type"}
	priceAliases        = []string{"price"}
	discontinuedAliases = []string{"discontinued"}
)

// Normalize converts a raw row into a CatalogRow. The second return value is
// false when the row has no code after trimming; such rows are deliberately
// excluded from ingestion rather than treated as errors.
func Normalize(raw map[string]string) (CatalogRow, bool) {
	fields := lowerKeys(raw)

	code := strings.TrimSpace(lookup(fields, codeAliases))
	if code == "" {
		return CatalogRow{}, false
	}

	return CatalogRow{
		Code:         code,
		Style:        optional(CleanStyle(lookup(fields, styleAliases))),
		Description:  optional(strings.TrimSpace(lookup(fields, descriptionAliases))),
		Color:        optional(strings.TrimSpace(lookup(fields, colorAliases))),
		Type:         optional(strings.TrimSpace(lookup(fields, typeAliases))),
		Price:        parsePrice(lookup(fields, priceAliases)),
		Discontinued: parseDiscontinued(lookup(fields, discontinuedAliases)),
	}, true
}

// CleanStyle strips the known mojibake artifact and surrounding whitespace
// from a style value.
func CleanStyle(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, styleArtifact, "-"))
}

// parsePrice coerces a raw price to a decimal, defaulting to zero on parse
// failure. A bad price never fails the row.
func parsePrice(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseDiscontinued accepts "yes", "1" and "true" (case-insensitive) as true.
// Everything else, including absence, is false.
func parseDiscontinued(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "1", "true":
		return true
	default:
		return false
	}
}

func lowerKeys(raw map[string]string) map[string]string {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return fields
}

func lookup(fields map[string]string, aliases []string) string {
	for _, a := range aliases {
		if v, ok := fields[a]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// optional maps an empty string to nil, preserving the null/empty distinction
// in persisted rows.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
