// Package attributes parses brand, package count and quantity out of
// free-text product names.
package attributes

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Ramsey-B/tendril/pkg/models"
)

// Package-count tokens, matched in order. Integer accepted only in [10,1000].
var countPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)정`),
	regexp.MustCompile(`(\d+)개입`),
	regexp.MustCompile(`(\d+)캡슐`),
	regexp.MustCompile(`(\d+)캡`),
	regexp.MustCompile(`(\d+)베지캡`),
	regexp.MustCompile(`(\d+)소프트젤`),
	regexp.MustCompile(`(\d+)소프트겔`),
	regexp.MustCompile(`(\d+)알`),
	regexp.MustCompile(`(?i)(\d+)\s*tablets?`),
	regexp.MustCompile(`(?i)(\d+)\s*capsules?`),
	regexp.MustCompile(`(?i)(\d+)\s*softgels?`),
}

// Multiplier tokens (bottles/packs), matched in order. Integer accepted in
// [1,20]; anything larger is almost certainly a package count, not a
// multiplier.
var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)개`),
	regexp.MustCompile(`(\d+)병`),
	regexp.MustCompile(`(\d+)팩`),
	regexp.MustCompile(`(?i)(\d+)\s*bottles?`),
	regexp.MustCompile(`(?i)(\d+)\s*packs?`),
}

const (
	minPackageCount = 10
	maxPackageCount = 1000
	minQuantity     = 1
	maxQuantity     = 20
)

// Extractor parses product attributes from raw names and catalog identifiers
type Extractor struct{}

// NewExtractor creates a new attribute extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses the attributes of a product name. When an identifier is
// supplied its brand prefix takes precedence over anything found in the name.
// Unrecognized attributes come back nil.
func (e *Extractor) Extract(rawName string, identifier string) models.ProductAttributes {
	attrs := models.ProductAttributes{
		PackageCount: e.PackageCount(rawName),
		Quantity:     e.Quantity(rawName),
	}

	if brand := e.BrandFromIdentifier(identifier); brand != nil {
		attrs.Brand = brand
		return attrs
	}
	attrs.Brand = e.Brand(rawName)

	return attrs
}

// PackageCount returns the tablet/capsule count found in the name, or nil
func (e *Extractor) PackageCount(text string) *int {
	return firstMatch(text, countPatterns, minPackageCount, maxPackageCount)
}

// Quantity returns the bottle/pack multiplier found in the name, or nil
func (e *Extractor) Quantity(text string) *int {
	return firstMatch(text, quantityPatterns, minQuantity, maxQuantity)
}

// BrandFromIdentifier derives the brand from the identifier's three character
// prefix, or nil when the prefix is unknown
func (e *Extractor) BrandFromIdentifier(identifier string) *string {
	if len(identifier) < 3 {
		return nil
	}

	prefix := strings.ToUpper(identifier[:3])
	if brand, ok := identifierBrandPrefixes[prefix]; ok {
		return &brand
	}
	return nil
}

// Brand scans the lowercased name for a known brand alias. Aliases are tried
// longest-first so "now foods" wins over "now".
func (e *Extractor) Brand(text string) *string {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	for _, alias := range orderedAliases {
		if strings.Contains(lower, alias) {
			brand := brandAliases[alias]
			return &brand
		}
	}
	return nil
}

func firstMatch(text string, patterns []*regexp.Regexp, min, max int) *int {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	for _, pattern := range patterns {
		matches := pattern.FindStringSubmatch(lower)
		if len(matches) < 2 {
			continue
		}
		value, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if value < min || value > max {
			continue
		}
		return &value
	}
	return nil
}
