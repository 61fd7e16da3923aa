// Package matching implements the attribute gate and candidate selection for
// resolving reference items against marketplace listings.
package matching

import "github.com/Ramsey-B/tendril/pkg/models"

// Filter is the hard attribute gate applied before any judgment. A candidate
// either matches the reference's package count and quantity exactly or it is
// discarded; there is no partial credit.
type Filter struct{}

// NewFilter creates the attribute filter
func NewFilter() *Filter {
	return &Filter{}
}

// Apply keeps only the candidates whose package count equals the reference's
// and whose quantity (defaulting to 1 when absent on either side) equals the
// reference's.
func (f *Filter) Apply(ref models.ProductAttributes, candidates []models.ListingCandidate) []models.ListingCandidate {
	refQuantity := ref.QuantityOrDefault()

	var kept []models.ListingCandidate
	for _, candidate := range candidates {
		if !intPtrEqual(candidate.Attributes.PackageCount, ref.PackageCount) {
			continue
		}
		if candidate.Attributes.QuantityOrDefault() != refQuantity {
			continue
		}
		kept = append(kept, candidate)
	}

	return kept
}

// intPtrEqual treats two absent values as equal: a candidate with no count
// token can still match a reference with no count token.
func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
