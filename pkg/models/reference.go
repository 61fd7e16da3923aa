package models

// ProductAttributes holds the attributes parsed out of a free-text product
// name. A nil field means the attribute could not be recognized; absence is
// not an error.
type ProductAttributes struct {
	Brand        *string `json:"brand,omitempty"`
	PackageCount *int    `json:"package_count,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
}

// QuantityOrDefault returns the parsed quantity, defaulting to 1 when the
// name carried no multiplier token.
func (a ProductAttributes) QuantityOrDefault() int {
	if a.Quantity == nil {
		return 1
	}
	return *a.Quantity
}

// ReferenceItem is a catalog entry the pipeline resolves against the
// marketplace. Immutable for the duration of a run.
type ReferenceItem struct {
	ID         string            `json:"id"`
	RawName    string            `json:"raw_name"`
	ImageURL   string            `json:"image_url,omitempty"`
	Attributes ProductAttributes `json:"attributes"`
}

// ListingCandidate is a single marketplace search hit. Candidates live only
// within one search; they are never persisted as-is.
type ListingCandidate struct {
	SourceID    string            `json:"source_id"`
	RawName     string            `json:"raw_name"`
	Attributes  ProductAttributes `json:"attributes"`
	Price       int64             `json:"price"`
	ShippingFee int64             `json:"shipping_fee"`
	FinalPrice  int64             `json:"final_price"`
	Rank        int               `json:"rank"`
	URL         string            `json:"url,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
}
