package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/tendril/pkg/models"
)

func TestFilterApply(t *testing.T) {
	f := NewFilter()

	ref := models.ProductAttributes{
		PackageCount: intPtr(60),
	}

	candidates := []models.ListingCandidate{
		{SourceID: "c1", Attributes: models.ProductAttributes{PackageCount: intPtr(60)}},
		{SourceID: "c2", Attributes: models.ProductAttributes{PackageCount: intPtr(30)}},
		{SourceID: "c3", Attributes: models.ProductAttributes{}},
		{SourceID: "c4", Attributes: models.ProductAttributes{PackageCount: intPtr(60), Quantity: intPtr(1)}},
		{SourceID: "c5", Attributes: models.ProductAttributes{PackageCount: intPtr(60), Quantity: intPtr(2)}},
	}

	kept := f.Apply(ref, candidates)

	require.Len(t, kept, 2)
	assert.Equal(t, "c1", kept[0].SourceID)
	// Absent quantity defaults to 1 on both sides, so c4 survives and the
	// two-bottle listing c5 does not.
	assert.Equal(t, "c4", kept[1].SourceID)
}

func TestFilterApplyAbsentCount(t *testing.T) {
	f := NewFilter()

	candidates := []models.ListingCandidate{
		{SourceID: "c1", Attributes: models.ProductAttributes{}},
		{SourceID: "c2", Attributes: models.ProductAttributes{PackageCount: intPtr(60)}},
	}

	// A reference with no count token only matches candidates with no count
	// token.
	kept := f.Apply(models.ProductAttributes{}, candidates)

	require.Len(t, kept, 1)
	assert.Equal(t, "c1", kept[0].SourceID)
}

func TestFilterApplyEmpty(t *testing.T) {
	f := NewFilter()

	assert.Empty(t, f.Apply(models.ProductAttributes{PackageCount: intPtr(60)}, nil))
}

func intPtr(v int) *int {
	return &v
}
