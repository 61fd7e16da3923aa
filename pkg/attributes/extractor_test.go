package attributes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractorPackageCount(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name     string
		text     string
		expected *int
	}{
		{name: "korean tablet token", text: "비타민C 1000mg 60정", expected: intPtr(60)},
		{name: "korean capsule token", text: "오메가3 120캡슐", expected: intPtr(120)},
		{name: "korean softgel token", text: "루테인 90소프트젤", expected: intPtr(90)},
		{name: "english capsules", text: "Brand X 60 Capsules", expected: intPtr(60)},
		{name: "english tablets no space", text: "Magnesium 180tablets", expected: intPtr(180)},
		{name: "out of range high", text: "Brand X 5000 Capsules", expected: nil},
		{name: "out of range low", text: "샘플 9정", expected: nil},
		{name: "upper bound inclusive", text: "1000정", expected: intPtr(1000)},
		{name: "no count token", text: "비타민 D3", expected: nil},
		{name: "empty", text: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.PackageCount(tt.text)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestExtractorQuantity(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name     string
		text     string
		expected *int
	}{
		{name: "korean bottle token", text: "오메가3 120캡슐 3병", expected: intPtr(3)},
		{name: "korean pack token", text: "유산균 2팩", expected: intPtr(2)},
		{name: "english bottles", text: "Fish Oil 2 Bottles", expected: intPtr(2)},
		{name: "multiplier above range", text: "비타민 25병", expected: nil},
		{name: "no multiplier token", text: "비타민C 60정", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Quantity(tt.text)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestExtractorBrandFromIdentifier(t *testing.T) {
	e := NewExtractor()

	t.Run("known prefix", func(t *testing.T) {
		brand := e.BrandFromIdentifier("DRB00087")
		require.NotNil(t, brand)
		assert.Equal(t, "닥터스베스트", *brand)
	})

	t.Run("lowercase prefix", func(t *testing.T) {
		brand := e.BrandFromIdentifier("drb00087")
		require.NotNil(t, brand)
		assert.Equal(t, "닥터스베스트", *brand)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		assert.Nil(t, e.BrandFromIdentifier("XYZ123"))
	})

	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, e.BrandFromIdentifier("DR"))
	})
}

func TestExtractorBrand(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "english alias", text: "Doctor's Best High Absorption Magnesium", expected: "닥터스베스트"},
		{name: "korean alias", text: "닥터스베스트 고흡수 마그네슘", expected: "닥터스베스트"},
		{name: "spacing variant", text: "닥터스 베스트 비타민D", expected: "닥터스베스트"},
		{name: "longer alias wins over substring", text: "Nordic Naturals Snowberry Omega", expected: "노르딕내추럴스"},
		{name: "short alias still matches alone", text: "NOW 오메가3", expected: "나우푸드"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			brand := e.Brand(tt.text)
			require.NotNil(t, brand)
			assert.Equal(t, tt.expected, *brand)
		})
	}

	t.Run("unknown brand", func(t *testing.T) {
		assert.Nil(t, e.Brand("무명 비타민C 60정"))
	})
}

func TestExtractorExtract(t *testing.T) {
	e := NewExtractor()

	t.Run("identifier prefix beats name scan", func(t *testing.T) {
		// The name mentions a different brand; the identifier wins.
		attrs := e.Extract("나우푸드 비타민C 60정", "DRB00087")
		require.NotNil(t, attrs.Brand)
		assert.Equal(t, "닥터스베스트", *attrs.Brand)
		require.NotNil(t, attrs.PackageCount)
		assert.Equal(t, 60, *attrs.PackageCount)
	})

	t.Run("falls back to name scan without identifier", func(t *testing.T) {
		attrs := e.Extract("나우푸드 비타민C 60정 2병", "")
		require.NotNil(t, attrs.Brand)
		assert.Equal(t, "나우푸드", *attrs.Brand)
		require.NotNil(t, attrs.Quantity)
		assert.Equal(t, 2, *attrs.Quantity)
	})

	t.Run("default quantity is one", func(t *testing.T) {
		attrs := e.Extract("솔가 아연 100정", "")
		assert.Nil(t, attrs.Quantity)
		assert.Equal(t, 1, attrs.QuantityOrDefault())
	})
}

func intPtr(v int) *int {
	return &v
}
