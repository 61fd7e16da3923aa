package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeProductName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases", input: "Doctor's Best Magnesium", expected: "doctors best magnesium"},
		{name: "collapses whitespace", input: "닥터스베스트   마그네슘  120정", expected: "닥터스베스트 마그네슘 120정"},
		{name: "strips punctuation", input: "오메가-3, 1000mg (60정)", expected: "오메가3 1000mg 60정"},
		{name: "trims", input: "  솔가 아연 ", expected: "솔가 아연"},
		{name: "empty", input: "", expected: ""},
		{name: "punctuation only", input: "!?.,", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeProductName(tt.input))
		})
	}
}

func TestApplyChain(t *testing.T) {
	got := ApplyChain("  Doctor's Best  ", "trim", "lowercase", "remove_punctuation")
	assert.Equal(t, "doctors best", got)
}

func TestApplyUnknownNormalizerIsIdentity(t *testing.T) {
	assert.Equal(t, "value", Apply("value", "not_registered"))
}

func TestRegistryLookup(t *testing.T) {
	fn, ok := Get("nproduct")
	assert.True(t, ok)
	assert.Equal(t, "abc123", fn("ABC-123"))
}
