package oracle

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseJudgment(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		numCandidates int
		matched       bool
		index         int
		confident     bool
	}{
		{
			name:          "high confidence pick",
			raw:           "선택: 후보 2\n신뢰도: high\n이유: 브랜드와 정수가 일치합니다.",
			numCandidates: 3,
			matched:       true,
			index:         1,
			confident:     true,
		},
		{
			name:          "korean high confidence",
			raw:           "선택: 후보 1\n신뢰도: 높음\n이유: 동일 제품",
			numCandidates: 2,
			matched:       true,
			index:         0,
			confident:     true,
		},
		{
			name:          "medium confidence pick needs verification",
			raw:           "선택: 후보 3\n신뢰도: medium\n이유: 용량 표기가 애매합니다.",
			numCandidates: 4,
			matched:       true,
			index:         2,
			confident:     false,
		},
		{
			name:          "explicit no match",
			raw:           "선택: 매칭 불가\n신뢰도: none\n이유: 브랜드가 다릅니다.",
			numCandidates: 3,
			matched:       false,
		},
		{
			name:          "no match without space",
			raw:           "선택: 매칭불가",
			numCandidates: 3,
			matched:       false,
		},
		{
			name:          "low confidence rejected",
			raw:           "선택: 후보 1\n신뢰도: low\n이유: 확신이 없습니다.",
			numCandidates: 3,
			matched:       false,
		},
		{
			name:          "index out of range rejected",
			raw:           "선택: 후보 9\n신뢰도: high",
			numCandidates: 3,
			matched:       false,
		},
		{
			name:          "unparseable response rejected",
			raw:           "잘 모르겠습니다.",
			numCandidates: 3,
			matched:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := parseJudgment(tt.raw, tt.numCandidates)
			assert.Equal(t, tt.matched, j.Matched)
			if tt.matched {
				assert.Equal(t, tt.index, j.Index)
				assert.Equal(t, tt.confident, j.Confident)
			}
			assert.NotEmpty(t, j.Rationale)
		})
	}
}

func TestParseVerification(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		same bool
	}{
		{name: "match", raw: "판정: 일치\n신뢰도: high\n이유: 로고와 제품명이 동일", same: true},
		{name: "mismatch", raw: "판정: 불일치\n신뢰도: high\n이유: 다른 브랜드", same: false},
		{name: "low confidence match downgraded", raw: "판정: 일치\n신뢰도: low\n이유: 사진이 흐림", same: false},
		{name: "korean low confidence downgraded", raw: "판정: 일치\n신뢰도: 낮음", same: false},
		{name: "no verdict", raw: "판단할 수 없습니다.", same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := parseVerification(tt.raw)
			assert.Equal(t, tt.same, v.Same)
		})
	}
}

func TestSelectionPromptNumbersCandidates(t *testing.T) {
	prompt := selectionPrompt("닥터스베스트 마그네슘 120정", []string{"후보A", "후보B"})

	assert.Contains(t, prompt, "원본 상품: 닥터스베스트 마그네슘 120정")
	assert.Contains(t, prompt, "후보 1: 후보A")
	assert.Contains(t, prompt, "후보 2: 후보B")
	assert.Contains(t, prompt, "매칭 불가")
}

func TestClassify(t *testing.T) {
	quota := classify(&testError{"HTTP 429 Too Many Requests"})
	assert.True(t, IsQuota(quota))

	transient := classify(&testError{"connection reset by peer"})
	assert.False(t, IsQuota(transient))

	// "context deadline exceeded" contains "exceeded" but is a timeout.
	deadline := classify(fmt.Errorf("generate content: %w", context.DeadlineExceeded))
	assert.False(t, IsQuota(deadline))
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
