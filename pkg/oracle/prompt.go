package oracle

import (
	"fmt"
	"regexp"
	"strings"
)

// selectionPrompt asks the model to pick exactly one numbered candidate or
// declare no match, and to report its own confidence. Responses are parsed by
// parseJudgment, so the answer format here and the regexes there move
// together.
func selectionPrompt(referenceName string, candidateNames []string) string {
	var sb strings.Builder

	sb.WriteString("당신은 영양제 상품 매칭 전문가입니다.\n")
	sb.WriteString("아래 원본 상품과 후보들을 비교하여 정확히 동일한 제품을 찾아주세요.\n\n")
	sb.WriteString(fmt.Sprintf("원본 상품: %s\n\n", referenceName))
	sb.WriteString("후보:\n")
	for i, name := range candidateNames {
		sb.WriteString(fmt.Sprintf("후보 %d: %s\n", i+1, name))
	}

	sb.WriteString(`
규칙:
1. 브랜드가 다르면 절대 매칭하지 마세요.
2. 주성분이 다르면 절대 매칭하지 마세요.
3. 정수(캡슐/정 개수)가 명백히 다르면 매칭하지 마세요.
4. 용량/함량이 다르면 매칭하지 마세요.
5. 확실하지 않으면 "매칭 불가"를 선택하세요. 잘못된 매칭보다 매칭 안 하는 게 낫습니다.

응답 형식:
선택: 후보 X (또는 "매칭 불가")
신뢰도: high/medium/low/none
이유: (구체적 설명)
`)

	return sb.String()
}

// comparisonPrompt asks the model whether two product photos show the same
// physical product.
const comparisonPrompt = `두 개의 영양제 제품 사진을 비교하여 동일한 제품인지 판단해주세요.
브랜드 로고, 제품명, 성분 표기, 용기 형태를 기준으로 판단하세요.
확실하지 않으면 "불일치"를 선택하세요.

응답 형식:
판정: 일치 (또는 "불일치")
신뢰도: high/medium/low
이유: (구체적 설명)
`

var candidateIndexRe = regexp.MustCompile(`후보\s*(\d+)`)

// parseJudgment interprets the free-text answer of the judgment oracle.
// Confidence high means confident; medium means pick-but-verify; low and none
// are treated as a rejection of every candidate.
func parseJudgment(raw string, numCandidates int) Judgment {
	result := Judgment{Rationale: strings.TrimSpace(raw)}

	if strings.Contains(raw, "매칭 불가") || strings.Contains(raw, "매칭불가") {
		return result
	}

	matches := candidateIndexRe.FindStringSubmatch(raw)
	if len(matches) < 2 {
		return result
	}

	index := 0
	if _, err := fmt.Sscanf(matches[1], "%d", &index); err != nil {
		return result
	}
	if index < 1 || index > numCandidates {
		return result
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "high") || strings.Contains(raw, "높음"):
		result.Matched = true
		result.Index = index - 1
		result.Confident = true
	case strings.Contains(lower, "medium") || strings.Contains(raw, "중간"):
		result.Matched = true
		result.Index = index - 1
	default:
		// low confidence or unparseable: reject rather than risk a bad match
	}

	return result
}

// parseVerification interprets the free-text answer of the verification
// oracle. A positive verdict at low confidence is downgraded to a mismatch.
func parseVerification(raw string) Verification {
	result := Verification{Rationale: strings.TrimSpace(raw)}

	if !strings.Contains(raw, "일치") || strings.Contains(raw, "불일치") {
		return result
	}

	lower := strings.ToLower(raw)
	if strings.Contains(lower, "low") || strings.Contains(raw, "낮음") {
		return result
	}

	result.Same = true
	return result
}
