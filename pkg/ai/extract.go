package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const useCaseCount = 4

var (
	numberedLinePrefix = regexp.MustCompile(`^\d+\.\s*`)
	leadingListMarkers = regexp.MustCompile(`^[\d.\-*•\s]+`)

	// Lowercased stems that mark a line as a plausible use case when the
	// model ignores the one-per-line instruction.
	useCaseKeywords = []string{"generat", "writ", "creat", "draft", "email", "summar", "analyz"}
)

// ExtractUseCases parses raw model output into exactly four use cases. It
// tries numbered lines first, falls back to a keyword scan, and finally pads
// with department-templated defaults. The result always has four non-empty
// entries.
func ExtractUseCases(raw, department string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	useCases := make([]string, 0, useCaseCount)
	for _, line := range lines {
		if !numberedLinePrefix.MatchString(line) {
			continue
		}
		if stripped := strings.TrimSpace(numberedLinePrefix.ReplaceAllString(line, "")); stripped != "" {
			useCases = append(useCases, stripped)
		}
	}

	if len(useCases) != useCaseCount {
		useCases = useCases[:0]
		for _, line := range lines {
			if len(line) <= 20 || !containsUseCaseKeyword(line) {
				continue
			}
			cleaned := strings.TrimSpace(leadingListMarkers.ReplaceAllString(line, ""))
			if len(cleaned) > 15 {
				useCases = append(useCases, cleaned)
			}
			if len(useCases) == useCaseCount {
				break
			}
		}
	}

	fallbacks := FallbackUseCases(department)
	for len(useCases) < useCaseCount {
		useCases = append(useCases, fallbacks[len(useCases)])
	}

	return useCases[:useCaseCount]
}

func containsUseCaseKeyword(line string) bool {
	lowered := strings.ToLower(line)
	for _, keyword := range useCaseKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// FallbackUseCases returns the fixed department-templated defaults used to pad
// short generation results.
func FallbackUseCases(department string) []string {
	return []string{
		fmt.Sprintf("Generate professional emails for %s department communications", department),
		fmt.Sprintf("Create summaries of long documents and reports for %s team", department),
		fmt.Sprintf("Draft formal responses to common %s inquiries and requests", department),
		fmt.Sprintf("Analyze and categorize feedback or data relevant to %s operations", department),
	}
}

// ExtractEvaluation parses raw model output into an EvaluationResult. It takes
// the widest {...} span, decodes it and validates it against the result
// schema. Anything that fails to parse or validate yields the fixed fallback
// result; this function never reports an error.
func ExtractEvaluation(raw string) EvaluationResult {
	open := strings.Index(raw, "{")
	closing := strings.LastIndex(raw, "}")
	if open == -1 || closing <= open {
		return FallbackEvaluation()
	}

	payload := []byte(raw[open : closing+1])

	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return FallbackEvaluation()
	}
	if err := evaluationSchema.Validate(decoded); err != nil {
		return FallbackEvaluation()
	}

	var result EvaluationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return FallbackEvaluation()
	}

	return result
}

// FallbackEvaluation is the deterministic substitute used when model output
// cannot be parsed.
func FallbackEvaluation() EvaluationResult {
	unparsed := DimensionAssessment{Status: StatusMissing, Explanation: "Unable to parse evaluation"}

	return EvaluationResult{
		Role:       unparsed,
		Action:     unparsed,
		Context:    unparsed,
		Format:     unparsed,
		Tone:       unparsed,
		Techniques: []string{},
		Mismatches: []string{"Unable to evaluate due to parsing error"},
		Suggestions: []string{
			"Please try again - there was an issue processing your prompt",
			"Check if your prompt is properly formatted",
			"Consider simplifying your prompt structure",
		},
		Score: 0,
	}
}
