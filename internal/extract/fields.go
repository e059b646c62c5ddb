package extract

import (
	"regexp"
	"sort"
	"strings"
)

// How a rule turns a regex match into a candidate value.
type captureMode int

const (
	captureWhole  captureMode = iota // full match, or group 1 when present
	captureGroup                     // group 1 only
	capturePhone                     // groups 1-3 formatted as (xxx) xxx-xxxx
	captureJoined                    // groups 1+2 joined with a space
)

type fieldRule struct {
	re   *regexp.Regexp
	mode captureMode
}

// patternTable is the declarative rule set per field type. New field types
// are added here, not in branching logic.
var patternTable = map[FieldType][]fieldRule{
	FieldEmail: {
		{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), captureWhole},
		{regexp.MustCompile(`(?i)email[:\s]*([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`), captureGroup},
		{regexp.MustCompile(`(?i)e-mail[:\s]*([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`), captureGroup},
	},
	FieldPhone: {
		{regexp.MustCompile(`\(?([0-9]{3})\)?\s*[-.\s]*([0-9]{3})[-.\s]*([0-9]{4})`), capturePhone},
		{regexp.MustCompile(`(?i)phone[:\s]*([0-9\-.\s()+]{10,})`), captureGroup},
		{regexp.MustCompile(`(?i)tel[:\s]*([0-9\-.\s()+]{10,})`), captureGroup},
		{regexp.MustCompile(`(?i)mobile[:\s]*([0-9\-.\s()+]{10,})`), captureGroup},
	},
	FieldName: {
		{regexp.MustCompile(`(?i)name[:\s]*([A-Za-z][A-Za-z\s]{1,49})`), captureGroup},
		{regexp.MustCompile(`(?i)full name[:\s]*([A-Za-z][A-Za-z\s]{1,49})`), captureGroup},
		{regexp.MustCompile(`(?i)first name[:\s]*([A-Za-z]{2,30})`), captureGroup},
		{regexp.MustCompile(`(?i)last name[:\s]*([A-Za-z]{2,30})`), captureGroup},
	},
	FieldFullName: {
		{regexp.MustCompile(`(?i)name[:\s]*([A-Za-z][A-Za-z\s]{1,49})`), captureGroup},
		{regexp.MustCompile(`(?i)full name[:\s]*([A-Za-z][A-Za-z\s]{1,49})`), captureGroup},
		// Resume headers: a capitalized name directly above a role line.
		{regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z]{2,15})\s*\n\s*([A-Z][A-Za-z]{2,15})\s*\n\s*(?:FULL|SOFTWARE|DEVELOPER|ENGINEER|MANAGER)`), captureJoined},
		{regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z]{2,15}\s+[A-Z][A-Za-z]{2,15})\s*\n\s*(?:FULL|SOFTWARE|DEVELOPER|ENGINEER|MANAGER)`), captureGroup},
	},
	FieldAddress: {
		{regexp.MustCompile(`(?i)address[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,99})`), captureGroup},
		{regexp.MustCompile(`(?i)street[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,99})`), captureGroup},
		{regexp.MustCompile(`(?i)\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln)`), captureWhole},
		{regexp.MustCompile(`(?i)zip[:\s]*([0-9]{5}(?:-[0-9]{4})?)`), captureGroup},
	},
	FieldLinkedIn: {
		{regexp.MustCompile(`(?i)linkedin\.com/in/[A-Za-z0-9\-]+`), captureWhole},
		{regexp.MustCompile(`(?i)linkedin[:\s]*((?:https?://)?(?:www\.)?linkedin\.com/in/[A-Za-z0-9\-]+)`), captureGroup},
	},
	FieldWebsite: {
		{regexp.MustCompile(`(?i)website[:\s]*(https?://[^\s]+)`), captureGroup},
		{regexp.MustCompile(`(?i)portfolio[:\s]*(https?://[^\s]+)`), captureGroup},
		{regexp.MustCompile(`(?i)(https?://(?:www\.)?[A-Za-z0-9.-]+\.[A-Za-z]{2,}(?:/[^\s]*)?)`), captureGroup},
	},
	FieldGitHub: {
		{regexp.MustCompile(`(?i)github\.com/[A-Za-z0-9\-]+`), captureWhole},
		{regexp.MustCompile(`(?i)github[:\s]*((?:https?://)?(?:www\.)?github\.com/[A-Za-z0-9\-]+)`), captureGroup},
	},
	FieldSkills: {
		{regexp.MustCompile(`(?i)skills[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,199})`), captureGroup},
		{regexp.MustCompile(`(?i)technical skills[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,199})`), captureGroup},
		{regexp.MustCompile(`(?i)programming languages?[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,199})`), captureGroup},
		{regexp.MustCompile(`(?i)technologies[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,199})`), captureGroup},
	},
	FieldEducation: {
		{regexp.MustCompile(`(?i)education[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,199})`), captureGroup},
		{regexp.MustCompile(`(?i)university[:\s]*([A-Za-z][A-Za-z\s]{1,99})`), captureGroup},
		{regexp.MustCompile(`(?i)degree[:\s]*([A-Za-z][A-Za-z\s]{1,99})`), captureGroup},
		{regexp.MustCompile(`(?i)bachelor[:\s]*([A-Za-z][A-Za-z\s]{1,99})`), captureGroup},
		{regexp.MustCompile(`(?i)master[:\s]*([A-Za-z][A-Za-z\s]{1,99})`), captureGroup},
	},
	FieldExperience: {
		{regexp.MustCompile(`(?i)experience[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,499})`), captureGroup},
		{regexp.MustCompile(`(?i)work experience[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,499})`), captureGroup},
		{regexp.MustCompile(`(?i)employment[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,499})`), captureGroup},
		{regexp.MustCompile(`(?i)position[:\s]*([A-Za-z0-9][A-Za-z0-9\s,.-]{9,199})`), captureGroup},
	},
	FieldDate: {
		{regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`), captureWhole},
		{regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`), captureWhole},
		{regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`), captureWhole},
		{regexp.MustCompile(`(?i)date of birth[:\s]*([0-9/\-]{8,12})`), captureGroup},
		{regexp.MustCompile(`(?i)dob[:\s]*([0-9/\-]{8,12})`), captureGroup},
	},
}

// Phrases that indicate a "name" match is actually a job title.
var jobTitleVocab = []string{"full stack", "developer", "engineer", "manager", "director"}

const contextWindow = 50

// FieldExtractor scans raw text against the pattern table and scores every
// candidate. It is deterministic and never fails; a generative extractor
// may replace it behind the same contract.
type FieldExtractor struct{}

func NewFieldExtractor() *FieldExtractor {
	return &FieldExtractor{}
}

// Extract returns the top candidates per field type, deduplicated
// case-insensitively by value and capped at three per type.
func (e *FieldExtractor) Extract(text string) map[FieldType][]Field {
	out := make(map[FieldType][]Field, len(patternTable))

	for _, ft := range AllFieldTypes() {
		rules := patternTable[ft]
		var candidates []Field

		for _, rule := range rules {
			for _, loc := range rule.re.FindAllStringSubmatchIndex(text, -1) {
				value := captureValue(text, loc, rule.mode)
				value = strings.TrimSpace(value)
				if len(value) <= 1 {
					continue
				}

				start, end := loc[0], loc[1]
				ctxStart := start - contextWindow
				if ctxStart < 0 {
					ctxStart = 0
				}
				ctxEnd := end + contextWindow
				if ctxEnd > len(text) {
					ctxEnd = len(text)
				}
				context := strings.TrimSpace(text[ctxStart:ctxEnd])

				candidates = append(candidates, Field{
					Type:       ft,
					Value:      value,
					Context:    context,
					Confidence: scoreField(ft, value, context, start),
					Position:   start,
				})
			}
		}

		out[ft] = dedupeTop(candidates, 3)
	}

	return out
}

func captureValue(text string, loc []int, mode captureMode) string {
	group := func(n int) string {
		if 2*n+1 < len(loc) && loc[2*n] >= 0 {
			return text[loc[2*n]:loc[2*n+1]]
		}
		return ""
	}

	switch mode {
	case capturePhone:
		area, prefix, number := group(1), group(2), group(3)
		if area != "" && prefix != "" && number != "" {
			return "(" + area + ") " + prefix + "-" + number
		}
		return group(0)
	case captureJoined:
		if group(2) != "" {
			return group(1) + " " + group(2)
		}
		return group(1)
	case captureGroup:
		return group(1)
	default:
		if g := group(1); g != "" {
			return g
		}
		return group(0)
	}
}

// scoreField applies the per-type confidence heuristic. position is the
// byte offset of the match in the document.
func scoreField(ft FieldType, value, context string, position int) float64 {
	confidence := 0.5

	switch ft {
	case FieldEmail:
		if at := strings.LastIndex(value, "@"); at >= 0 && strings.Contains(value[at:], ".") {
			confidence = 0.9
		}
	case FieldPhone:
		digits := 0
		for _, r := range value {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= 10 && digits <= 11 {
			confidence = 0.8
		}
	case FieldName, FieldFullName:
		words := strings.Fields(value)
		alphaOnly := isAlpha(strings.Join(words, ""))
		if len(words) >= 2 && alphaOnly {
			confidence = 0.8
			if position < 200 {
				confidence = 0.95
			}
			lower := strings.ToLower(value)
			for _, phrase := range jobTitleVocab {
				if strings.Contains(lower, phrase) {
					confidence = 0.2
					break
				}
			}
		} else if len(words) == 1 && alphaOnly && len(value) > 2 {
			confidence = 0.6
		}
	case FieldLinkedIn:
		if strings.Contains(strings.ToLower(value), "linkedin.com") {
			confidence = 0.9
		}
	case FieldWebsite:
		if strings.HasPrefix(value, "http") && strings.Contains(value, ".") {
			confidence = 0.8
		}
	}

	if strings.Contains(strings.ToLower(context), string(ft)) {
		confidence += 0.1
	}
	if len(value) < 3 {
		confidence *= 0.5
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

func dedupeTop(candidates []Field, limit int) []Field {
	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0:0]
	for _, c := range candidates {
		key := strings.ToLower(c.Value)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Confidence > unique[j].Confidence
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}
