package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resumeText = `John Smith
SOFTWARE ENGINEER

Email: john.smith@example.com
Phone: (555) 123-4567
LinkedIn: linkedin.com/in/johnsmith
GitHub: github.com/johnsmith
Website: https://johnsmith.dev

Skills: Go, Python, PostgreSQL, Kubernetes, distributed systems
Education: BS Computer Science, State University
Experience: 5 years building backend services and data pipelines
`

func TestExtractEmail(t *testing.T) {
	fields := NewFieldExtractor().Extract(resumeText)

	emails := fields[FieldEmail]
	require.NotEmpty(t, emails)
	assert.Equal(t, "john.smith@example.com", emails[0].Value)
	assert.GreaterOrEqual(t, emails[0].Confidence, 0.9)
}

func TestExtractPhone(t *testing.T) {
	fields := NewFieldExtractor().Extract(resumeText)

	phones := fields[FieldPhone]
	require.NotEmpty(t, phones)
	assert.Equal(t, "(555) 123-4567", phones[0].Value)
	assert.GreaterOrEqual(t, phones[0].Confidence, 0.8)
}

func TestExtractNameFromResumeHeader(t *testing.T) {
	fields := NewFieldExtractor().Extract(resumeText)

	names := fields[FieldFullName]
	require.NotEmpty(t, names)
	assert.Equal(t, "John Smith", names[0].Value)
	// Header position boosts the name heuristic.
	assert.GreaterOrEqual(t, names[0].Confidence, 0.95)
}

func TestJobTitlePenalizedAsName(t *testing.T) {
	text := "Name: Full Stack Developer\nSome other content here."
	fields := NewFieldExtractor().Extract(text)

	names := fields[FieldFullName]
	require.NotEmpty(t, names)
	assert.Less(t, names[0].Confidence, 0.5)
}

func TestLinkedInConfidence(t *testing.T) {
	fields := NewFieldExtractor().Extract(resumeText)

	links := fields[FieldLinkedIn]
	require.NotEmpty(t, links)
	assert.GreaterOrEqual(t, links[0].Confidence, 0.9)
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	for _, candidates := range NewFieldExtractor().Extract(resumeText) {
		for _, f := range candidates {
			assert.GreaterOrEqual(t, f.Confidence, 0.0, "field %q", f.Value)
			assert.LessOrEqual(t, f.Confidence, 1.0, "field %q", f.Value)
		}
	}
}

func TestDedupAndTopThree(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Email: dup@example.com\nemail: DUP@example.com\n")
	for _, addr := range []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"} {
		sb.WriteString("contact " + addr + "\n")
	}

	fields := NewFieldExtractor().Extract(sb.String())
	emails := fields[FieldEmail]
	require.NotEmpty(t, emails)
	assert.LessOrEqual(t, len(emails), 3)

	seen := map[string]bool{}
	for _, f := range emails {
		key := strings.ToLower(f.Value)
		assert.False(t, seen[key], "duplicate value %q", f.Value)
		seen[key] = true
	}
}

func TestRankedByConfidence(t *testing.T) {
	for _, candidates := range NewFieldExtractor().Extract(resumeText) {
		for i := 1; i < len(candidates); i++ {
			assert.GreaterOrEqual(t, candidates[i-1].Confidence, candidates[i].Confidence)
		}
	}
}

func TestContextWindow(t *testing.T) {
	fields := NewFieldExtractor().Extract(resumeText)

	emails := fields[FieldEmail]
	require.NotEmpty(t, emails)
	assert.Contains(t, emails[0].Context, "john.smith@example.com")
	assert.LessOrEqual(t, len(emails[0].Context), len(emails[0].Value)+2*contextWindow)
}

func TestEmptyTextYieldsNoCandidates(t *testing.T) {
	fields := NewFieldExtractor().Extract("")
	for ft, candidates := range fields {
		assert.Empty(t, candidates, "field type %s", ft)
	}
}
