package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsNonStandardAttributes(t *testing.T) {
	s := NewDescriptionSanitizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "start attribute on paragraph",
			input:    `<p start="3">Text</p>`,
			expected: `<p>Text</p>`,
		},
		{
			name:     "align and mso style on paragraph",
			input:    `<p align="center" style="mso-line-height:normal">X</p>`,
			expected: `<p>X</p>`,
		},
		{
			name:     "start attribute on heading",
			input:    `<h2 start="1">Openings</h2>`,
			expected: `<h2>Openings</h2>`,
		},
		{
			name:     "align on div with other attributes kept",
			input:    `<div class="intro" align="left">About us</div>`,
			expected: `<div class="intro">About us</div>`,
		},
		{
			name:     "mso declaration removed from mixed style",
			input:    `<span style="mso-bidi-font-family:Calibri; color:red">A</span>`,
			expected: `<span style="color:red">A</span>`,
		},
		{
			name:     "xml namespace attributes",
			input:    `<p xmlns:o="urn:schemas-microsoft-com:office:office" o:gfxdata="AEIA">B</p>`,
			expected: `<p>B</p>`,
		},
		{
			name:     "ordered list keeps its start attribute",
			input:    `<ol start="3"><li>Third</li></ol>`,
			expected: `<ol start="3"><li>Third</li></ol>`,
		},
		{
			name:     "plain text untouched",
			input:    `Build and ship backend services.`,
			expected: `Build and ship backend services.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Sanitize(tt.input))
		})
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	s := NewDescriptionSanitizer()

	inputs := []string{
		`<p start="3" align="center" style="mso-line-height:normal">Text</p>`,
		`<div align="right">A</div>   with   runs	of spaces`,
		`<p xmlns:w="urn:schemas-microsoft-com:office:word">B</p>`,
		"line one\nline two",
		"already clean",
	}

	for _, input := range inputs {
		once := s.Sanitize(input)
		twice := s.Sanitize(once)
		assert.Equal(t, once, twice, "input %q", input)
	}
}

func TestSanitizeCollapsesHorizontalWhitespace(t *testing.T) {
	s := NewDescriptionSanitizer()

	// Runs of spaces and tabs collapse, newlines survive.
	input := "Design   systems\twith\t\tcare\nacross  teams"
	assert.Equal(t, "Design systems with care\nacross teams", s.Sanitize(input))
}

func TestSanitizeTrims(t *testing.T) {
	s := NewDescriptionSanitizer()

	assert.Equal(t, "Role details", s.Sanitize("   Role details  \n"))
	assert.Equal(t, "", s.Sanitize(""))
	assert.Equal(t, "", s.Sanitize("   \t  "))
}
