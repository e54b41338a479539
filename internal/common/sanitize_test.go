package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Acme", "Acme"},
		{"spaces become underscores", "Market Size Forecast", "Market_Size_Forecast"},
		{"punctuation replaced", "Acme Co., Ltd.", "Acme_Co__Ltd_"},
		{"hangul kept", "주식회사 에이크미", "주식회사_에이크미"},
		{"slashes replaced", "R&D / IP", "R_D___IP"},
		{"outer whitespace trimmed", "  Acme  ", "Acme"},
		{"dash and underscore kept", "a-b_c", "a-b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "Acme_IP_Readiness", ReportKey("Acme", "IP Readiness"))
}
