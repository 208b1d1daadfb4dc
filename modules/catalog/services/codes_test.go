package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"HR-1.pdf":        "hr-001",
		"hr_001":          "hr-001",
		"  HR – 01 ":      "hr-001",
		"HR—1":            "hr-001",
		"hr1":             "hr-001",
		"HR-0001":         "hr-001",
		"HR-1234":         "hr-1234",
		"HR-1.PDF.pdf":    "hr-001",
		"HR-١٠":           "hr-010",
		"FIN__7 .Pdf":     "fin-007",
		"Leave Request":   "leaverequest",
		"HR-1-A":          "hr-1-a",
		"":                "",
		"   ":             "",
		".pdf":            ".pdf",
		"نموذج-٣":         "نموذج-003",
		"A.B.pdf":         "a.b",
		"x - _ y":         "x-y",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeCode(in), "input %q", in)
	}
}

func TestNormalizeCode_Idempotent(t *testing.T) {
	inputs := []string{
		"HR-1.pdf", "hr_001", "  HR – 01 ", "HR-0001", "HR-١٠", "x - _ y", "a.p df", "a.pdf.p df",
		"Leave Request.pdf", "FIN__7 .Pdf", ".pdf", "—", "_", "İstanbul-5",
	}
	for _, in := range inputs {
		once := NormalizeCode(in)
		require.Equal(t, once, NormalizeCode(once), "input %q", in)
	}
}

func TestCodeNormalizer_CustomExtensions(t *testing.T) {
	n := NewCodeNormalizer("docx", ".PDF")
	require.Equal(t, []string{".docx", ".pdf"}, n.Extensions())
	require.Equal(t, "hr-002", n.Normalize("HR-2.docx"))
	require.Equal(t, "hr-002", n.Normalize("HR-2.pdf"))
}

func TestMatchKey(t *testing.T) {
	n := NewCodeNormalizer()
	require.Equal(t, "leaverequest", n.MatchKey("Leave  Request.pdf"))
	require.Equal(t, "hr010", n.MatchKey("HR-٠١٠"))
	require.Equal(t, "طلبسلفة", n.MatchKey("طَلَب سلـفة"))
	require.Equal(t, "", n.MatchKey("  --  "))
}
