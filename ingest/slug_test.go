package ingest

import "testing"

func TestCollectionName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Annual Report 2024.pdf", "annual_report_2024"},
		{"simple.pdf", "simple"},
		{"/data/docs/User-Guide v2.pdf", "user_guide_v2"},
		{"Résumé.pdf", "resume"},
		{"weird---name___here.PDF", "weird_name_here"},
		{"   .pdf", "collection"},
		{"no_extension", "no_extension"},
		{"UPPER.pdf", "upper"},
	}
	for _, tt := range tests {
		if got := CollectionName(tt.filename); got != tt.want {
			t.Errorf("CollectionName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
