package language_test

import (
	"reflect"
	"testing"

	"mediavault/internal/language"
)

func TestToISO2(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"eng", "en"},
		{"en", "en"},
		{"English", "en"},
		{"GER", "de"},
		{"fre", "fr"},
		{"fra", "fr"},
		{"xx", "xx"},
		{"unknownlang", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := language.ToISO2(tc.input); got != tc.expected {
			t.Errorf("ToISO2(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestNormalizeListPreservesOrder(t *testing.T) {
	got := language.NormalizeList([]string{"eng", "GER", "eng", "", "jpn"})
	want := []string{"en", "de", "ja"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeList = %v, want %v", got, want)
	}
}

func TestDominant(t *testing.T) {
	if got := language.Dominant([]string{"", "de", "en"}); got != "de" {
		t.Fatalf("Dominant = %q, want de", got)
	}
	if got := language.Dominant(nil); got != "" {
		t.Fatalf("Dominant(nil) = %q, want empty", got)
	}
}

func TestContainsEnglish(t *testing.T) {
	if !language.ContainsEnglish([]string{"de", "eng"}) {
		t.Fatal("expected eng to count as English")
	}
	if language.ContainsEnglish([]string{"de", "ja"}) {
		t.Fatal("expected no English")
	}
}

func TestExtractFromTags(t *testing.T) {
	if got := language.ExtractFromTags(map[string]string{"LANGUAGE": " ENG "}); got != "eng" {
		t.Fatalf("ExtractFromTags = %q, want eng", got)
	}
	if got := language.ExtractFromTags(nil); got != "" {
		t.Fatalf("ExtractFromTags(nil) = %q, want empty", got)
	}
}
