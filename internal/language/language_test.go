package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"de-DE", "de"},
		{"de_AT", "de"},
		{"deu", "de"},
		{"fra", "fr"},
		{"jpn", "ja"},
		{"english", "en"},
		{"GERMAN", "de"},
		{"", ""},
		{" ", ""},
		{"not a tag", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToISO3(t *testing.T) {
	tests := map[string]string{
		"en":    "eng",
		"de-DE": "deu",
		"":      "und",
	}
	for input, want := range tests {
		if got := ToISO3(input); got != want {
			t.Errorf("ToISO3(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("de_de")
	if err != nil || got != "de-DE" {
		t.Fatalf("Normalize(de_de) = %q, %v", got, err)
	}
	got, err = Normalize("French")
	if err != nil || got != "fr" {
		t.Fatalf("Normalize(French) = %q, %v", got, err)
	}
	if _, err := Normalize(""); err == nil {
		t.Fatal("expected error for empty tag")
	}
	if _, err := Normalize("!!"); err == nil {
		t.Fatal("expected error for malformed tag")
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"de":  "German",
		"en":  "English",
		"fr":  "French",
		"":    "Unknown",
		"!!":  "!!",
		"jpn": "Japanese",
	}
	for input, want := range tests {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{"en", "eng", "de-DE", "german", "??", ""})
	if len(got) != 2 || got[0] != "en" || got[1] != "de" {
		t.Fatalf("NormalizeList = %v", got)
	}
	if NormalizeList(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}
