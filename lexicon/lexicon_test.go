package lexicon

import "testing"

func TestRenderJoinsSplitNumerals(t *testing.T) {
	cases := []struct {
		name   string
		folded []string
		want   string
	}{
		{"plain words", []string{"the", "operator"}, "the operator"},
		{"split year", []string{"act", "20", "08"}, "act 2008"},
		{"split decimal", []string{"clause", "4", ".", "2"}, "clause 4.2"},
		{"digit then word", []string{"30", "days"}, "30 days"},
		{"word then digit", []string{"section", "12"}, "section 12"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, byteTok := Render(tc.folded)
			if text != tc.want {
				t.Errorf("render: got %q, want %q", text, tc.want)
			}
			if len(byteTok) != len(text) {
				t.Fatalf("byte map length %d for %d bytes", len(byteTok), len(text))
			}
		})
	}
}

func TestRenderByteMapSpansJoinedRun(t *testing.T) {
	text, byteTok := Render([]string{"act", "20", "08"})

	// First byte of the joined year maps to the first numeral token,
	// last byte to the second, so a match over "2008" covers both.
	start := len("act ")
	if byteTok[start] != 1 {
		t.Errorf("first year byte maps to token %d, want 1", byteTok[start])
	}
	if byteTok[len(text)-1] != 2 {
		t.Errorf("last year byte maps to token %d, want 2", byteTok[len(text)-1])
	}
}

func TestWorkPatternJurisdiction(t *testing.T) {
	m := WorkPattern.FindStringSubmatch("graffiti control act 2008 ( nsw )")
	if m == nil {
		t.Fatal("expected a match over the spaced parenthetical")
	}
	if m[3] != "nsw" {
		t.Errorf("jurisdiction group: got %q", m[3])
	}

	m = TitleWorkPattern.FindStringSubmatch("Graffiti Control Act 2008 ( NSW )")
	if m == nil {
		t.Fatal("expected a cased match over the spaced parenthetical")
	}
	if m[3] != "NSW" {
		t.Errorf("cased jurisdiction group: got %q", m[3])
	}
}
