package grading

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t\n", ""},
		{"lower and trim", "  ABC ", "abc"},
		{"latex leftovers", `$\frac{1}{2}$`, "frac{1}{2}"},
		{"parentheses", "(x+1)", "x+1"},
		{"inner whitespace", "50 km / h", "50km/h"},
		{"decimal comma", "3,5", "3.5"},
		{"option prefix dot", "A. 50km", "a50km"},
		{"option prefix paren", "b) 12", "b12"},
		{"option prefix colon", "C: x = 2", "cx=2"},
		{"repeated separators", "d.:7", "d7"},
		{"letter beyond d kept", "E. 5", "e.5"},
		{"vietnamese", "  Đúng ", "đúng"},
		{"unicode spaces", "1 000", "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"", "A. 50km", "a)50 km", "a.:x", "a..5", "a.b.5", "$(1,5)$", `\sqrt{2}`,
		"Đúng", "  SAI ", "b:)c", "x = -3, y = 2", "A.A.A.", "c", "1/2",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeEquivalentForms(t *testing.T) {
	if Normalize("A. 50km") != Normalize("a)50 km") {
		t.Errorf("expected %q and %q to normalize equally", "A. 50km", "a)50 km")
	}
	if Normalize("0,75") != Normalize(" 0.75") {
		t.Error("decimal comma and dot should normalize equally")
	}
}
