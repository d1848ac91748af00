package token

import "testing"

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ      Type
		expected string
	}{
		{Plus, "+"},
		{KwAnd, "and"},
		{Eq, "="},
		{ThisVar, "$this"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.expected {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.expected)
		}
	}
}

func TestTypeStringUnknown(t *testing.T) {
	got := Type(9999).String()
	if got == "" {
		t.Error("expected a non-empty fallback string for an unknown type")
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		word     string
		expected Type
	}{
		{"and", KwAnd},
		{"or", KwOr},
		{"div", KwDiv},
		{"mod", KwMod},
		{"is", KwIs},
		{"as", KwAs},
	}

	for _, tt := range tests {
		got, ok := Keywords[tt.word]
		if !ok {
			t.Fatalf("expected %q to be a keyword", tt.word)
		}
		if got != tt.expected {
			t.Errorf("Keywords[%q] = %v, want %v", tt.word, got, tt.expected)
		}
	}

	if _, ok := Keywords["where"]; ok {
		t.Error("expected 'where' to not be a reserved keyword (it's an ordinary function name)")
	}
}

func TestCalendarUnitKeywords(t *testing.T) {
	tests := map[string]string{
		"year": "year", "years": "year",
		"day": "day", "days": "day",
		"second": "second", "seconds": "second",
	}
	for word, expected := range tests {
		got, ok := CalendarUnitKeywords[word]
		if !ok {
			t.Fatalf("expected %q to resolve to a calendar unit", word)
		}
		if got != expected {
			t.Errorf("CalendarUnitKeywords[%q] = %q, want %q", word, got, expected)
		}
	}
}

func TestPrecedence(t *testing.T) {
	if Precedence(Star) <= Precedence(Plus) {
		t.Error("expected '*' to bind tighter than '+'")
	}
	if Precedence(Dot) <= Precedence(Star) {
		t.Error("expected '.' to bind tighter than '*'")
	}
	if Precedence(Comma) != -1 {
		t.Error("expected a non-operator token to report precedence -1")
	}
}
