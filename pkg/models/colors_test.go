package models

import "testing"

func TestPaletteClosed(t *testing.T) {
	if len(ConversationColors) != 12 {
		t.Fatalf("palette must hold 12 colors, got %d", len(ConversationColors))
	}
	seen := map[ColorName]bool{}
	for _, c := range ConversationColors {
		if seen[c] {
			t.Fatalf("duplicate palette entry %s", c)
		}
		seen[c] = true
		if !c.Valid() {
			t.Fatalf("palette entry %s does not validate", c)
		}
	}
	if !DefaultColorName.Valid() {
		t.Fatalf("default color %s must be in the palette", DefaultColorName)
	}
}

// TestStableColorDeterminism pins the property independent devices rely on:
// the same seed always lands on the same palette entry.
func TestStableColorDeterminism(t *testing.T) {
	seeds := []string{"", "alice", "bob", "group-7", "+14155550100"}
	for _, seed := range seeds {
		first := StableColorNameForNewConversation(seed)
		if !first.Valid() {
			t.Fatalf("seed %q produced color %s outside the palette", seed, first)
		}
		for i := 0; i < 5; i++ {
			if got := StableColorNameForNewConversation(seed); got != first {
				t.Fatalf("seed %q not stable: %s then %s", seed, first, got)
			}
		}
	}
}

// TestStableColorSpreads is a sanity check that assignment is not constant.
func TestStableColorSpreads(t *testing.T) {
	distinct := map[ColorName]bool{}
	for _, seed := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		distinct[StableColorNameForNewConversation(seed)] = true
	}
	if len(distinct) < 2 {
		t.Fatalf("eight seeds mapped to a single color; hashing is broken")
	}
}

func TestParseColorName(t *testing.T) {
	if got := ParseColorName("teal"); got != ColorTeal {
		t.Fatalf("known color should parse, got %s", got)
	}
	for _, bad := range []string{"", "magenta", "ultraviolet"} {
		if got := ParseColorName(bad); got != DefaultColorName {
			t.Fatalf("ParseColorName(%q) = %s, want default %s", bad, got, DefaultColorName)
		}
	}
}
