package validation

import (
	"strings"
	"testing"

	"threaddb/pkg/models"
)

func TestValidateContactCreate(t *testing.T) {
	long := strings.Repeat("x", 257)
	cases := []struct {
		name        string
		contact     string
		displayName string
		wantErr     bool
	}{
		{"ok", "alice@example", "Alice", false},
		{"no display name", "alice@example", "", false},
		{"empty contact", "", "", true},
		{"whitespace contact", "   ", "", true},
		{"contact too long", long, "", true},
		{"display name too long", "alice", long, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateContactCreate(c.contact, c.displayName)
			if (err != nil) != c.wantErr {
				t.Fatalf("ValidateContactCreate(%q, %q) = %v, wantErr %v", c.contact, c.displayName, err, c.wantErr)
			}
		})
	}
}

func TestValidateGroupCreate(t *testing.T) {
	many := make([]string, 501)
	for i := range many {
		many[i] = "m"
	}
	cases := []struct {
		name    string
		group   models.GroupModel
		wantErr bool
	}{
		{"ok", models.GroupModel{GroupID: "g1", Name: "crew", Members: []string{"a", "b"}}, false},
		{"no members", models.GroupModel{GroupID: "g1"}, false},
		{"missing id", models.GroupModel{Name: "crew"}, true},
		{"name too long", models.GroupModel{GroupID: "g1", Name: strings.Repeat("n", 257)}, true},
		{"too many members", models.GroupModel{GroupID: "g1", Members: many}, true},
		{"blank member", models.GroupModel{GroupID: "g1", Members: []string{"a", "  "}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateGroupCreate(c.group)
			if (err != nil) != c.wantErr {
				t.Fatalf("ValidateGroupCreate(%+v) = %v, wantErr %v", c.group, err, c.wantErr)
			}
		})
	}
}

func TestValidateInteraction(t *testing.T) {
	cases := []struct {
		name    string
		in      models.Interaction
		wantErr bool
	}{
		{"empty", models.Interaction{}, false},
		{"incoming", models.Interaction{Direction: models.DirectionIncoming, Body: "hi"}, false},
		{"outgoing", models.Interaction{Direction: models.DirectionOutgoing, Body: "hi"}, false},
		{"bad direction", models.Interaction{Direction: "sideways"}, true},
		{"hex key", models.Interaction{InvalidKey: "deadbeef"}, false},
		{"non-hex key", models.Interaction{InvalidKey: "not-hex!"}, true},
		{"body too long", models.Interaction{Body: strings.Repeat("b", 64*1024+1)}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateInteraction(c.in)
			if (err != nil) != c.wantErr {
				t.Fatalf("ValidateInteraction(%s) = %v, wantErr %v", c.name, err, c.wantErr)
			}
		})
	}
}

func TestValidateDraft(t *testing.T) {
	if err := ValidateDraft("a perfectly fine draft"); err != nil {
		t.Fatalf("ValidateDraft: %v", err)
	}
	if err := ValidateDraft(strings.Repeat("d", 64*1024+1)); err == nil {
		t.Fatalf("oversized draft must be rejected")
	}
}

func TestSetLimits(t *testing.T) {
	SetLimits(Limits{MaxBodyLen: 10})
	defer SetLimits(Limits{MaxBodyLen: 64 * 1024})

	if err := ValidateDraft(strings.Repeat("d", 11)); err == nil {
		t.Fatalf("lowered limit not applied")
	}
	if err := ValidateDraft("short"); err != nil {
		t.Fatalf("ValidateDraft under limit: %v", err)
	}

	// zero fields keep the current values
	SetLimits(Limits{})
	if err := ValidateDraft(strings.Repeat("d", 11)); err == nil {
		t.Fatalf("zero-value SetLimits must not reset the limit")
	}
}
