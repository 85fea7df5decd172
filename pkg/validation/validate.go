package validation

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"threaddb/pkg/models"
)

// Limits bounds the free-text fields of incoming records. Zero values fall
// back to the package defaults.
type Limits struct {
	MaxBodyLen int
	MaxNameLen int
	MaxMembers int
}

var limits = Limits{
	MaxBodyLen: 64 * 1024,
	MaxNameLen: 256,
	MaxMembers: 500,
}

// SetLimits installs configured limits; zero fields keep their defaults.
func SetLimits(l Limits) {
	if l.MaxBodyLen > 0 {
		limits.MaxBodyLen = l.MaxBodyLen
	}
	if l.MaxNameLen > 0 {
		limits.MaxNameLen = l.MaxNameLen
	}
	if l.MaxMembers > 0 {
		limits.MaxMembers = l.MaxMembers
	}
}

// ValidateContactCreate checks a new contact thread request.
func ValidateContactCreate(contactID, displayName string) error {
	var errs []string
	if strings.TrimSpace(contactID) == "" {
		errs = append(errs, "contact is required")
	}
	if len(contactID) > limits.MaxNameLen {
		errs = append(errs, fmt.Sprintf("contact too long: %d > %d", len(contactID), limits.MaxNameLen))
	}
	if len(displayName) > limits.MaxNameLen {
		errs = append(errs, fmt.Sprintf("display_name too long: %d > %d", len(displayName), limits.MaxNameLen))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ValidateGroupCreate checks a new group thread request.
func ValidateGroupCreate(g models.GroupModel) error {
	var errs []string
	if strings.TrimSpace(g.GroupID) == "" {
		errs = append(errs, "group_id is required")
	}
	if len(g.Name) > limits.MaxNameLen {
		errs = append(errs, fmt.Sprintf("group name too long: %d > %d", len(g.Name), limits.MaxNameLen))
	}
	if len(g.Members) > limits.MaxMembers {
		errs = append(errs, fmt.Sprintf("too many members: %d > %d", len(g.Members), limits.MaxMembers))
	}
	for _, m := range g.Members {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, "group members must be non-empty identifiers")
			break
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ValidateInteraction checks an interaction supplied by a caller before it
// is recorded.
func ValidateInteraction(in models.Interaction) error {
	var errs []string
	if len(in.Body) > limits.MaxBodyLen {
		errs = append(errs, fmt.Sprintf("body too long: %d > %d", len(in.Body), limits.MaxBodyLen))
	}
	switch in.Direction {
	case "", models.DirectionIncoming, models.DirectionOutgoing:
	default:
		errs = append(errs, fmt.Sprintf("invalid direction: %s", in.Direction))
	}
	if in.InvalidKey != "" {
		if _, err := hex.DecodeString(in.InvalidKey); err != nil {
			errs = append(errs, "invalid_key must be hex")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ValidateDraft checks composer text before it is stored.
func ValidateDraft(text string) error {
	if len(text) > limits.MaxBodyLen {
		return fmt.Errorf("draft too long: %d > %d", len(text), limits.MaxBodyLen)
	}
	return nil
}
