package utils

import "github.com/google/uuid"

// GenThreadID returns a new opaque thread identifier.
func GenThreadID() string { return uuid.NewString() }

// GenInteractionID returns a new opaque interaction identifier.
func GenInteractionID() string { return uuid.NewString() }
