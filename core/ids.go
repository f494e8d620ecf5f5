package core

import "github.com/google/uuid"

// NewID generates a new opaque unique identifier.
//
// Used for conversation, session and message ids so correlation works the
// same way across every layer.
func NewID() string { return uuid.NewString() }
