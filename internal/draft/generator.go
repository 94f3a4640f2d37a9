package draft

import (
	"context"
	"errors"
)

// Audio is one uploaded clip handed to the generator.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Generator turns the two audio inputs into an email body.
type Generator interface {
	GenerateEmail(ctx context.Context, relationship, content Audio) (string, error)
}

// Disabled is used when no API key is configured. Every call fails.
type Disabled struct{}

func (Disabled) GenerateEmail(context.Context, Audio, Audio) (string, error) {
	return "", errors.New("draft generation disabled: no API key configured")
}
