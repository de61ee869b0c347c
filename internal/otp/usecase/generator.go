package usecase

import (
	"context"
	"fmt"

	"github.com/shandysiswandi/gootp/internal/pkg/otp"
)

// Generator draws a fresh code and sends it right away. It persists nothing.
type Generator struct {
	codes      otp.Generator
	dispatcher *Dispatcher
}

func NewGenerator(codes otp.Generator, dispatcher *Dispatcher) *Generator {
	return &Generator{codes: codes, dispatcher: dispatcher}
}

// Generate returns the code and whether the immediate send succeeded.
func (g *Generator) Generate(ctx context.Context, identity string) (code string, delivered bool, err error) {
	code, err = g.codes.Generate()
	if err != nil {
		return "", false, fmt.Errorf("generate code: %w", err)
	}

	return code, g.dispatcher.SendImmediate(ctx, identity, code), nil
}
