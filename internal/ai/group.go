package ai

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type groupGenerator struct {
	items []GeneratorEntry
}

// NewGroupGenerator tries each generator in order and returns the first
// successful answer.
func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return items[0].Generator
	}
	return &groupGenerator{items: items}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Generator == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generator failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("generator not configured")
	}
	return "", lastErr
}
