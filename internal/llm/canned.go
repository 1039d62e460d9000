package llm

import (
	"context"
	"strings"
)

// CannedGenerator is the keyless fallback: it returns deterministic stub
// responses so the pipeline stays runnable without an API key.
type CannedGenerator struct{}

// NewCannedGenerator builds the fallback generator.
func NewCannedGenerator() *CannedGenerator {
	return &CannedGenerator{}
}

// Complete returns a canned response matching the shape the prompt asks for:
// a JSON object for summary prompts, Subject/Body text otherwise.
func (g *CannedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(prompt, "JSON object") {
		return `{"company_focus":"Unknown","recent_activity":"Unknown","positioning_hook":"General benefits"}`, nil
	}
	return "Subject: Quick idea for your team\n" +
		"Body: Hi there,\n\n" +
		"I took a look at your company and think there is meaningful upside in your " +
		"lifecycle and retention programs. If helpful, I can share a short teardown " +
		"of what I would try first.\n\nBest,\nAlex", nil
}
