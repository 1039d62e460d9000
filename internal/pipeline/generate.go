package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// Messaging carries the configured positioning inputs woven into every email.
type Messaging struct {
	Positioning  string
	CaseStudies  []string
	Tone         string
	PrimaryCTA   string
	SecondaryCTA string
}

// GenerateStage composes the outreach email per lead from the summarized
// profile context and the configured messaging.
type GenerateStage struct {
	generator  outreach.TextGenerator
	messaging  Messaging
	checkpoint int
	logger     *zap.Logger

	// pickCaseStudy is swappable in tests to pin the chosen proof point.
	pickCaseStudy func(studies []string) string
}

// NewGenerateStage constructs the generate stage.
func NewGenerateStage(generator outreach.TextGenerator, messaging Messaging, checkpoint int, logger *zap.Logger) *GenerateStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateStage{
		generator:  generator,
		messaging:  messaging,
		checkpoint: checkpoint,
		logger:     logger,
		pickCaseStudy: func(studies []string) string {
			if len(studies) == 0 {
				return ""
			}
			return studies[rand.Intn(len(studies))]
		},
	}
}

func (s *GenerateStage) Name() string    { return "generate" }
func (s *GenerateStage) Checkpoint() int { return s.checkpoint }

func (s *GenerateStage) Run(ctx context.Context, in outreach.Artifact, job outreach.Job) (outreach.Artifact, error) {
	table := in.Table
	table.EnsureColumn("email_subject", "")
	table.EnsureColumn("email_body", "")

	for i := range table.Rows {
		if err := ctx.Err(); err != nil {
			return outreach.Artifact{}, err
		}

		prompt := s.emailPrompt(table, i)
		raw, err := s.generator.Complete(ctx, prompt)
		if err != nil {
			return outreach.Artifact{}, fmt.Errorf("generate row %s: %w", table.Value(i, "row_id"), err)
		}

		subject, body := splitEmail(raw)
		table.SetValue(i, "email_subject", subject)
		table.SetValue(i, "email_body", body)
	}

	data, err := EncodeCSV(table)
	if err != nil {
		return outreach.Artifact{}, err
	}
	return outreach.Artifact{Ref: in.Ref, Data: data, Table: table}, nil
}

func (s *GenerateStage) emailPrompt(table *outreach.Table, row int) string {
	name := table.Value(row, "name")
	if name == "" {
		name = "there"
	}
	company := table.Value(row, "company")
	title := table.Value(row, "title")
	if title == "" {
		title = table.Value(row, "job_title")
	}

	var b strings.Builder
	b.WriteString("You are a top-tier retention copywriter.\n\n")
	fmt.Fprintf(&b, "Write a 120-150 word cold email to %s (%s) at %s.\n", name, title, company)
	b.WriteString("Reference their profile context below when relevant (one natural reference max).\n\n")
	fmt.Fprintf(&b, "Headline: %s\n", table.Value(row, "headline"))
	fmt.Fprintf(&b, "About: %s\n", table.Value(row, "about"))
	fmt.Fprintf(&b, "Recent posts: %s\n", table.Value(row, "latest_posts"))
	fmt.Fprintf(&b, "Company focus: %s\n", table.Value(row, "company_focus"))
	fmt.Fprintf(&b, "Positioning hook: %s\n\n", table.Value(row, "positioning_hook"))
	fmt.Fprintf(&b, "Positioning:\n%s\n\n", s.messaging.Positioning)
	if proof := s.pickCaseStudy(s.messaging.CaseStudies); proof != "" {
		fmt.Fprintf(&b, "Use exactly ONE proof point:\n- %s\n\n", proof)
	}
	if s.messaging.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", s.messaging.Tone)
	}
	if s.messaging.PrimaryCTA != "" {
		fmt.Fprintf(&b, "CTA: %s", s.messaging.PrimaryCTA)
		if s.messaging.SecondaryCTA != "" {
			fmt.Fprintf(&b, " (secondary acceptable: %s)", s.messaging.SecondaryCTA)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReturn as:\nSubject: <subject>\nBody: <body>\n")
	return b.String()
}

// splitEmail parses the "Subject: ... Body: ..." response shape, falling back
// to a stock subject when the model ignored the format.
func splitEmail(raw string) (subject, body string) {
	parts := strings.SplitN(raw, "Body:", 2)
	if len(parts) == 2 {
		subject = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[0]), "Subject:"))
		body = strings.TrimSpace(parts[1])
		return subject, body
	}
	return "Quick idea", strings.TrimSpace(raw)
}
