package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// rowSummary is the JSON object the model is asked to return per lead.
type rowSummary struct {
	CompanyFocus    string `json:"company_focus"`
	RecentActivity  string `json:"recent_activity"`
	PositioningHook string `json:"positioning_hook"`
}

// SummarizeStage asks the text generator for a per-lead JSON summary of the
// scraped profile context and writes it into three columns.
type SummarizeStage struct {
	generator  outreach.TextGenerator
	checkpoint int
	logger     *zap.Logger
}

// NewSummarizeStage constructs the summarize stage.
func NewSummarizeStage(generator outreach.TextGenerator, checkpoint int, logger *zap.Logger) *SummarizeStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummarizeStage{generator: generator, checkpoint: checkpoint, logger: logger}
}

func (s *SummarizeStage) Name() string    { return "summarize" }
func (s *SummarizeStage) Checkpoint() int { return s.checkpoint }

func (s *SummarizeStage) Run(ctx context.Context, in outreach.Artifact, job outreach.Job) (outreach.Artifact, error) {
	table := in.Table
	table.EnsureColumn("company_focus", "")
	table.EnsureColumn("recent_activity", "")
	table.EnsureColumn("positioning_hook", "")

	for i := range table.Rows {
		if err := ctx.Err(); err != nil {
			return outreach.Artifact{}, err
		}

		prompt := summaryPrompt(table, i)
		raw, err := s.generator.Complete(ctx, prompt)
		if err != nil {
			return outreach.Artifact{}, fmt.Errorf("summarize row %s: %w", table.Value(i, "row_id"), err)
		}

		summary := parseSummary(raw)
		if summary == (rowSummary{}) {
			s.logger.Warn("summary response was not valid JSON",
				zap.String("job_id", job.ID),
				zap.String("row_id", table.Value(i, "row_id")),
			)
			summary = rowSummary{
				CompanyFocus:    "Unknown",
				RecentActivity:  "Unknown",
				PositioningHook: "General benefits",
			}
		}
		table.SetValue(i, "company_focus", summary.CompanyFocus)
		table.SetValue(i, "recent_activity", summary.RecentActivity)
		table.SetValue(i, "positioning_hook", summary.PositioningHook)
	}

	data, err := EncodeCSV(table)
	if err != nil {
		return outreach.Artifact{}, err
	}
	return outreach.Artifact{Ref: in.Ref, Data: data, Table: table}, nil
}

func summaryPrompt(table *outreach.Table, row int) string {
	var b strings.Builder
	b.WriteString("Summarize this sales lead's public profile for outreach personalization.\n")
	b.WriteString("Respond with a JSON object with keys company_focus, recent_activity, positioning_hook.\n\n")
	fmt.Fprintf(&b, "Name: %s\n", table.Value(row, "name"))
	fmt.Fprintf(&b, "Company: %s\n", table.Value(row, "company"))
	if headline := table.Value(row, "headline"); headline != "" {
		fmt.Fprintf(&b, "Headline: %s\n", headline)
	}
	if about := table.Value(row, "about"); about != "" {
		fmt.Fprintf(&b, "About: %s\n", about)
	}
	if posts := table.Value(row, "latest_posts"); posts != "" {
		fmt.Fprintf(&b, "Recent posts: %s\n", posts)
	}
	return b.String()
}

func parseSummary(raw string) rowSummary {
	var summary rowSummary
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &summary); err != nil {
		return rowSummary{}
	}
	return summary
}
