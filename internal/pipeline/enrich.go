package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

// ProfileFinder resolves a lead to a public LinkedIn profile URL. An empty
// result with a nil error means no profile was found.
type ProfileFinder interface {
	FindProfile(ctx context.Context, name, company string) (string, error)
}

// EnrichStage fills the linkedin_url column for rows that do not already
// carry one. A search miss degrades the row rather than failing the job.
type EnrichStage struct {
	finder     ProfileFinder
	checkpoint int
	logger     *zap.Logger
}

// NewEnrichStage constructs the enrich stage.
func NewEnrichStage(finder ProfileFinder, checkpoint int, logger *zap.Logger) *EnrichStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichStage{finder: finder, checkpoint: checkpoint, logger: logger}
}

func (s *EnrichStage) Name() string    { return "enrich" }
func (s *EnrichStage) Checkpoint() int { return s.checkpoint }

func (s *EnrichStage) Run(ctx context.Context, in outreach.Artifact, job outreach.Job) (outreach.Artifact, error) {
	table := in.Table
	table.EnsureColumn("linkedin_url", "")

	for i := range table.Rows {
		if err := ctx.Err(); err != nil {
			return outreach.Artifact{}, err
		}
		if strings.TrimSpace(table.Value(i, "linkedin_url")) != "" {
			continue
		}
		name := strings.TrimSpace(table.Value(i, "name"))
		company := strings.TrimSpace(table.Value(i, "company"))
		if name == "" && company == "" {
			continue
		}

		profileURL, err := s.finder.FindProfile(ctx, name, company)
		if err != nil {
			s.logger.Warn("profile search failed",
				zap.String("job_id", job.ID),
				zap.String("row_id", table.Value(i, "row_id")),
				zap.Error(err),
			)
			continue
		}
		table.SetValue(i, "linkedin_url", profileURL)
	}

	data, err := EncodeCSV(table)
	if err != nil {
		return outreach.Artifact{}, err
	}
	return outreach.Artifact{Ref: in.Ref, Data: data, Table: table}, nil
}
