package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

func TestParseNormalizesHeadersAndAssignsRowIDs(t *testing.T) {
	t.Parallel()

	stage := NewParseStage(25)
	in := outreach.Artifact{Data: []byte("Name, Company ,LinkedIn URL\nAda,Lovelace Ltd,\nGrace,Hopper Inc,https://linkedin.com/in/grace\n")}

	out, err := stage.Run(context.Background(), in, outreach.Job{Filename: "leads.csv"})
	require.NoError(t, err)
	require.Equal(t, []string{"name", "company", "linkedin_url", "row_id"}, out.Table.Header)
	require.Equal(t, "1", out.Table.Value(0, "row_id"))
	require.Equal(t, "2", out.Table.Value(1, "row_id"))
	require.Equal(t, "https://linkedin.com/in/grace", out.Table.Value(1, "linkedin_url"))
	require.NotEmpty(t, out.Data)
}

func TestParseRejectsMissingRequiredColumns(t *testing.T) {
	t.Parallel()

	stage := NewParseStage(25)
	in := outreach.Artifact{Data: []byte("name,title\nAda,Founder\n")}

	_, err := stage.Run(context.Background(), in, outreach.Job{Filename: "leads.csv"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required columns")
	require.Contains(t, err.Error(), "company")
}

func TestParseRejectsHeaderOnlyFile(t *testing.T) {
	t.Parallel()

	stage := NewParseStage(25)
	in := outreach.Artifact{Data: []byte("name,company\n")}

	_, err := stage.Run(context.Background(), in, outreach.Job{Filename: "leads.csv"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no lead rows")
}
