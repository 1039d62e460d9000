package outreach_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

func TestJobStatusTerminal(t *testing.T) {
	t.Parallel()

	require.False(t, outreach.StatusQueued.Terminal())
	require.False(t, outreach.StatusProcessing.Terminal())
	require.True(t, outreach.StatusSucceeded.Terminal())
	require.True(t, outreach.StatusFailed.Terminal())
}

func TestClonePayloadIsIndependent(t *testing.T) {
	t.Parallel()

	job := outreach.Job{Payload: map[string]string{"notes": "warm intro"}}
	clone := job.ClonePayload()
	clone["notes"] = "changed"

	require.Equal(t, "warm intro", job.Payload["notes"])

	var empty outreach.Job
	require.Nil(t, empty.ClonePayload())
}

func TestTableEnsureColumn(t *testing.T) {
	t.Parallel()

	table := &outreach.Table{
		Header: []string{"name", "company"},
		Rows:   [][]string{{"Ada", "Acme"}, {"Grace", "Globex"}},
	}

	idx := table.EnsureColumn("linkedin_url", "")
	require.Equal(t, 2, idx)
	require.Equal(t, []string{"name", "company", "linkedin_url"}, table.Header)
	require.Equal(t, []string{"Ada", "Acme", ""}, table.Rows[0])

	// Existing column is returned as-is without duplicating.
	require.Equal(t, 0, table.EnsureColumn("name", "x"))
	require.Len(t, table.Header, 3)
}

func TestTableValueToleratesRaggedRows(t *testing.T) {
	t.Parallel()

	table := &outreach.Table{
		Header: []string{"name", "company", "notes"},
		Rows:   [][]string{{"Ada", "Acme"}},
	}

	require.Equal(t, "Acme", table.Value(0, "company"))
	require.Equal(t, "", table.Value(0, "notes"))
	require.Equal(t, "", table.Value(0, "missing"))
	require.Equal(t, "", table.Value(5, "name"))
}

func TestTableSetValueExtendsShortRow(t *testing.T) {
	t.Parallel()

	table := &outreach.Table{
		Header: []string{"name", "company", "notes"},
		Rows:   [][]string{{"Ada"}},
	}

	table.SetValue(0, "notes", "met at conf")
	require.Equal(t, []string{"Ada", "", "met at conf"}, table.Rows[0])

	// Out-of-range writes are ignored.
	table.SetValue(3, "notes", "x")
	table.SetValue(0, "missing", "x")
	require.Len(t, table.Rows, 1)
	require.Len(t, table.Rows[0], 3)
}

func TestClaimPatch(t *testing.T) {
	t.Parallel()

	patch := outreach.ClaimPatch()
	require.Equal(t, outreach.StatusProcessing, *patch.Status)
	require.Equal(t, outreach.ClaimProgress, *patch.Progress)
	require.Equal(t, "", *patch.ErrorText)
	require.Nil(t, patch.OutputURL)
}

func TestFailurePatchLeavesProgress(t *testing.T) {
	t.Parallel()

	patch := outreach.FailurePatch("stage enrich: boom")
	require.Equal(t, outreach.StatusFailed, *patch.Status)
	require.Equal(t, "stage enrich: boom", *patch.ErrorText)
	require.Nil(t, patch.Progress)
}

func TestSuccessPatch(t *testing.T) {
	t.Parallel()

	patch := outreach.SuccessPatch("/downloads/job-1_outreach.csv")
	require.Equal(t, outreach.StatusSucceeded, *patch.Status)
	require.Equal(t, 100, *patch.Progress)
	require.Equal(t, "/downloads/job-1_outreach.csv", *patch.OutputURL)
}

func TestRequeuePatchResetsJob(t *testing.T) {
	t.Parallel()

	patch := outreach.RequeuePatch()
	require.Equal(t, outreach.StatusQueued, *patch.Status)
	require.Equal(t, 0, *patch.Progress)
	require.Equal(t, "", *patch.ErrorText)
}

func TestStageErrorWrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("search produced no profile")
	err := outreach.NewStageError("enrich", cause)
	require.EqualError(t, err, "stage enrich: search produced no profile")
	require.ErrorIs(t, err, cause)
}

func TestSetupErrorWrapping(t *testing.T) {
	t.Parallel()

	cause := outreach.ErrNotFound
	err := outreach.NewSetupError(cause)
	require.EqualError(t, err, "setup: job not found")
	require.ErrorIs(t, err, outreach.ErrNotFound)
}
