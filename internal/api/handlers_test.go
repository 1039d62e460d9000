package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
)

func TestRetryEndpointsRequireAdminToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/admin/retry", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/retry/job-1", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRetryAllRequeuesQueuedJobs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	_, err := env.repo.Insert(context.Background(), outreach.Job{ID: "job-1", Status: outreach.StatusQueued})
	require.NoError(t, err)
	_, err = env.repo.Insert(context.Background(), outreach.Job{ID: "job-2", Status: outreach.StatusQueued})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/retry", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 2, resp["requeued"])
}

func TestRetryOneResetsFailedJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	_, err := env.repo.Insert(context.Background(), outreach.Job{ID: "job-1", Status: outreach.StatusQueued})
	require.NoError(t, err)
	errText := "stage scrape: timeout"
	progress := 60
	patch := outreach.StatusPatch(outreach.StatusFailed)
	patch.Progress = &progress
	patch.ErrorText = &errText
	_, err = env.repo.Update(context.Background(), "job-1", patch)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/retry/job-1", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Job      outreach.Job `json:"job"`
		Requeued bool         `json:"requeued"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.True(t, resp.Requeued)
	require.Equal(t, outreach.StatusQueued, resp.Job.Status)
	require.Zero(t, resp.Job.Progress)

	item, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "job-1", item.JobID)
}

func TestRetryOneMissingJob(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/retry/missing", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadServesStoredOutput(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	_, err := env.blobs.PutObject(context.Background(), "outputs/job-1_outreach.csv", "text/csv",
		[]byte("name,email_subject\nAda,hello\n"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/downloads/job-1_outreach.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "job-1_outreach.csv")
	require.Contains(t, rec.Body.String(), "email_subject")
}

func TestDownloadMissingFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/downloads/nope.csv", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadRejectsTraversal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/downloads/..%2Fsecrets.csv", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadSample(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/downloads/sample", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "name,company")
}
