package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aguldbeck/ai-outreach-agent/internal/outreach"
	"github.com/aguldbeck/ai-outreach-agent/internal/pipeline"
)

const sampleCSV = "name,company,title,linkedin_url,domain,notes\n" +
	"Ada Lovelace,Lovelace Ltd,Founder,,lovelace.example,met at conference\n" +
	"Grace Hopper,Hopper Inc,CTO,https://linkedin.com/in/grace,hopper.example,\n"

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload failed")
		return
	}

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		writeError(w, http.StatusBadRequest, "upload has no filename")
		return
	}
	if err := pipeline.ValidateLeadFile(filename, data); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		userID = "anonymous"
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate job id failed")
		return
	}

	uploadPath := path.Join("uploads", jobID, filename)
	if _, err := s.blobs.PutObject(r.Context(), uploadPath, header.Header.Get("Content-Type"), data); err != nil {
		s.logger.Error("save upload failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "save upload failed")
		return
	}

	payload := map[string]string{}
	if notes := r.FormValue("notes"); notes != "" {
		payload["notes"] = notes
	}

	job := outreach.Job{
		ID:         jobID,
		UserID:     userID,
		Filename:   filename,
		UploadPath: uploadPath,
		Status:     outreach.StatusQueued,
		Progress:   0,
		Payload:    payload,
	}
	job, err = s.jobs.Insert(r.Context(), job)
	if err != nil {
		s.logger.Error("insert job failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create job failed")
		return
	}

	queueCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	item := outreach.QueueItem{JobID: jobID, Attempt: 1, Submitted: s.clock.Now().Unix()}
	if err := s.dispatcher.Enqueue(queueCtx, item); err != nil {
		s.logger.Error("enqueue job failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "queue is full, try again later")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"job": job})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list jobs failed")
		return
	}
	if jobs == nil {
		jobs = []outreach.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("get job failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get job failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.List(r.Context(), 1000)
	if err != nil {
		s.logger.Error("status listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status listing failed")
		return
	}

	counts := map[string]int{}
	summaries := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		counts[string(job.Status)]++
		summaries = append(summaries, map[string]any{
			"job_id":     job.ID,
			"status":     job.Status,
			"progress":   job.Progress,
			"output_url": job.OutputURL,
			"error":      job.ErrorText,
			"updated_at": job.UpdatedAt,
		})
	}

	resp := map[string]any{"counts": counts, "jobs": summaries}
	if s.degraded != nil {
		resp["degraded"] = s.degraded()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) retryAll(w http.ResponseWriter, r *http.Request) {
	count, err := s.retries.RetryAllQueued(r.Context(), r.Header.Get("X-Admin-Token"))
	if err != nil {
		s.writeRetryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requeued": count})
}

func (s *Server) retryOne(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, enqueued, err := s.retries.RetryOne(r.Context(), r.Header.Get("X-Admin-Token"), jobID)
	if err != nil {
		s.writeRetryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": job, "requeued": enqueued})
}

func (s *Server) writeRetryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, outreach.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized")
	case errors.Is(err, outreach.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	default:
		s.logger.Error("retry failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "retry failed")
	}
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	data, err := s.blobs.GetObject(r.Context(), path.Join("outputs", filename))
	if err != nil {
		if errors.Is(err, outreach.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		s.logger.Error("download failed", zap.String("filename", filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "download failed")
		return
	}

	serveCSV(w, filename, data)
}

func (s *Server) downloadSample(w http.ResponseWriter, _ *http.Request) {
	serveCSV(w, "sample_leads.csv", []byte(sampleCSV))
}

func serveCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Error("write download failed", zap.Error(err))
	}
}
