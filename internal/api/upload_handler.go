package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/voltlab/voltlab-api/internal/admission"
	"github.com/voltlab/voltlab-api/internal/api/middleware"
	"github.com/voltlab/voltlab-api/internal/api/shared"
	"github.com/voltlab/voltlab-api/internal/config"
	"github.com/voltlab/voltlab-api/internal/platform/segment"
	"github.com/voltlab/voltlab-api/internal/platform/vision"
	"github.com/voltlab/voltlab-api/internal/service/membership"
	"github.com/voltlab/voltlab-api/internal/session"
	"github.com/voltlab/voltlab-api/internal/store"
)

// mimeTypes maps accepted image extensions to their MIME types.
var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// UploadHandler handles circuit diagram uploads and runs the analysis
// session: quota check, admission, then the preload/analysis pair.
type UploadHandler struct {
	userStore    store.UserStore
	quota        *membership.Service
	admission    *admission.Controller
	orchestrator *session.Orchestrator
	analyzer     vision.Analyzer
	preloader    segment.Preloader
	uploadCfg    config.UploadConfig
	logger       *slog.Logger
}

// NewUploadHandler creates a new UploadHandler with the given dependencies.
func NewUploadHandler(
	userStore store.UserStore,
	quota *membership.Service,
	admissionCtrl *admission.Controller,
	orchestrator *session.Orchestrator,
	analyzer vision.Analyzer,
	preloader segment.Preloader,
	uploadCfg config.UploadConfig,
	logger *slog.Logger,
) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{
		userStore:    userStore,
		quota:        quota,
		admission:    admissionCtrl,
		orchestrator: orchestrator,
		analyzer:     analyzer,
		preloader:    preloader,
		uploadCfg:    uploadCfg,
		logger:       logger.With(slog.String("component", "upload_handler")),
	}
}

// Upload handles the /api/circuits/upload endpoint. Requires authentication.
//
// An upstream analysis failure is reported in the response body rather than
// as a 5xx: the uploaded file is already saved and the timings are real.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	if err := h.quota.CheckQuota(r.Context(), user); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	data, mimeType, savedPath, err := h.saveUpload(w, r)
	if err != nil {
		// saveUpload has already written the error response.
		return
	}

	waited, err := h.admission.Acquire(r.Context())
	if err != nil {
		if errors.Is(err, admission.ErrTooBusy) {
			shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
				GetSafeErrorMessage(err), err)
			return
		}
		// The client went away while queued.
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
			"Analysis cancelled", err)
		return
	}
	defer h.admission.Release()

	result := session.Run(r.Context(), h.orchestrator, waited,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.preloader.Preload(ctx, savedPath)
		},
		func(ctx context.Context) (*vision.Analysis, error) {
			return h.analyzer.Analyze(ctx, data, mimeType)
		},
	)

	if err := h.quota.RecordUsage(r.Context(), user.ID); err != nil {
		// The analysis already ran; losing one usage row is acceptable.
		h.logger.Warn("failed to record usage",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
	}

	resp := AnalysisResponse{
		Path:    filepath.ToSlash(savedPath),
		WaitMS:  result.WaitMS,
		EmbedMS: result.A.DurationMS,
		AIMS:    result.B.DurationMS,
		TotalMS: result.TotalMS,
	}

	if result.A.Err != nil {
		h.logger.Warn("embedding preload failed",
			slog.String("error", result.A.Err.Error()),
			slog.String("path", savedPath))
	}

	if result.B.Err != nil {
		resp.AnalysisError = "Analysis failed, please try again"
		resp.Elements = []vision.Element{}
	} else if analysis := result.B.Value; analysis != nil {
		resp.Elements = analysis.Elements
		resp.Confidence = analysis.Confidence
		resp.Assumptions = analysis.Assumptions
		resp.Summary = analysis.Summary
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// saveUpload reads the multipart image and writes it under the uploads
// directory with a fresh UUID name. On failure it writes the HTTP error
// response and returns a non-nil error.
func (h *UploadHandler) saveUpload(w http.ResponseWriter, r *http.Request) (data []byte, mimeType, savedPath string, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadCfg.MaxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Image file required")
		return nil, "", "", err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			h.logger.Warn("failed to close upload", slog.String("error", cerr.Error()))
		}
	}()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mimeType, ok := mimeTypes[ext]
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"Unsupported image type, use PNG or JPEG")
		return nil, "", "", errors.New("unsupported image type")
	}

	data, err = io.ReadAll(file)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Failed to read image", err)
		return nil, "", "", err
	}
	if len(data) == 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Image file is empty")
		return nil, "", "", errors.New("empty image")
	}

	dir := filepath.Join(h.uploadCfg.Dir, "circuits")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to save image", err)
		return nil, "", "", err
	}

	savedPath = filepath.Join(dir, uuid.New().String()+ext)
	if err := os.WriteFile(savedPath, data, 0o644); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to save image", err)
		return nil, "", "", err
	}

	return data, mimeType, savedPath, nil
}
