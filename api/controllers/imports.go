package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopgrid/catalog-engine/api/middleware"
	"github.com/shopgrid/catalog-engine/api/responses"
	"github.com/shopgrid/catalog-engine/api/validators"
	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/internal/importer"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
)

type importPreviewBody struct {
	Candidates []candidateBody `json:"candidates" validate:"required,min=1,max=1000,dive"`
}

func toCandidates(bodies []candidateBody) []catalog.Candidate {
	out := make([]catalog.Candidate, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, b.toCandidate())
	}
	return out
}

// PreviewImport dry-runs a batch through the matching engine.
func PreviewImport(svc importer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body importPreviewBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Preview(r.Context(), principal, toCandidates(body.Candidates))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type importCommitBody struct {
	Source     string          `json:"source" validate:"required,min=1,max=255"`
	Candidates []candidateBody `json:"candidates" validate:"required,min=1,max=1000,dive"`
}

// CommitImport queues the batch and kicks a runner; callers poll by job id.
// The Idempotency-Key header guards against double submission.
func CommitImport(svc importer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body importCommitBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := importer.CommitInput{
			Source:     body.Source,
			Candidates: toCandidates(body.Candidates),
		}
		if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
			input.IdempotencyKey = &key
		}

		job, err := svc.Commit(r.Context(), principal, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		runCtx := context.WithoutCancel(r.Context())
		go func() {
			if err := svc.Run(runCtx, job.ID); err != nil && logg != nil {
				logg.Error(logg.WithJobID(runCtx, job.ID.String()), "import job run failed", err)
			}
		}()

		responses.WriteSuccessStatus(w, http.StatusAccepted, job)
	}
}

// GetImportJob returns the poll shape for one job.
func GetImportJob(svc importer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		jobID, err := validators.ParseUUIDParam(r, "jobID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.GetJob(r.Context(), principal, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// CancelImportJob raises the cancellation flag for a job.
func CancelImportJob(svc importer.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		jobID, err := validators.ParseUUIDParam(r, "jobID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.CancelJob(r.Context(), principal, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}
