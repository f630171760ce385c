package archive

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/archiver/service/internal/middleware"
	"github.com/archiver/service/internal/response"
)

const (
	maxRequestBody   = 64 << 10
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler holds HTTP handlers for archive endpoints.
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler creates a new archive Handler.
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Index godoc
//
//	@Summary	Liveness greeting
//	@Tags		health
//	@Produce	plain
//	@Success	200	{string}	string	"Hello, world!"
//	@Router		/ [get]
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	response.Text(w, http.StatusOK, "Hello, world!")
}

// Archive godoc
//
//	@Summary		Archive remote content
//	@Description	Fetches source and streams it into the object store under suffix. Returns the public URL of the stored object. Guard failures and malformed requests return 400 with no body.
//	@Tags			archive
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		Request	true	"Source URL and object key"
//	@Success		200		{object}	Result
//	@Failure		400		{object}	response.ErrorInfo
//	@Router			/archive [post]
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsAuthenticated(r.Context()) {
		response.BadRequest(w)
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.log.Debug("malformed archive request", zap.Error(err))
		response.BadRequest(w)
		return
	}
	if req.Source == "" {
		response.BadRequest(w)
		return
	}
	if err := ValidateKey(req.Suffix); err != nil {
		h.log.Debug("rejected object key", zap.String("key", req.Suffix), zap.Error(err))
		response.BadRequest(w)
		return
	}

	res, err := h.svc.Archive(r.Context(), req)
	if err != nil {
		kind, ok := KindOf(err)
		if !ok {
			response.InternalError(w)
			return
		}
		response.Failure(w, string(kind))
		return
	}
	response.OK(w, res)
}

// List godoc
//
//	@Summary		List archived objects
//	@Description	Returns ledger entries, newest first. Only available when a database is configured.
//	@Tags			archive
//	@Produce		json
//	@Security		BearerAuth
//	@Param			suffix	query		string	false	"Exact object key"
//	@Param			limit	query		int		false	"Maximum entries (1-200)"	default(50)
//	@Success		200		{array}		Record
//	@Failure		400
//	@Failure		404		{object}	response.ErrorInfo
//	@Failure		500		{object}	response.ErrorInfo
//	@Router			/archives [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !middleware.IsAuthenticated(r.Context()) {
		response.BadRequest(w)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			response.BadRequest(w)
			return
		}
		limit = n
	}

	records, err := h.svc.Records(r.Context(), ListFilter{Key: r.URL.Query().Get("suffix"), Limit: limit})
	if errors.Is(err, ErrLedgerDisabled) {
		response.NotFound(w, "archive ledger is not configured")
		return
	}
	if err != nil {
		h.log.Error("list archive records", zap.Error(err))
		response.InternalError(w)
		return
	}
	if records == nil {
		records = []Record{}
	}
	response.OK(w, records)
}
