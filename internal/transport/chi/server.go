package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/carrel-labs/pebble"
	"github.com/carrel-labs/pebble/db"
	"github.com/carrel-labs/pebble/internal/catalog"
	"github.com/carrel-labs/pebble/query"
	"github.com/carrel-labs/pebble/query/wire"
)

const (
	maxBodyBytes     = 1 << 20
	contentTypeJSON  = "application/json"
	contentTypeProto = "application/x-protobuf"
)

// ErrorCode is the machine-readable error code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest      ErrorCode = "bad_request"
	CodeUnauthorized    ErrorCode = "unauthorized"
	CodeInvalidOperator ErrorCode = "invalid_operator"
	CodeInvalidField    ErrorCode = "invalid_field"
	CodeMissingValue    ErrorCode = "missing_value"
	CodeInvalidSort     ErrorCode = "invalid_sort"
	CodeValidation      ErrorCode = "validation_failed"
	CodeItemNotFound    ErrorCode = "item_not_found"
	CodeBackend         ErrorCode = "backend_error"
	CodeTimeout         ErrorCode = "timeout"
	CodeInternal        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Catalog is the consumer interface for the item store (ISP).
type Catalog interface {
	CreateItem(ctx context.Context, in catalog.NewItem) (catalog.Item, error)
	CreateNote(ctx context.Context, itemID string, in catalog.NewNote) (catalog.Note, error)
	GetItem(ctx context.Context, id string) (catalog.Item, error)
	SearchItems(ctx context.Context, q *query.SearchQuery) (*pebble.Result[catalog.Item], error)
	SearchNotes(ctx context.Context, itemID string, q *query.SearchQuery) (*pebble.Result[catalog.Note], error)
}

// Pinger reports backend reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the catalog search API.
type Server struct {
	catalog       Catalog
	db            Pinger
	queryTimeout  time.Duration
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. A zero queryTimeout disables the
// per-search deadline.
func NewServer(c Catalog, p Pinger, queryTimeout time.Duration, logger *zap.Logger) *Server {
	s := &Server{
		catalog:      c,
		db:           p,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		compileErrorHandler,
		sentinelHandler(catalog.ErrItemNotFound, http.StatusNotFound, CodeItemNotFound),
		sentinelHandler(catalog.ErrInvalidInput, http.StatusBadRequest, CodeValidation),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(db.ErrBackend, http.StatusBadGateway, CodeBackend),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1/items", func(r chi.Router) {
		r.Post("/", s.CreateItem)
		r.Post("/search", s.SearchItems)
		r.Get("/{id}", s.GetItem)
		r.Post("/{id}/notes", s.CreateNote)
		r.Post("/{id}/notes/search", s.SearchNotes)
	})
}

// CreateItem handles POST /v1/items.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewItem
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	it, err := s.catalog.CreateItem(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// GetItem handles GET /v1/items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.catalog.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// CreateNote handles POST /v1/items/{id}/notes.
func (s *Server) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewNote
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	n, err := s.catalog.CreateNote(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// SearchItems handles POST /v1/items/search.
func (s *Server) SearchItems(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := s.searchContext(r.Context())
	defer cancel()

	res, err := s.catalog.SearchItems(ctx, q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SearchNotes handles POST /v1/items/{id}/notes/search.
func (s *Server) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	ctx, cancel := s.searchContext(r.Context())
	defer cancel()

	res, err := s.catalog.SearchNotes(ctx, chi.URLParam(r, "id"), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, dbStatus, code := "healthy", "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		status, dbStatus, code = "unhealthy", "unreachable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": map[string]string{"database": dbStatus},
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) searchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// decodeQuery reads a search query from a JSON or protobuf body. An empty
// body lists everything.
func decodeQuery(r *http.Request) (*query.SearchQuery, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return query.All(), nil
	}

	mediaType := contentTypeJSON
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}

	switch mediaType {
	case contentTypeProto:
		q, err := wire.UnmarshalQuery(body)
		if err != nil {
			return nil, fmt.Errorf("invalid protobuf query: %w", err)
		}
		return q, nil
	case contentTypeJSON:
		var q query.SearchQuery
		if err := json.Unmarshal(body, &q); err != nil {
			return nil, fmt.Errorf("invalid JSON query: %w", err)
		}
		return &q, nil
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// compileErrorHandler reports rejected conditions with the offending field.
func compileErrorHandler(w http.ResponseWriter, err error) bool {
	var ce *query.CompileError
	if !errors.As(err, &ce) {
		return false
	}
	code := CodeBadRequest
	switch {
	case errors.Is(err, query.ErrInvalidOperator):
		code = CodeInvalidOperator
	case errors.Is(err, query.ErrInvalidField):
		code = CodeInvalidField
	case errors.Is(err, query.ErrMissingValue):
		code = CodeMissingValue
	case errors.Is(err, query.ErrInvalidSort):
		code = CodeInvalidSort
	}
	writeError(w, http.StatusBadRequest, code, ce.Error())
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}
