package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

// DefaultMaxBodySize caps request bodies when the server config leaves it 0.
const DefaultMaxBodySize int64 = 1 << 20

// orgFromRequest returns the organization injected by the organization middleware.
func orgFromRequest(r *http.Request) string {
	return common.OrganizationFromContext(r.Context())
}

func actorFromRequest(r *http.Request) string {
	return common.ActorFromContext(r.Context())
}

// parsePagination extracts page and page_size from query parameters.
func parsePagination(r *http.Request) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: common.DefaultPageSize}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.PageSize = n
		}
	}
	return p.Normalize()
}

// queryList splits a comma-separated query value, also accepting repeats.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewValidationError(key, "must be an integer")
	}
	return n, nil
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.New(errors.ErrCodeBadRequest, "request body too large")
		case stderrors.Is(err, io.EOF):
			return errors.New(errors.ErrCodeBadRequest, "request body is empty")
		default:
			return errors.Wrap(err, errors.ErrCodeBadRequest, "malformed JSON body")
		}
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// writeAppError maps the error code to its HTTP status. Server-side failures
// are logged and masked.
func writeAppError(w http.ResponseWriter, logger logging.Logger, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	body := ErrorBody{Code: string(code)}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Detail = appErr.Detail
	} else {
		body.Message = err.Error()
	}

	if errors.IsServerError(code) {
		if logger != nil {
			logger.Error("Request failed", logging.Err(err), logging.String("code", string(code)))
		}
		body.Message = errors.DefaultMessageForCode(code)
		body.Detail = ""
	}
	writeJSON(w, status, ErrorResponse{Error: body})
}

// writeBatch answers 200 when anything succeeded and 422 when the whole batch
// failed. The body is the same either way.
func writeBatch(w http.ResponseWriter, res *common.BatchResult) {
	status := http.StatusOK
	if res.TotalFailure() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

//Personal.AI order the ending
