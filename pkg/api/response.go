package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/reportflow/pkg/errors"
)

// errorBody is the failure envelope.
type errorBody struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	DebugID string `json:"debugId,omitempty"`
}

// statusFor maps an error code to an HTTP status by its kind.
func statusFor(code errors.Code) int {
	switch code.Kind() {
	case errors.KindInput:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindRejected:
		return http.StatusConflict
	case errors.KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError answers with the failure envelope. Server-side failures get a
// debug id that is logged with the cause.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)

	body := errorBody{Code: string(code), Error: errors.UserMessage(err), Field: errors.FieldOf(err)}
	if status >= http.StatusInternalServerError {
		body.DebugID = uuid.NewString()
		body.Error = "internal error"
		s.logger.Error("request failed", "path", r.URL.Path, "debug_id", body.DebugID, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched when allowEmpty is set.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF && allowEmpty {
			return nil
		}
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", maxErr.Limit)
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}
