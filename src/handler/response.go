package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradingjournal/src/auth"
	"tradingjournal/src/exceptions"
	"tradingjournal/src/model"
)

var exceptionRecorder exceptions.Recorder

// SetExceptionRecorder sets where unexpected handler failures are persisted.
func SetExceptionRecorder(r exceptions.Recorder) {
	exceptionRecorder = r
}

type validationItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func writeValidation(w http.ResponseWriter, errs model.ValidationErrors) {
	items := make([]validationItem, 0, len(errs))
	for _, fe := range errs {
		items = append(items, validationItem{
			Loc:  []string{"body", fe.Field},
			Msg:  fe.Message,
			Type: "value_error",
		})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": items})
}

// writeError answers a validation error with 422 and anything else with a
// captured 500.
func writeError(w http.ResponseWriter, r *http.Request, method string, err error) {
	var verrs model.ValidationErrors
	if errors.As(err, &verrs) {
		writeValidation(w, verrs)
		return
	}
	internalError(w, r, method, err, nil)
}

func internalError(w http.ResponseWriter, r *http.Request, method string, err error, data map[string]interface{}) {
	captureFailure(r.Context(), method, err, data)
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func captureFailure(ctx context.Context, method string, err error, data map[string]interface{}) {
	exceptions.Capture(ctx, exceptionRecorder, "api", "handler", method, exceptions.LevelError, err, data)
}

// decodeJSON reads the body into dst and answers 422 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		msg := "Invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "field required"
		}
		logger.WithError(err).Warn("invalid request payload")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []validationItem{{Loc: []string{"body"}, Msg: msg, Type: "value_error.jsondecode"}},
		})
		return false
	}
	return true
}

func jsonDecodeLenient(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok || user == nil {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	return user, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []validationItem{{Loc: []string{"path", name}, Msg: "value is not a valid integer", Type: "type_error.integer"}},
		})
		return 0, false
	}
	return uint(id), true
}

// pagination reads limit/offset with a default and an upper bound on limit.
func pagination(w http.ResponseWriter, r *http.Request, defaultLimit, maxLimit int) (int, int, bool) {
	limit, offset := defaultLimit, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			writeQueryError(w, "limit", "ensure this value is between 1 and "+strconv.Itoa(maxLimit))
			return 0, 0, false
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeQueryError(w, "offset", "ensure this value is greater than or equal to 0")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func writeQueryError(w http.ResponseWriter, name, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"detail": []validationItem{{Loc: []string{"query", name}, Msg: msg, Type: "value_error"}},
	})
}
