package backend

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/apiforge-io/apiforge/core/logger"
)

// error codes of the external API
const (
	codeNotFound     = "NOT_FOUND"
	codeValidation   = "VALIDATION_ERROR"
	codeUnauthorized = "UNAUTHORIZED"
	codeConflict     = "CONFLICT"
	codeInternal     = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, `{"error":"internal server error","code":"INTERNAL_ERROR"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message, codeNotFound)
}

func writeValidationError(w http.ResponseWriter, fields []string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  "Missing required fields",
		Code:   codeValidation,
		Fields: fields,
	})
}

// writeInternalError logs the error with full detail server-side and
// reduces it to an opaque message client-side.
func writeInternalError(ctx context.Context, w http.ResponseWriter, err error) {
	logger.FromContext(ctx).WithError(err).Error("internal server error")
	writeError(w, http.StatusInternalServerError, "Internal server error", codeInternal)
}

type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type listResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Meta    listMeta    `json:"meta"`
}

type listMeta struct {
	Total      int      `json:"total"`
	Collection string   `json:"collection"`
	Populated  []string `json:"populated,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, successResponse{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, data interface{}, meta listMeta) {
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: data, Meta: meta})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: message})
}
