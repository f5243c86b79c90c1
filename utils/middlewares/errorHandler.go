package middlewares

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Logger is set by main. The no-op default keeps tests quiet.
var Logger = zap.NewNop()

// HTTPError is panicked by route handlers and turned into a JSON response by ErrorHandler.
type HTTPError struct {
	Code    int
	Message string
	Fields  map[string]string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			if httpErr, ok := rec.(HTTPError); ok {
				if httpErr.Code >= http.StatusInternalServerError {
					Logger.Error(httpErr.Message, zap.String("path", r.URL.Path))
				}
				WriteError(w, httpErr)
				return
			}

			Logger.Error("Unhandled panic",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path),
				zap.ByteString("stacktrace", debug.Stack()),
			)
			WriteError(w, HTTPError{Code: http.StatusInternalServerError, Message: "Internal server error"})
		}()

		next.ServeHTTP(w, r)
	})
}

// WriteError writes {"message": ..., "fields": ...} with the error's status code.
func WriteError(w http.ResponseWriter, e HTTPError) {
	body := map[string]interface{}{"message": e.Message}
	if len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	json.NewEncoder(w).Encode(body)
}
