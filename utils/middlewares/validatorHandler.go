package middlewares

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"reflect"

	"github.com/Gamequic/ProfileDirectory/utils"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// ValidatorHandler decodes the JSON body into a fresh value of structType and
// validates it. Handlers behind it can decode the body again without checks.
func ValidatorHandler(structType reflect.Type) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				panic(HTTPError{Code: http.StatusBadRequest, Message: "Invalid request payload"})
			}
			r.Body.Close()

			target := reflect.New(structType).Interface()
			if err := json.Unmarshal(body, target); err != nil {
				panic(HTTPError{Code: http.StatusBadRequest, Message: "Invalid request payload"})
			}

			if err := utils.Validate.Struct(target); err != nil {
				panic(HTTPError{
					Code:    http.StatusBadRequest,
					Message: "Validation failed",
					Fields:  utils.ValidationMessages(err),
				})
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
