package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/gallery-backend/api/responses"
	pkgerrors "github.com/angelmondragon/gallery-backend/pkg/errors"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
)

// BodyLimit rejects bodies whose declared length exceeds maxBytes and caps the
// rest with http.MaxBytesReader, so oversized uploads are never fully buffered.
// Handlers detect the cap through *http.MaxBytesError.
func BodyLimit(maxBytes int64, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				err := pkgerrors.New(pkgerrors.CodePayloadTooLarge, fmt.Sprintf("content length %d exceeds %d bytes", r.ContentLength, maxBytes))
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
