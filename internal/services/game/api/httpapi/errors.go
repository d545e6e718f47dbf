package httpapi

import (
	"log"
	"net/http"

	apperrors "github.com/louisbranch/cryptopoly/internal/platform/errors"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// writeError maps err to a status and a localized body. Server-side
// failures are logged once here.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}

	body := errorResponse{
		Error: apperrors.UserMessage(apperrors.ResolveLocale(r.Header.Get("Accept-Language")), err),
		Code:  string(code),
	}
	if e, ok := apperrors.As(err); ok {
		body.Reason = e.Reason
	}
	writeJSON(w, status, body)
}

func invalidRequest(reason, message string) error {
	return apperrors.Rule(apperrors.CodeValidation, reason, message)
}
