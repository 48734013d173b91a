package http

import (
	"net/http"
	"runtime/debug"
	"strconv"

	commonerrors "github.com/seonho/rest-security-jwt/internal/common/errors"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
	"github.com/seonho/rest-security-jwt/internal/observability/metrics"
)

// Translator converts errors raised anywhere in the filter chain into the
// structured ErrorBody response. It must wrap the authentication filter so
// failures inside the pipeline never escape as bare 500s.
type Translator struct {
	log *logger.Logger
}

func NewTranslator(log *logger.Logger) *Translator {
	return &Translator{log: log}
}

func (t *Translator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				t.log.Criticalf("panic in filter chain: %v\n%s", rec, debug.Stack())
				WriteErrorBody(w, r, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Translate maps a service error to its HTTP response. Unknown errors are
// logged and reported as a generic 500 so internals never leak to clients.
func (t *Translator) Translate(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	ctx := r.Context()

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		status := domainErr.HTTPStatus()

		logFields := logger.Fields{
			"error_code": domainErr.Code(),
			"category":   string(domainErr.Category()),
			"status":     status,
			"action":     "domain_error",
		}
		if t.log.ShouldLog(logger.DEBUG) {
			t.log.WithFields(ctx, logFields).Debugf("domain error: %s", domainErr.Error())
		}

		metrics.DomainErrorsTotal.WithLabelValues(
			string(domainErr.Category()),
			domainErr.Code(),
			strconv.Itoa(status),
		).Inc()
		metrics.HTTPErrorsTotal.WithLabelValues(
			strconv.Itoa(status),
			r.URL.Path,
			r.Method,
		).Inc()

		WriteErrorBody(w, r, status, domainErr.Message())
		return
	}

	t.log.WithFields(ctx, logger.Fields{
		"error":  err.Error(),
		"action": "unhandled_error",
	}).Errorf("unhandled error: %v", err)

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(http.StatusInternalServerError),
		r.URL.Path,
		r.Method,
	).Inc()

	WriteErrorBody(w, r, http.StatusInternalServerError, "internal server error")
}
