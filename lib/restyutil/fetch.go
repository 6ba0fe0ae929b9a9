package restyutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("mycar.lib.restyutil")

var (
	ErrRequestFailed   = errors.New("request failed")
	ErrRequestTimedOut = errors.New("request timed out")
)

// RequestError is returned when the remote end could not be reached or
// answered with a non-2xx status. Status is 0 for transport failures.
type RequestError struct {
	Method string
	Url    string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s request to '%s' has failed: %v", e.Method, e.Url, e.Err)
	}
	return fmt.Sprintf("status %d: %s request to '%s' has failed", e.Status, e.Method, e.Url)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

// TimeoutError is returned when the request context expired or was
// cancelled before a response arrived.
type TimeoutError struct {
	Method string
	Url    string
	Err    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request to '%s' timed out: %v", e.Method, e.Url, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrRequestTimedOut
}

// Kind decides how a response body is normalized.
type Kind int

const (
	KindJson Kind = iota
	KindHtml
)

func (k Kind) String() string {
	switch k {
	case KindHtml:
		return "html"
	default:
		return "json"
	}
}

type Request struct {
	Method string
	Url    string
	// Form is sent url-encoded, it takes precedence over Body.
	Form map[string]string
	Body any
	Kind Kind
}

// Fetch performs exactly one attempt of the request, validates the status
// code and returns the normalized body.
func Fetch(ctx context.Context, client *resty.Client, req Request) (string, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("method", method),
		attribute.String("url", req.Url),
		attribute.String("kind", req.Kind.String()),
	)

	r := client.R().SetContext(ctx)
	if len(req.Form) > 0 {
		r.SetFormData(req.Form)
	} else if req.Body != nil {
		r.SetBody(req.Body)
	}

	res, err := r.Execute(method, req.Url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isTimeout(ctx, err) {
			return "", &TimeoutError{Method: method, Url: req.Url, Err: err}
		}
		return "", &RequestError{Method: method, Url: req.Url, Err: err}
	}
	if !res.IsSuccess() {
		err := &RequestError{Method: method, Url: req.Url, Status: res.StatusCode()}
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	switch req.Kind {
	case KindHtml:
		return CleanHtml(res.String()), nil
	default:
		return CleanJson(res.String()), nil
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var innerWhitespace = regexp.MustCompile(`\s{2,}`)

// CleanHtml normalizes an html body so delimiter scans can treat it as
// plain text.
func CleanHtml(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = innerWhitespace.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, `<\/`, "</")
	return s
}

// CleanJson undoes one level of json string escaping.
func CleanJson(s string) string {
	if s == "" {
		return ""
	}
	s = innerWhitespace.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// NewLimiter allows rps requests per second with a burst of rps, rps of
// zero or less means no limit.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimit makes every request made by client wait on limiter first.
// Register it after InstrumentClient so refused requests are traced.
func RateLimit(client *resty.Client, limiter *rate.Limiter) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		err := limiter.Wait(req.Context())
		if err != nil {
			// the limiter refuses to wait past the deadline without saying so
			// through the error chain
			if _, hasDeadline := req.Context().Deadline(); hasDeadline {
				return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return err
		}
		return nil
	})
}
