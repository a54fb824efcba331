// Package respond renders router-level failures (unknown routes, wrong methods,
// panics) as RFC 9457 problem details in JSON or CBOR.
package respond

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/simple-web-app/internal/platform/logging"
)

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"

	// schemaPath is where huma serves the ErrorModel JSON Schema.
	schemaPath = "/schemas/ErrorModel.json"

	msgNotFound            = "resource not found"
	msgInternalServerError = "internal server error"
)

// problem mirrors huma.ErrorModel and adds the $schema reference huma emits for its own errors.
type problem struct {
	Schema string              `json:"$schema,omitempty" cbor:"$schema,omitempty"`
	Title  string              `json:"title,omitempty"   cbor:"title,omitempty"`
	Status int                 `json:"status,omitempty"  cbor:"status,omitempty"`
	Detail string              `json:"detail,omitempty"  cbor:"detail,omitempty"`
	Errors []*huma.ErrorDetail `json:"errors,omitempty"  cbor:"errors,omitempty"`
}

// NotFoundHandler emits a 404 problem response.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler emits a 405 problem response with an Allow header
// listing the methods the route tree accepts for the path.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		writeProblem(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	}
}

// Recoverer converts panics into 500 problem responses.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection,
// and nothing is written when the handler already started its response.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity per net/http
					panic(rec)
				}
				fields := []zap.Field{
					zap.String("panic", fmt.Sprint(rec)),
					zap.ByteString("stack", debug.Stack()),
				}
				if rw.wroteHeader {
					applog.LogError(r.Context(), "panic after response started", nil, fields...)
					return
				}
				applog.LogError(r.Context(), "panic recovered", nil, fields...)
				writeProblem(rw, r, http.StatusInternalServerError, msgInternalServerError)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// WriteRedirect writes a redirect with the Location header and no body.
func WriteRedirect(w http.ResponseWriter, r *http.Request, location string, status int) {
	w.Header().Set("Location", location)
	w.WriteHeader(status)
	applog.LogInfo(r.Context(), "redirect",
		zap.Int("status", status),
		zap.String("from", r.URL.Path),
		zap.String("location", location),
	)
}

// responseWriter records whether the response has been started.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	useCBOR := selectFormat(r.Header.Get("Accept"))
	schema := schemaURL(r)
	body := problem{
		Schema: schema,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}

	var (
		payload     []byte
		contentType string
		err         error
	)
	if useCBOR {
		contentType = contentTypeProblemCBOR
		payload, err = cbor.Marshal(body)
	} else {
		contentType = contentTypeProblemJSON
		payload, err = marshalJSON(body)
	}
	if err != nil {
		applog.LogError(r.Context(), "failed to encode problem", err, zap.Int("status", status))
		http.Error(w, http.StatusText(status), status)
		return
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Link", "<"+schema+">; rel=\"describedBy\"")
	ensureVary(h, "Origin", "Accept")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		applog.LogError(r.Context(), "failed to write problem", err, zap.Int("status", status))
		return
	}

	fields := []zap.Field{zap.Int("status", status), zap.String("detail", detail)}
	if status >= http.StatusInternalServerError {
		applog.LogError(r.Context(), http.StatusText(status), nil, fields...)
		return
	}
	applog.LogWarn(r.Context(), http.StatusText(status), fields...)
}

// marshalJSON encodes without HTML escaping so paths echoed in details stay readable.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func schemaURL(r *http.Request) string {
	if r.Host == "" {
		return schemaPath
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + schemaPath
}

// ensureVary appends each value to Vary unless it is already listed.
func ensureVary(h http.Header, values ...string) {
	seen := make(map[string]struct{})
	for _, v := range h.Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			if token := strings.ToLower(strings.TrimSpace(part)); token != "" {
				seen[token] = struct{}{}
			}
		}
	}
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		h.Add("Vary", v)
	}
}

// allowedMethods probes chi's route tree for every method matching the request path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	var allowed []string
	for _, method := range methods {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

// mediaRange is one element of an Accept header.
type mediaRange struct {
	typ     string
	subtype string
	q       float64
}

// parseAccept splits an Accept header into media ranges. Malformed or
// out-of-range q values count as 1.0; a bare type means type/*.
func parseAccept(header string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(header, ",") {
		params := strings.Split(part, ";")
		mt := strings.ToLower(strings.TrimSpace(params[0]))
		if mt == "" {
			continue
		}
		mr := mediaRange{q: 1.0}
		if typ, sub, ok := strings.Cut(mt, "/"); ok {
			mr.typ, mr.subtype = strings.TrimSpace(typ), strings.TrimSpace(sub)
		} else {
			mr.typ, mr.subtype = mt, "*"
		}
		for _, p := range params[1:] {
			key, val, ok := strings.Cut(p, "=")
			if !ok || strings.ToLower(strings.TrimSpace(key)) != "q" {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil || q < 0 || q > 1 {
				q = 1.0
			}
			mr.q = q
		}
		ranges = append(ranges, mr)
	}
	return ranges
}

// specificity ranks how precisely a range names a media type, higher is more specific.
func (m mediaRange) specificity() int {
	switch {
	case m.typ == "*":
		return 0
	case m.subtype == "*":
		return 1
	case strings.HasPrefix(m.subtype, "*+"):
		return 2
	case strings.Contains(m.subtype, "+"):
		return 4
	default:
		return 3
	}
}

func (m mediaRange) matches(typ, subtype string) bool {
	if m.typ == "*" {
		return m.subtype == "*"
	}
	if m.typ != typ {
		return false
	}
	switch {
	case m.subtype == "*":
		return true
	case strings.HasPrefix(m.subtype, "*+"):
		return strings.HasSuffix(subtype, m.subtype[1:])
	default:
		return m.subtype == subtype
	}
}

// preference is the q value and specificity with which a client accepts a format.
type preference struct {
	q    float64
	rank int
}

func (p preference) better(o preference) bool {
	return p.q > o.q || (p.q == o.q && p.rank > o.rank)
}

// accepted scores a format by its best-accepted media type. For each type the
// most specific matching range decides its q value (RFC 9110 section 12.5.1).
func accepted(ranges []mediaRange, subtypes ...string) preference {
	var best preference
	for _, sub := range subtypes {
		var (
			match preference
			found bool
		)
		for _, r := range ranges {
			if !r.matches("application", sub) {
				continue
			}
			if s := r.specificity(); !found || s > match.rank {
				match = preference{q: r.q, rank: s}
				found = true
			}
		}
		if found && match.better(best) {
			best = match
		}
	}
	return best
}

// selectFormat reports whether CBOR should be used for a problem response.
// JSON wins ties and is the fallback when nothing acceptable matches.
func selectFormat(accept string) bool {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return false
	}
	cborPref := accepted(ranges, "cbor", "problem+cbor")
	if cborPref.q <= 0 {
		return false
	}
	return cborPref.better(accepted(ranges, "json", "problem+json"))
}
