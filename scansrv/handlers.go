package scansrv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rusq/docscan"
	"github.com/rusq/docscan/bitmap"
	"github.com/rusq/docscan/scanjob"
)

// formField is the multipart form field with the image.
const formField = "image"

var errBadParam = errors.New("invalid parameter")

// scanOptions converts the query parameters to the scanner options.
// Setting contrast or brightness enables the enhance pre-pass unless
// enhance is explicitly false.
func scanOptions(q url.Values) ([]docscan.Option, error) {
	var opts []docscan.Option

	intParam := func(name string) (int, error) {
		v, err := strconv.Atoi(q.Get(name))
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, q.Get(name))
		}
		return v, nil
	}
	floatParam := func(name string, lo, hi float64) (float64, error) {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil || v < lo || hi < v {
			return 0, fmt.Errorf("%w: %s=%q, must be in [%g, %g]", errBadParam, name, q.Get(name), lo, hi)
		}
		return v, nil
	}

	var width, height int
	if q.Has("max_width") {
		v, err := intParam("max_width")
		if err != nil {
			return nil, err
		}
		width = v
	}
	if q.Has("max_height") {
		v, err := intParam("max_height")
		if err != nil {
			return nil, err
		}
		height = v
	}
	if width > 0 || height > 0 {
		opts = append(opts, docscan.WithMaxSize(width, height))
	}
	if q.Has("quality") {
		v, err := floatParam("quality", 0, 1)
		if err != nil {
			return nil, err
		}
		opts = append(opts, docscan.WithQuality(v))
	}
	if m := q.Get("method"); m != "" {
		if _, err := bitmap.Method(m); err != nil {
			return nil, fmt.Errorf("%w: method=%q: %w", errBadParam, m, err)
		}
		opts = append(opts, docscan.WithMethod(m))
	}
	var adjust bool
	for _, name := range []string{"contrast", "brightness"} {
		if !q.Has(name) {
			continue
		}
		v, err := floatParam(name, -100, 100)
		if err != nil {
			return nil, err
		}
		if name == "contrast" {
			opts = append(opts, docscan.WithContrast(v))
		} else {
			opts = append(opts, docscan.WithBrightness(v))
		}
		adjust = true
	}
	enhance := adjust
	if q.Has("enhance") {
		v, err := strconv.ParseBool(q.Get("enhance"))
		if err != nil {
			return nil, fmt.Errorf("%w: enhance=%q", errBadParam, q.Get("enhance"))
		}
		enhance = v
	}
	if enhance {
		opts = append(opts, docscan.WithEnhance(true))
	}
	return opts, nil
}

// readDocument returns the uploaded image and its name.  The image is either
// the request body or the "image" field of the multipart form.
func readDocument(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxDocumentSize)
	name := r.URL.Query().Get("name")

	var src io.Reader = r.Body
	if mt, _, err := mime.ParseMediaType(r.Header.Get(hdrContentType)); err == nil && mt == "multipart/form-data" {
		f, fh, err := r.FormFile(formField)
		if err != nil {
			return nil, "", fmt.Errorf("%w: form field %q: %w", errBadParam, formField, err)
		}
		defer f.Close()
		if name == "" {
			name = fh.Filename
		}
		src = f
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty document", errBadParam)
	}
	return data, name, nil
}

// statusCode returns the HTTP status for the error.
func statusCode(err error) int {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadParam), errors.Is(err, bitmap.ErrUnknownMethod):
		return http.StatusBadRequest
	case docscan.IsDecodeError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scanjob.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, scanjob.ErrJobNotDone), errors.Is(err, scanjob.ErrJobActive):
		return http.StatusConflict
	case errors.Is(err, scanjob.ErrSpoolClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	lg := slog.With("endpoint", "scan")
	opts, err := scanOptions(r.URL.Query())
	if err != nil {
		httpErrorMsg(w, http.StatusBadRequest, err)
		return
	}
	data, name, err := readDocument(w, r)
	if err != nil {
		lg.WarnContext(r.Context(), "failed to read the document", "error", err)
		httpErrorMsg(w, statusCode(err), err)
		return
	}

	sc := docscan.New(slices.Concat(s.base, opts)...)
	var buf bytes.Buffer
	start := time.Now()
	pg, err := sc.Scan(bytes.NewReader(data), &buf)
	if err != nil {
		lg.WarnContext(r.Context(), "scan failed", "name", name, "error", err)
		httpErrorMsg(w, statusCode(err), err)
		return
	}
	lg.InfoContext(r.Context(), "scanned", "name", name, "size", len(data), "output_size", buf.Len(), "took", time.Since(start))

	setPageHeaders(w.Header(), pg)
	w.Header().Set(hdrContentType, jpegMIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		lg.ErrorContext(r.Context(), "failed to write the response", "error", err)
	}
}

func setPageHeaders(h http.Header, pg *docscan.Page) {
	h.Set("X-Scan-Source-Size", fmt.Sprintf("%dx%d", pg.SourceWidth, pg.SourceHeight))
	h.Set("X-Scan-Size", fmt.Sprintf("%dx%d", pg.Bounds.Dx(), pg.Bounds.Dy()))
	h.Set("X-Scan-Scale", strconv.FormatFloat(pg.Scale, 'f', 4, 64))
	h.Set("X-Scan-Method", pg.Method)
	h.Set("X-Scan-Cropped", strconv.FormatBool(pg.Cropped))
	h.Set("X-Scan-White-Ratio", strconv.FormatFloat(pg.WhiteRatio, 'f', 4, 64))
	h.Set("X-Scan-Blank", strconv.FormatBool(pg.Blank))
	h.Set("X-Scan-Document", strconv.FormatBool(pg.Document))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	opts, err := scanOptions(r.URL.Query())
	if err != nil {
		httpErrorMsg(w, http.StatusBadRequest, err)
		return
	}
	data, name, err := readDocument(w, r)
	if err != nil {
		httpErrorMsg(w, statusCode(err), err)
		return
	}
	var sopts []scanjob.SubmitOption
	if len(opts) > 0 || len(s.base) > 0 {
		sopts = append(sopts, scanjob.WithProcessor(docscan.New(slices.Concat(s.base, opts)...)))
	}
	job, err := s.sp.Submit(r.Context(), name, data, sopts...)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to submit the job", "error", err)
		httpErrorMsg(w, statusCode(err), err)
		return
	}
	w.Header().Set(hdrLocation, "/jobs/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sp.List())
}

// jobID returns the job ID from the path, if the ID is malformed, it writes
// 404 and returns false.
func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		slog.DebugContext(r.Context(), "invalid job ID", "error", err, "id", r.PathValue("id"))
		httpError(w, http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.sp.Get(id)
	if err != nil {
		httpErrorMsg(w, statusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	data, err := s.sp.Result(id)
	if err != nil {
		httpErrorMsg(w, statusCode(err), err)
		return
	}
	if job, err := s.sp.Get(id); err == nil && job.Page != nil {
		setPageHeaders(w.Header(), job.Page)
	}
	w.Header().Set(hdrContentType, jpegMIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.sp.Cancel(id)
	if err != nil {
		httpErrorMsg(w, statusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if err := s.sp.Remove(id); err != nil {
		httpErrorMsg(w, statusCode(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type methodInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default,omitempty"`
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	var mm []methodInfo
	for _, name := range bitmap.AllMethods() {
		mm = append(mm, methodInfo{
			Name:        name,
			Description: bitmap.MethodDescription(name),
			Default:     name == bitmap.DefaultMethod,
		})
	}
	writeJSON(w, http.StatusOK, mm)
}

type health struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds"`
	Jobs   int     `json:"jobs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, health{
		Status: "ok",
		Uptime: time.Since(s.start).Seconds(),
		Jobs:   len(s.sp.List()),
	})
}

func writeJSON(w http.ResponseWriter, code int, a any) {
	w.Header().Set(hdrContentType, jsonMIMEType)
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	if Debug {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(a); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
