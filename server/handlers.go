package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ZaguanLabs/honyaku"
	"github.com/ZaguanLabs/honyaku/cache"
	"github.com/rs/zerolog/hlog"
)

// Messages shown on the index page.
const (
	MsgEmptyInput    = "Please enter Japanese text or upload an image."
	MsgInvalidInput  = "Invalid input. Please enter Japanese text only."
	MsgNoTextInImage = "No Japanese text found in image."
	MsgTrimmed       = "**Text in image has exceeded the allowed limit. Extra characters are trimmed."
	MsgUnavailable   = "Unable to process request. Please try again later."
	MsgTooLarge      = "The uploaded file is too large."
)

// Form field names.
const (
	fieldText  = "jp_text"
	fieldImage = "image_file"
)

// pageData is the template context for both pages.
type pageData struct {
	MaxTextLength int
	ErrorMessage  string
	Text          string // echoed back into the form

	InputText   string
	Key         string
	Translation string

	Debug     bool
	TimeTaken string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", s.newPage())
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := s.newPage()
	log := hlog.FromRequest(r)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			page.ErrorMessage = MsgTooLarge
			s.render(w, r, http.StatusRequestEntityTooLarge, "index.html", page)
			return
		}
		log.Warn().Err(err).Msg("parse form")
		page.ErrorMessage = MsgInvalidInput
		s.render(w, r, http.StatusBadRequest, "index.html", page)
		return
	}

	text := strings.TrimSpace(r.FormValue(fieldText))
	page.Text = text

	// Typed text over the limit is rejected even when an image is attached.
	if utf8.RuneCountInString(text) > s.svc.MaxTextLength() {
		page.ErrorMessage = MsgInvalidInput
		s.render(w, r, http.StatusOK, "index.html", page)
		return
	}

	image, contentType, err := readUpload(r)
	if err != nil {
		log.Warn().Err(err).Msg("read upload")
		page.ErrorMessage = MsgInvalidInput
		s.render(w, r, http.StatusOK, "index.html", page)
		return
	}

	if text == "" && image == nil {
		page.ErrorMessage = MsgEmptyInput
		s.render(w, r, http.StatusOK, "index.html", page)
		return
	}

	var timings []string

	if image != nil {
		start := time.Now()
		extracted, err := s.svc.ExtractText(ctx, image, contentType)
		timings = append(timings, fmt.Sprintf("%.2f seconds (OCR)", time.Since(start).Seconds()))

		var inputErr *honyaku.InputError
		switch {
		case errors.Is(err, honyaku.ErrNoTextFound):
			page.ErrorMessage = MsgNoTextInImage
		case errors.As(err, &inputErr):
			page.ErrorMessage = MsgInvalidInput
		case err != nil:
			page.ErrorMessage = MsgUnavailable
		}
		if err != nil {
			s.render(w, r, http.StatusOK, "index.html", page)
			return
		}

		text = extracted
		if trimmed, ok := s.svc.Truncate(text); ok {
			text = trimmed
			page.ErrorMessage = MsgTrimmed
		}
	} else if err := s.svc.CheckInput(text); err != nil {
		page.ErrorMessage = MsgInvalidInput
		s.render(w, r, http.StatusOK, "index.html", page)
		return
	}

	result, err := s.svc.Translate(ctx, text)
	if err != nil {
		page.ErrorMessage = MsgUnavailable
		s.render(w, r, http.StatusOK, "index.html", page)
		return
	}
	timings = append(timings, fmt.Sprintf("%.2f seconds (translation)", result.Elapsed.Seconds()))

	page.InputText = text
	page.Key = result.Key
	page.Translation = result.Translation
	if s.debug {
		page.TimeTaken = "Time Taken:  " + strings.Join(timings, ", ")
	}

	s.render(w, r, http.StatusOK, "translate.html", page)
}

// handleAnalyze always answers 200 with a JSON document; failures yield {}.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))

	doc, err := s.svc.Analyze(r.Context(), key)
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Str("key", key).Msg("analysis unavailable")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleCacheDump(exporter *cache.Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		metadata := map[string]string{"service": honyaku.Name, "version": honyaku.Version}
		if err := exporter.Export(&buf, metadata); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("export cache")
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = buf.WriteTo(w)
	}
}

func (s *Server) newPage() pageData {
	return pageData{
		MaxTextLength: s.svc.MaxTextLength(),
		Debug:         s.debug,
	}
}

// render executes the template into a buffer so a template error can still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// readUpload returns the uploaded image, or nil when none was sent.
func readUpload(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile(fieldImage)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		// An empty upload still counts as an image with nothing in it.
		data = []byte{}
	}
	return data, header.Header.Get("Content-Type"), nil
}
