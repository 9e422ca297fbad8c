package handle

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"handwriting-ocr/api/internal/ocr"
)

const noFiles = "No files uploaded"

type ExtractResponse struct {
	Texts []string `json:"texts"`
}

// Extract recognizes every file of the multipart field "files" and answers
// with the texts in upload order. One bad file fails the whole batch.
func (h *Handle) Extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	files, engine, ok := h.parseUpload(w, r, "files")
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, noFiles)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	texts := make([]string, 0, len(files))
	for _, fh := range files {
		raw, err := readPart(fh)
		if err != nil {
			h.writeFailure(w, r, "extract", err)
			return
		}
		text, err := h.rec.ExtractWith(ctx, engine, raw)
		if err != nil {
			h.writeFailure(w, r, "extract", fmt.Errorf("%s: %w", fh.Filename, err))
			return
		}
		texts = append(texts, text)
	}
	h.logger.Info("extract_done", "files", len(files), "engine", engineLabel(h.rec, engine))
	writeJSON(w, http.StatusOK, ExtractResponse{Texts: texts})
}

// parseUpload parses the multipart body and validates the optional "engine"
// field. A body that is not multipart counts as an upload without files.
// When ok is false the response has already been written.
func (h *Handle) parseUpload(w http.ResponseWriter, r *http.Request, field string) (files []*multipart.FileHeader, engine string, ok bool) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			h.logger.Warn("multipart_parse_failed", "path", r.URL.Path, "error", err.Error())
		}
		writeError(w, http.StatusBadRequest, noFiles)
		return nil, "", false
	}
	engine = r.FormValue("engine")
	if _, err := h.rec.Engines().GetEngine(engine); err != nil {
		_ = r.MultipartForm.RemoveAll()
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}
	return r.MultipartForm.File[field], engine, true
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return b, nil
}

func engineLabel(rec *ocr.Recognizer, name string) string {
	if name == "" {
		return rec.Engines().DefaultName()
	}
	return name
}
