package handle

import (
	"net/http"

	"handwriting-ocr/api/internal/ocr"
	"handwriting-ocr/api/internal/segment"
)

type DetectWordsResponse struct {
	Words []segment.Box `json:"words"`
}

type ReadWordsResponse struct {
	Words []ocr.Word `json:"words"`
}

// DetectWords returns word boxes found in the multipart field "file".
func (h *Handle) DetectWords(w http.ResponseWriter, r *http.Request) {
	raw, _, ok := h.singleUpload(w, r)
	if !ok {
		return
	}
	boxes, err := h.rec.DetectWords(raw)
	if err != nil {
		h.writeFailure(w, r, "detect_words", err)
		return
	}
	writeJSON(w, http.StatusOK, DetectWordsResponse{Words: boxes})
}

// ReadWords detects word boxes and recognizes each of them.
func (h *Handle) ReadWords(w http.ResponseWriter, r *http.Request) {
	raw, engine, ok := h.singleUpload(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.requestContext(r)
	defer cancel()

	words, err := h.rec.ReadWords(ctx, engine, raw)
	if err != nil {
		h.writeFailure(w, r, "read_words", err)
		return
	}
	writeJSON(w, http.StatusOK, ReadWordsResponse{Words: words})
}

func (h *Handle) singleUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return nil, "", false
	}
	files, engine, ok := h.parseUpload(w, r, "file")
	if !ok {
		return nil, "", false
	}
	defer r.MultipartForm.RemoveAll()
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return nil, "", false
	}
	raw, err := readPart(files[0])
	if err != nil {
		h.writeFailure(w, r, "upload", err)
		return nil, "", false
	}
	return raw, engine, true
}
