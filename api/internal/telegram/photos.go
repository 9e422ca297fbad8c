package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"handwriting-ocr/api/internal/ocr"
)

func (r *Router) acceptImage(ctx context.Context, cid int64, fileID string) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	img, err := r.Download(ctx, url)
	if err != nil {
		r.SendError(cid, fmt.Errorf("download: %w", err))
		return
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	eng := r.EngManager.Get(cid).Name()
	start := time.Now()

	var text string
	if isWordMode(cid) {
		var words []ocr.Word
		words, err = r.Rec.ReadWords(ctx, eng, img)
		text = formatWords(words)
	} else {
		text, err = r.Rec.ExtractWith(ctx, eng, img)
	}
	if err != nil {
		r.Logger.Error("telegram_recognize_failed", "chat_id", cid, "engine", eng, "error", err.Error())
		if errors.Is(err, ocr.ErrDecode) {
			r.send(cid, "This file does not look like an image I can read.")
			return
		}
		r.SendError(cid, err)
		return
	}
	r.Logger.Info("telegram_recognized", "chat_id", cid, "engine", eng, "chars", len(text),
		"duration_ms", time.Since(start).Milliseconds())
	r.SendResult(cid, text)
}

// formatWords prints one detected line per row. A word starts a new row when
// it begins left of the previous word's right edge.
func formatWords(words []ocr.Word) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			if w.BBox.X0 < words[i-1].BBox.X1 {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Text)
	}
	return b.String()
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
