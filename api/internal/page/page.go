// Package page serves the interactive upload page: pick one image, see it
// next to the recognized text.
package page

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"handwriting-ocr/api/internal/logging"
	"handwriting-ocr/api/internal/ocr"
	"handwriting-ocr/api/internal/util"
)

const title = "Text Extraction API with TrOCR"

type Options struct {
	MaxMultipartMemory int64
	Logger             *slog.Logger
}

type Page struct {
	rec    *ocr.Recognizer
	logger *slog.Logger
	tmpl   *template.Template
	maxMem int64
}

type view struct {
	Title   string
	Engines []string
	Engine  string
	Words   bool

	ImageURL template.URL
	Filename string
	Text     string
	Lines    []ocr.Word
	Error    string
}

func New(rec *ocr.Recognizer, opts Options) *Page {
	p := &Page{
		rec:    rec,
		logger: opts.Logger,
		tmpl:   template.Must(template.New("index").Parse(indexHTML)),
		maxMem: opts.MaxMultipartMemory,
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.maxMem <= 0 {
		p.maxMem = 32 << 20
	}
	return p
}

// Router builds the gin engine for the page listener.
func (p *Page) Router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = p.maxMem
	r.Use(gin.Recovery(), p.accessLog())
	r.SetHTMLTemplate(p.tmpl)

	r.GET("/", p.index)
	r.POST("/", p.upload)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func (p *Page) baseView() view {
	return view{
		Title:   title,
		Engines: p.rec.Engines().Names(),
		Engine:  p.rec.Engines().DefaultName(),
	}
}

func (p *Page) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index", p.baseView())
}

func (p *Page) upload(c *gin.Context) {
	v := p.baseView()
	if e := c.PostForm("engine"); e != "" {
		v.Engine = e
	}
	v.Words = c.PostForm("words") != ""

	fh, err := c.FormFile("file")
	if err != nil {
		v.Error = "Choose an image..."
		c.HTML(http.StatusBadRequest, "index", v)
		return
	}
	v.Filename = fh.Filename
	f, err := fh.Open()
	if err != nil {
		p.fail(c, v, err)
		return
	}
	raw, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		p.fail(c, v, err)
		return
	}

	if v.Words {
		v.Lines, err = p.rec.ReadWords(c.Request.Context(), v.Engine, raw)
	} else {
		v.Text, err = p.rec.ExtractWith(c.Request.Context(), v.Engine, raw)
	}
	if err != nil {
		p.fail(c, v, err)
		return
	}
	v.ImageURL = template.URL(util.MakeDataURL(util.SniffMimeHTTP(raw), base64.StdEncoding.EncodeToString(raw)))
	c.HTML(http.StatusOK, "index", v)
}

func (p *Page) fail(c *gin.Context, v view, err error) {
	p.logger.Error("page_extract_failed", "file", v.Filename, "engine", v.Engine, "error", err.Error())
	v.Error = fmt.Sprintf("Recognition failed: %v", err)
	c.HTML(http.StatusInternalServerError, "index", v)
}

func (p *Page) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		p.logger.Info("page_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
