package telegram

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"handwriting-ocr/api/internal/ocr"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests int
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) {
	return "https://files.test/" + fileID, nil
}

func (b *fakeBot) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		t.Fatalf("nothing was sent")
	}
	return b.sent[len(b.sent)-1]
}

type namedEngine struct {
	name string
	text string
	err  error
}

func (e *namedEngine) Name() string     { return e.name }
func (e *namedEngine) GetModel() string { return e.name + "-model" }

func (e *namedEngine) Recognize(context.Context, []byte) (string, error) {
	return e.text, e.err
}

func newRouter(t *testing.T, files map[string][]byte, engines ...ocr.Engine) (*Router, *fakeBot) {
	t.Helper()
	engs, err := ocr.NewEngines(engines[0].Name(), engines...)
	if err != nil {
		t.Fatalf("NewEngines() error = %v", err)
	}
	bot := &fakeBot{}
	r := NewRouter(bot, ocr.NewRecognizer(engs, ocr.RecognizerConfig{}), nil)
	r.Download = func(_ context.Context, url string) ([]byte, error) {
		b, ok := files[strings.TrimPrefix(url, "https://files.test/")]
		if !ok {
			return nil, errors.New("no such file")
		}
		return b, nil
	}
	return r, bot
}

func command(chatID int64, text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func photo(chatID int64, fileID string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID}},
	}}
}

func twoLinePage(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	ink := func(x0, y0, x1, y1 int) {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				img.SetGray(x, y, color.Gray{})
			}
		}
	}
	ink(10, 10, 30, 30)
	ink(120, 10, 140, 30)
	ink(10, 120, 30, 140)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestPhotoIsRecognized(t *testing.T) {
	r, bot := newRouter(t, map[string][]byte{"big": twoLinePage(t)}, &namedEngine{name: "a", text: "hello world"})

	r.HandleUpdate(context.Background(), photo(101, "big"))

	got := bot.last(t).Text
	if !strings.Contains(got, "Extracted Text:") || !strings.Contains(got, "hello world") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestPhotoErrors(t *testing.T) {
	r, bot := newRouter(t, map[string][]byte{"txt": []byte("not an image")},
		&namedEngine{name: "a", text: "x"})

	r.HandleUpdate(context.Background(), photo(102, "txt"))
	if got := bot.last(t).Text; !strings.Contains(got, "does not look like an image") {
		t.Fatalf("unexpected reply %q", got)
	}

	r.HandleUpdate(context.Background(), photo(102, "missing"))
	if got := bot.last(t).Text; !strings.Contains(got, "download") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestEngineCommand(t *testing.T) {
	a := &namedEngine{name: "a", text: "from a"}
	b := &namedEngine{name: "b", text: "from b"}
	r, bot := newRouter(t, map[string][]byte{"p": twoLinePage(t)}, a, b)

	r.HandleUpdate(context.Background(), command(103, "/engine"))
	msg := bot.last(t)
	if !strings.Contains(msg.Text, "a (a-model)") {
		t.Fatalf("unexpected reply %q", msg.Text)
	}
	if _, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Fatalf("expected an engine keyboard")
	}

	r.HandleUpdate(context.Background(), command(103, "/engine nope"))
	if got := bot.last(t).Text; !strings.HasPrefix(got, "❌") {
		t.Fatalf("unknown engine must be rejected, got %q", got)
	}

	r.HandleUpdate(context.Background(), command(103, "/engine B"))
	if got := bot.last(t).Text; !strings.Contains(got, "b (b-model)") {
		t.Fatalf("unexpected reply %q", got)
	}
	r.HandleUpdate(context.Background(), photo(103, "p"))
	if got := bot.last(t).Text; !strings.Contains(got, "from b") {
		t.Fatalf("chat engine not used: %q", got)
	}

	// другие чаты остаются на движке по умолчанию
	r.HandleUpdate(context.Background(), photo(104, "p"))
	if got := bot.last(t).Text; !strings.Contains(got, "from a") {
		t.Fatalf("default engine not used: %q", got)
	}
}

func TestEngineCallback(t *testing.T) {
	r, bot := newRouter(t, nil, &namedEngine{name: "a"}, &namedEngine{name: "b"})

	r.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    enginePrefix + "b",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 105}},
	}})

	if bot.requests != 1 {
		t.Fatalf("callback must be answered")
	}
	if got := r.EngManager.Get(105).Name(); got != "b" {
		t.Fatalf("engine = %q, want b", got)
	}
}

func TestWordMode(t *testing.T) {
	r, bot := newRouter(t, map[string][]byte{"p": twoLinePage(t)}, &namedEngine{name: "a", text: "w"})

	r.HandleUpdate(context.Background(), command(106, "/words"))
	if got := bot.last(t).Text; !strings.Contains(got, "Word mode on") {
		t.Fatalf("unexpected reply %q", got)
	}
	r.HandleUpdate(context.Background(), photo(106, "p"))
	if got := bot.last(t).Text; !strings.HasSuffix(got, "w w\nw") {
		t.Fatalf("expected two lines of words, got %q", got)
	}

	r.HandleUpdate(context.Background(), command(106, "/words"))
	if got := bot.last(t).Text; !strings.Contains(got, "Word mode off") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("привет", 3); got != "п" {
		t.Fatalf("truncate() = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("truncate() = %q", got)
	}
}
