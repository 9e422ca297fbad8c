package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"handwriting-ocr/api/internal/logging"
	"handwriting-ocr/api/internal/ocr"
)

// maxMessage keeps replies under Telegram's 4096 character limit.
const maxMessage = 3900

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot        Bot
	Rec        *ocr.Recognizer
	EngManager *ocr.Manager
	Logger     *slog.Logger

	// Download fetches a file URL; nil means a plain HTTP GET.
	Download func(ctx context.Context, url string) ([]byte, error)
	// Timeout bounds one recognition; 0 means no limit.
	Timeout time.Duration
}

func NewRouter(bot Bot, rec *ocr.Recognizer, logger *slog.Logger) *Router {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Router{
		Bot:        bot,
		Rec:        rec,
		EngManager: ocr.NewManager(rec.Engines().Default()),
		Logger:     logger,
		Download:   download,
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	switch {
	case msg.IsCommand():
		r.HandleCommand(msg)
	case len(msg.Photo) > 0:
		// берём самое большое превью
		r.acceptImage(ctx, msg.Chat.ID, msg.Photo[len(msg.Photo)-1].FileID)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptImage(ctx, msg.Chat.ID, msg.Document.FileID)
	case msg.Document != nil:
		r.send(msg.Chat.ID, "Only image files can be recognized. Send a photo or a PNG/JPEG document.")
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, "Send a photo of handwritten text and I will reply with the transcription.\n"+
			"Commands: /engine [name], /words, /health")
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	case "words":
		on := toggleWordMode(cid)
		if on {
			r.send(cid, "Word mode on: I will detect words first and list them line by line.")
		} else {
			r.send(cid, "Word mode off: the whole image is recognized at once.")
		}
	default:
		r.send(cid, "Unknown command")
	}
}

// handleEngineCommand switches the chat's engine.
//
//	/engine          shows the current engine with a picker
//	/engine <name>   switches directly
func (r *Router) handleEngineCommand(chatID int64, args string) {
	name := strings.ToLower(strings.TrimSpace(args))
	if name == "" {
		msg := tgbotapi.NewMessage(chatID, "Current engine: "+r.currentEngine(chatID))
		msg.ReplyMarkup = makeEngineKeyboard(r.Rec.Engines().Names())
		r.sendMsg(msg)
		return
	}
	if err := r.switchEngine(chatID, name); err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	r.send(chatID, "✅ Engine: "+r.currentEngine(chatID))
}

func (r *Router) switchEngine(chatID int64, name string) error {
	eng, err := r.Rec.Engines().GetEngine(name)
	if err != nil {
		return err
	}
	r.EngManager.Set(chatID, eng)
	return nil
}

func (r *Router) currentEngine(chatID int64) string {
	eng := r.EngManager.Get(chatID)
	return fmt.Sprintf("%s (%s)", eng.Name(), eng.GetModel())
}

func (r *Router) send(chatID int64, text string) {
	r.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMsg(msg tgbotapi.MessageConfig) {
	if _, err := r.Bot.Send(msg); err != nil {
		r.Logger.Warn("telegram_send_failed", "chat_id", msg.ChatID, "error", err.Error())
	}
}

func (r *Router) SendResult(chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		text = "(no text found)"
	}
	if len(text) > maxMessage {
		text = truncate(text, maxMessage) + "…"
	}
	r.send(chatID, "📝 Extracted Text:\n\n"+text)
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Recognition failed: %v", err))
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
