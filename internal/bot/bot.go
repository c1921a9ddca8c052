// Package bot answers match requests over Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gndm/catalogmatch/internal/match"
	"github.com/gndm/catalogmatch/internal/matcher"
	"github.com/gndm/catalogmatch/internal/parser"
)

// maxLines caps how many request lines one message may carry.
const maxLines = 20

const usage = `Send me songs and I will find them in the catalog.

/match Artist - Title
/match Title by Artist

Plain messages work too, one song per line.`

// Matcher renders the best catalog match for a query.
type Matcher interface {
	FormatBestMatch(ctx context.Context, q match.Query) (string, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot handles Telegram updates.
type Bot struct {
	api     *tgbotapi.BotAPI
	send    sender
	matcher Matcher
	timeout time.Duration
}

// New connects to the Telegram API with token.
func New(token string, m Matcher) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Printf("[bot] authorized as @%s", api.Self.UserName)
	return &Bot{api: api, send: api, matcher: m, timeout: 30 * time.Second}, nil
}

// Run polls for updates until ctx is canceled. Each message is handled in its
// own goroutine.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Printf("[bot] stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				go b.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.reply(chatID, usage)
		case "match":
			args := msg.CommandArguments()
			if strings.TrimSpace(args) == "" {
				b.reply(chatID, "Usage: /match Artist - Title")
				return
			}
			b.reply(chatID, b.answer(ctx, args))
		default:
			b.reply(chatID, "Unknown command. Use /help to see what I can do.")
		}
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	b.reply(chatID, b.answer(ctx, msg.Text))
}

// answer matches every request line in text and returns one reply line per
// request.
func (b *Bot) answer(ctx context.Context, text string) string {
	queries := parser.ParseLines(text)
	if len(queries) == 0 {
		return "Usage: /match Artist - Title"
	}
	if len(queries) > maxLines {
		queries = queries[:maxLines]
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	lines := make([]string, 0, len(queries))
	for _, q := range queries {
		lines = append(lines, b.answerOne(ctx, q))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) answerOne(ctx context.Context, q match.Query) string {
	formatted, err := b.matcher.FormatBestMatch(ctx, q)
	switch {
	case err == nil:
		return formatted
	case errors.Is(err, matcher.ErrNoMatch):
		return "No match found for " + describe(q)
	default:
		log.Printf("[bot] match %q failed: %v", describe(q), err)
		return "Search failed for " + describe(q) + ", please try again later."
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.send.Send(msg); err != nil {
		log.Printf("[bot] send to %d failed: %v", chatID, err)
	}
}

func describe(q match.Query) string {
	if q.Artist == "" {
		return q.Title
	}
	return q.Artist + " - " + q.Title
}
