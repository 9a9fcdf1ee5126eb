package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nvoss/ainews/internal/store"
)

const welcomeText = `Welcome to AI News! 🤖

You are now subscribed. You'll receive a notification whenever a verified AI story breaks, plus a daily digest.

Commands:
/stop - unsubscribe
/status - your subscription status
/help - show this help`

const helpText = `AI News bot commands:

/start - subscribe to AI news notifications
/stop - unsubscribe
/status - your subscription status
/help - show this help`

// Bot handles subscriber commands and fans notifications out to active
// subscribers.
type Bot struct {
	client *Client
	db     *store.DB
}

// NewBot creates a bot over the given API client and store.
func NewBot(client *Client, db *store.DB) *Bot {
	return &Bot{client: client, db: db}
}

// Run long-polls for updates until ctx is cancelled. Errors from
// individual updates are logged, never fatal.
func (b *Bot) Run(ctx context.Context) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset, 30)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Error polling updates: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate dispatches a single incoming update.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, *u.CallbackQuery)
	case u.Message != nil && strings.HasPrefix(u.Message.Text, "/"):
		b.handleCommand(ctx, *u.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg Message) {
	chatID := msg.Chat.ID
	command := strings.ToLower(strings.Fields(msg.Text)[0])
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}

	var reply string
	switch command {
	case "/start":
		reply = b.subscribe(msg)
	case "/stop":
		reply = b.unsubscribe(chatID)
	case "/status":
		reply = b.status(chatID)
	case "/help":
		reply = helpText
	default:
		reply = "Unknown command. Try /help."
	}

	if err := b.client.SendMessage(ctx, chatID, reply, nil); err != nil {
		log.Printf("Error replying to chat %d: %v", chatID, err)
	}
}

func (b *Bot) subscribe(msg Message) string {
	var username, firstName, lastName *string
	if msg.From != nil {
		username = optional(msg.From.Username)
		firstName = optional(msg.From.FirstName)
		lastName = optional(msg.From.LastName)
	}

	outcome, err := b.db.Subscribe(chatKey(msg.Chat.ID), username, firstName, lastName)
	if err != nil {
		log.Printf("Error subscribing chat %d: %v", msg.Chat.ID, err)
		return "Something went wrong, please try again later."
	}
	switch outcome {
	case store.SubscribeAlreadyActive:
		return "You're already subscribed. Use /stop to unsubscribe."
	case store.SubscribeReactivated:
		return "Welcome back! Your subscription is active again."
	default:
		return welcomeText
	}
}

func (b *Bot) unsubscribe(chatID int64) string {
	removed, err := b.db.Unsubscribe(chatKey(chatID))
	if err != nil {
		log.Printf("Error unsubscribing chat %d: %v", chatID, err)
		return "Something went wrong, please try again later."
	}
	if !removed {
		return "You weren't subscribed. Use /start to subscribe."
	}
	return "You've been unsubscribed. Use /start to subscribe again."
}

func (b *Bot) status(chatID int64) string {
	sub, err := b.db.SubscriberByChatID(chatKey(chatID))
	if err != nil {
		log.Printf("Error loading subscriber %d: %v", chatID, err)
		return "Something went wrong, please try again later."
	}
	if sub == nil || !sub.IsActive {
		return "You are not subscribed. Use /start to subscribe."
	}
	since := ""
	if sub.SubscribedAt != nil {
		if t, err := store.ParseTime(*sub.SubscribedAt); err == nil {
			since = " since " + t.Format("2 January 2006")
		}
	}
	return fmt.Sprintf("You are subscribed%s. Use /stop to unsubscribe.", since)
}

// handleCallback serves read-more button presses from digest messages.
// The callback data is "read_<articleID>".
func (b *Bot) handleCallback(ctx context.Context, cb CallbackQuery) {
	if err := b.client.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		log.Printf("Error answering callback: %v", err)
	}
	if cb.Message == nil || !strings.HasPrefix(cb.Data, "read_") {
		return
	}

	articleID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "read_"), 10, 64)
	if err != nil {
		return
	}
	article, err := b.db.ArticleByID(articleID)
	if err != nil || article == nil {
		log.Printf("Callback for unknown article %d: %v", articleID, err)
		return
	}

	text := FormatArticle(*article)
	if err := b.client.SendMessage(ctx, cb.Message.Chat.ID, text, nil); err != nil {
		log.Printf("Error sending article to chat %d: %v", cb.Message.Chat.ID, err)
	}
}

// BroadcastResult summarizes one fan-out to subscribers.
type BroadcastResult struct {
	Attempted int
	Sent      int
}

// Broadcast sends text to every active subscriber concurrently. When
// articleID is non-zero each delivery attempt is recorded in the
// notification log.
func (b *Bot) Broadcast(ctx context.Context, articleID int64, text string, keyboard *InlineKeyboard) (BroadcastResult, error) {
	subscribers, err := b.db.ActiveSubscribers()
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("loading subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return BroadcastResult{}, nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	for _, sub := range subscribers {
		wg.Add(1)
		go func(sub store.Subscriber) {
			defer wg.Done()
			chatID, err := strconv.ParseInt(sub.ChatID, 10, 64)
			if err != nil {
				log.Printf("Invalid chat id %q for subscriber %d", sub.ChatID, sub.ID)
				return
			}

			sendErr := b.client.SendMessage(ctx, chatID, text, keyboard)
			if articleID != 0 {
				errText := ""
				if sendErr != nil {
					errText = sendErr.Error()
				}
				if logErr := b.db.LogNotification(articleID, sub.ChatID, sendErr == nil, errText); logErr != nil {
					log.Printf("Error logging notification: %v", logErr)
				}
			}
			if sendErr != nil {
				log.Printf("Error sending to chat %s: %v", sub.ChatID, sendErr)
				return
			}
			mu.Lock()
			sent++
			mu.Unlock()
		}(sub)
	}
	wg.Wait()

	return BroadcastResult{Attempted: len(subscribers), Sent: sent}, nil
}

// FormatArticle renders the notification text for one article.
func FormatArticle(a store.Article) string {
	headline := a.Title
	why := ""
	if a.Summary != nil && *a.Summary != "" {
		// Summary is stored as "headline\n\nwhy it matters".
		parts := strings.SplitN(*a.Summary, "\n\n", 2)
		headline = parts[0]
		if len(parts) == 2 {
			why = parts[1]
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔥 *%s*\n\n", escapeMarkdown(headline))
	if why != "" {
		fmt.Fprintf(&sb, "%s\n\n", escapeMarkdown(why))
	}
	fmt.Fprintf(&sb, "📰 %s", escapeMarkdown(a.SourceName))
	if a.IsVerified {
		sb.WriteString(" ✓")
	}
	fmt.Fprintf(&sb, "\n🔗 %s", a.URL)
	return sb.String()
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return replacer.Replace(s)
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
