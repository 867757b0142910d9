// Package telegram exposes the question answering assistant as a Telegram bot.
package telegram

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"medidiet/internal/assistant"
	"medidiet/internal/config"
	"medidiet/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	msgWelcome         = "👋 Welcome to MediDiet!\nShare your phone number with the button below so I can find your account and answer questions about your diet plan."
	msgShareButton     = "📱 Share phone number"
	msgOwnContactOnly  = "Please share your own contact using the button below."
	msgLinked          = "✅ Linked to %s. Ask me anything about your diet plan."
	msgNotLinked       = "Please share your phone number first. Send /start to begin."
	msgUnlinked        = "Your phone number has been unlinked."
	msgNothingToUnlink = "No phone number is linked to this chat."
	msgAccessDenied    = "⛔ Access Denied: Admin only."
	msgMetricsFailed   = "❌ Error fetching metrics."
	msgLinkFailed      = "Sorry, something went wrong. Please try again in a moment."
)

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// requester makes raw Bot API calls.
type requester interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Answerer produces the reply to a question from the owner of a phone number.
type Answerer interface {
	Answer(ctx context.Context, phone, message string) string
}

// UsageReader reads aggregated generation usage.
type UsageReader interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Bot handles Telegram updates delivered to the webhook.
type Bot struct {
	api      sender
	links    *LinkRepository
	answerer Answerer
	usage    UsageReader
	adminID  int64
	dataPath string
	logger   zerolog.Logger

	wg sync.WaitGroup
}

// NewBot initializes the Telegram API and registers the webhook when a
// webhook URL is configured.
func NewBot(cfg *config.Config, links *LinkRepository, answerer Answerer, usage UsageReader, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger = logger.With().Str("component", "telegram").Logger()
	logger.Info().Str("account", api.Self.UserName).Msg("telegram bot authorized")

	if cfg.TelegramWebhookURL != "" {
		if err := registerWebhook(api, cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret, logger); err != nil {
			return nil, err
		}
	}

	return newBot(api, links, answerer, usage, cfg.TelegramAdminID, filepath.Dir(cfg.DatabasePath), logger), nil
}

// registerWebhook points Telegram at webhookURL. Every update Telegram
// delivers afterwards carries secret in the X-Telegram-Bot-Api-Secret-Token
// header. The library's WebhookConfig has no secret_token field, so the call
// is made directly.
func registerWebhook(api requester, webhookURL, secret string, logger zerolog.Logger) error {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	params := tgbotapi.Params{"url": webhookURL}
	params.AddNonEmpty("secret_token", secret)

	resp, err := api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	logger.Info().Str("description", resp.Description).Msg("webhook set")
	return nil
}

func newBot(api sender, links *LinkRepository, answerer Answerer, usage UsageReader, adminID int64, dataPath string, logger zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		links:    links,
		answerer: answerer,
		usage:    usage,
		adminID:  adminID,
		dataPath: dataPath,
		logger:   logger,
	}
}

// Dispatch handles an update in the background so the webhook can be
// acknowledged immediately.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.HandleUpdate(ctx, update)
	}()
}

// Wait blocks until all dispatched updates have been handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// HandleUpdate processes a single update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	switch {
	case msg.Contact != nil:
		b.handleContact(ctx, msg)
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		b.handleQuestion(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		reply := tgbotapi.NewMessage(msg.Chat.ID, msgWelcome)
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(msgShareButton)),
		)
		keyboard.OneTimeKeyboard = true
		reply.ReplyMarkup = keyboard
		b.send(reply)
	case "unlink":
		removed, err := b.links.Delete(ctx, msg.From.ID)
		if err != nil {
			b.logger.Error().Err(err).Int64("telegram_user_id", msg.From.ID).Msg("failed to unlink")
			b.reply(msg.Chat.ID, msgLinkFailed)
			return
		}
		if removed {
			b.reply(msg.Chat.ID, msgUnlinked)
		} else {
			b.reply(msg.Chat.ID, msgNothingToUnlink)
		}
	case "metrics":
		if b.adminID == 0 || msg.From.ID != b.adminID {
			b.reply(msg.Chat.ID, msgAccessDenied)
			return
		}
		b.handleMetricsCommand(ctx, msg.Chat.ID)
	default:
		b.handleQuestion(ctx, msg)
	}
}

// handleContact links the sender to the shared phone number. Only the
// sender's own contact is accepted.
func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Contact.UserID != msg.From.ID {
		b.reply(msg.Chat.ID, msgOwnContactOnly)
		return
	}

	phone := normalizePhone(msg.Contact.PhoneNumber)
	err := b.links.Save(ctx, Link{TelegramUserID: msg.From.ID, ChatID: msg.Chat.ID, Phone: phone})
	if err != nil {
		b.logger.Error().Err(err).Int64("telegram_user_id", msg.From.ID).Msg("failed to save link")
		b.reply(msg.Chat.ID, msgLinkFailed)
		return
	}
	b.logger.Info().Int64("telegram_user_id", msg.From.ID).Msg("telegram user linked")

	reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(msgLinked, phone))
	reply.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.send(reply)
}

func (b *Bot) handleQuestion(ctx context.Context, msg *tgbotapi.Message) {
	link, err := b.links.Get(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64("telegram_user_id", msg.From.ID).Msg("failed to load link")
		b.reply(msg.Chat.ID, msgLinkFailed)
		return
	}
	if link == nil {
		b.reply(msg.Chat.ID, msgNotLinked)
		return
	}

	q := assistant.Query{Phone: link.Phone, Message: msg.Text}
	if issues := q.Validate(); issues != "" {
		b.reply(msg.Chat.ID, issues)
		return
	}

	if _, err := b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug().Err(err).Msg("failed to send typing action")
	}
	b.reply(msg.Chat.ID, b.answerer.Answer(ctx, q.Phone, q.Message))
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) {
	usage, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to read usage")
		b.reply(chatID, msgMetricsFailed)
		return
	}
	health := metrics.GetSysHealth(ctx, b.dataPath)
	b.reply(chatID, formatReport(usage, health))
}

func formatReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 Usage & Health Report\n\n")

	sb.WriteString("🗓 Recent AI Activity\n")
	if len(usage) == 0 {
		sb.WriteString("No data yet\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• %s: %d tokens (%d calls, %d failed)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failed))
	}

	sb.WriteString("\n🧠 System Health\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	if !health.HostStatsUnavailable {
		sb.WriteString(fmt.Sprintf("• Host: %.1f%% memory used, %.1f%% disk used (%s free)\n", health.HostMemUsedPercent, health.DiskUsedPercent, health.DiskFree))
	}
	return sb.String()
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Error().Err(err).Msg("failed to send telegram message")
	}
}

// normalizePhone strips formatting from a shared contact number and
// makes sure it carries a leading '+'.
func normalizePhone(phone string) string {
	phone = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}
