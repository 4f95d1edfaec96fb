// Package telegram pushes dashboard summaries and DQ alerts to a chat and
// accepts filter commands from it.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/dcompulse/internal/models"
)

// maxShareLines caps the share entries listed in a summary.
const maxShareLines = 5

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// Commands receives the chat commands the bot understands.
type Commands struct {
	// Summary returns the current dashboard, false if none is published yet.
	Summary func() (models.Dashboard, bool)
	// SelectBrand switches the brand filter.
	SelectBrand func(brand string)
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, cmds Commands) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message, cmds)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message, cmds Commands) {
	reply := handleCommandText(msg.Command(), msg.CommandArguments(), cmds)
	if reply == "" {
		return
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ParseMode = "MarkdownV2"
	c.bot.Send(out) //nolint:errcheck
}

// handleCommandText returns the MarkdownV2 reply for a command, or "" to
// stay silent.
func handleCommandText(command, args string, cmds Commands) string {
	switch command {
	case "ping":
		return "Pong"
	case "summary":
		if cmds.Summary == nil {
			return ""
		}
		d, ok := cmds.Summary()
		if !ok {
			return escapeMarkdownV2("No dashboard published yet.")
		}
		return formatDashboard(d, d.Alerts)
	case "brand":
		brand := strings.TrimSpace(args)
		if brand == "" {
			return escapeMarkdownV2("Usage: /brand <name|all>")
		}
		if cmds.SelectBrand == nil {
			return ""
		}
		cmds.SelectBrand(brand)
		return fmt.Sprintf("🔄 Refreshing for brand *%s*", escapeMarkdownV2(brand))
	}
	return ""
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a refresh error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(refreshErr error) error {
	text := fmt.Sprintf("⚠️ *Refresh error*\n`%s`", escapeMarkdownV2(refreshErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Refresh recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendDashboard sends a summary of d listing only the given alerts.
func (c *Client) SendDashboard(d models.Dashboard, alerts []models.Alert) error {
	return c.sendMarkdownV2(formatDashboard(d, alerts))
}

// formatDashboard formats a dashboard summary as a Telegram MarkdownV2 message.
func formatDashboard(d models.Dashboard, alerts []models.Alert) string {
	var b strings.Builder

	brand := d.Brand
	if brand == "" || strings.EqualFold(brand, "all") {
		brand = "All Brands"
	}
	fmt.Fprintf(&b, "📊 *NSV Dashboard* \\- %s\n", escapeMarkdownV2(brand))
	fmt.Fprintf(&b, "📅 %s \\(%d/%d days\\)\n\n",
		escapeMarkdownV2(d.RunDate), len(d.Series), d.WindowDays)

	if d.LatestValue != nil {
		fmt.Fprintf(&b, "💰 Latest NSV: *%s*\n", escapeMarkdownV2(fmt.Sprintf("$%.2fM", *d.LatestValue)))
	} else {
		b.WriteString("💰 Latest NSV: n/a\n")
	}
	if d.Growth.Defined() {
		emoji := "📈"
		if *d.Growth.RatioPercent < 0 {
			emoji = "📉"
		}
		fmt.Fprintf(&b, "%s WoW: *%s*\n", emoji, escapeMarkdownV2(fmt.Sprintf("%+.1f%%", *d.Growth.RatioPercent)))
	} else {
		b.WriteString("➖ WoW: n/a\n")
	}
	if n := len(d.Penetration); n > 0 {
		fmt.Fprintf(&b, "🛒 Digital: %s\n", escapeMarkdownV2(fmt.Sprintf("%.1f%%", d.Penetration[n-1].Percent)))
	}

	if len(d.Share) > 0 {
		fmt.Fprintf(&b, "\n*Share* \\(%s\\)\n", escapeMarkdownV2(d.SelectedDate))
		for i, s := range d.Share {
			if i == maxShareLines {
				fmt.Fprintf(&b, "   … %d more\n", len(d.Share)-maxShareLines)
				break
			}
			fmt.Fprintf(&b, "   %s: %s\n", escapeMarkdownV2(s.Label), escapeMarkdownV2(fmt.Sprintf("%.1f%%", s.PercentOfTotal)))
		}
	}

	if len(alerts) > 0 {
		b.WriteString("\n🚨 *Data quality*\n")
		for _, a := range alerts {
			fmt.Fprintf(&b, "   %s \\[%s, %s\\]\n",
				escapeMarkdownV2(a.Message), escapeMarkdownV2(a.Impact.String()), escapeMarkdownV2(a.ConfidenceLabel))
		}
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
