package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"amlguard/internal/models"
)

// Notifier tells humans about newly raised alerts.
type Notifier interface {
	NotifyAlert(ctx context.Context, alert *models.Alert) error
	Close() error
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct{}

func (LogNotifier) NotifyAlert(ctx context.Context, alert *models.Alert) error {
	log.Ctx(ctx).Warn().
		Str("transaction_id", alert.TransactionID).
		Float64("risk_score", alert.RiskScore).
		Strs("flags", alert.Flags).
		Msg("alert raised")
	return nil
}

func (LogNotifier) Close() error { return nil }

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts an embed per alert to one channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	sender    embedSender
	channelID string
}

func NewDiscordNotifier(botToken, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &DiscordNotifier{
		session:   session,
		sender:    session,
		channelID: channelID,
	}, nil
}

func (n *DiscordNotifier) NotifyAlert(ctx context.Context, alert *models.Alert) error {
	if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, alertEmbed(alert), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord notify: %w", err)
	}
	return nil
}

func (n *DiscordNotifier) Close() error {
	if n.session == nil {
		return nil
	}
	return n.session.Close()
}

const colorFlagged = 0xD32F2F

func alertEmbed(alert *models.Alert) *discordgo.MessageEmbed {
	reasons := "none"
	if len(alert.Flags) > 0 {
		reasons = "- " + strings.Join(alert.Flags, "\n- ")
	}
	return &discordgo.MessageEmbed{
		Title: "Flagged transaction " + alert.TransactionID,
		Color: colorFlagged,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Risk score", Value: fmt.Sprintf("%.1f / 10", alert.RiskScore), Inline: true},
			{Name: "Status", Value: alert.Status, Inline: true},
			{Name: "Reasons", Value: reasons},
		},
		Timestamp: alert.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
