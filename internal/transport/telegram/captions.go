package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
)

func (h *Handler) handleSetDefaultCaption(ctx context.Context, b *bot.Bot, update *models.Update) {
	caption := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/set_default_caption"))
	if caption == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /set_default_caption TEXT\n\nUsed for scheduled posts on channels without a caption of their own.",
		})
		return
	}

	err := h.store.Update(func(doc *storeDomain.Document) error {
		doc.Settings.DefaultCaption = caption
		return nil
	})
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to save caption: %v", err),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("✅ Default caption set:\n\n%s", caption),
	})
}

func (h *Handler) handleClearDefaultCaption(ctx context.Context, b *bot.Bot, update *models.Update) {
	err := h.store.Update(func(doc *storeDomain.Document) error {
		doc.Settings.DefaultCaption = ""
		return nil
	})
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to clear caption: %v", err),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "🗑️ Default caption cleared",
	})
}

func (h *Handler) handleSetChannelCaption(ctx context.Context, b *bot.Bot, update *models.Update) {
	// Keep the caption text intact, it may contain spaces
	parts := strings.SplitN(update.Message.Text, " ", 3)
	if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /set_channel_caption CHANNEL_ID TEXT",
		})
		return
	}
	channelID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Invalid ID",
		})
		return
	}
	caption := strings.TrimSpace(parts[2])

	var name string
	err = h.store.Update(func(doc *storeDomain.Document) error {
		ch, ok := doc.Channels[channelID]
		if !ok {
			return fmt.Errorf("channel %d not found", channelID)
		}
		ch.Caption = caption
		name = ch.Title
		return nil
	})
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ %v", err),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("✅ Caption set for %s:\n\n%s", name, caption),
	})
}

func (h *Handler) handleClearChannelCaption(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /clear_channel_caption CHANNEL_ID",
		})
		return
	}
	channelID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Invalid ID",
		})
		return
	}

	var name string
	err = h.store.Update(func(doc *storeDomain.Document) error {
		ch, ok := doc.Channels[channelID]
		if !ok {
			return fmt.Errorf("channel %d not found", channelID)
		}
		ch.Caption = ""
		name = ch.Title
		return nil
	})
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ %v", err),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("🗑️ Caption cleared for %s. Scheduled posts fall back to the default caption.", name),
	})
}
