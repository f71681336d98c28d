package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	autopostDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/autopost/domain"
)

func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	st := h.reports.Stats()

	text := fmt.Sprintf(`📊 Statistics

📢 Channels: %d
🔄 Bulk mode: %d
🤖 Auto-post: %d active
👥 Total Users: %d
⏳ Pending: %d
✅ Approved: %d
🚫 Blocked: %d
📂 Images: %d shared, %d per-channel
🔐 Unauthorized attempts: %d`,
		st.Channels, st.BulkChannels, st.AutoPostChannels,
		st.Users, st.PendingRequests, st.ApprovedRequests, st.BlockedUsers,
		st.SharedImages, st.ChannelImages, st.Unauthorized)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

func (h *Handler) handleUserStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	perChannel := h.reports.UserStats()
	if len(perChannel) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "📭 No channels yet.\nUse /addchannel to register one.",
		})
		return
	}
	st := h.reports.Stats()

	var sb strings.Builder
	sb.WriteString("📊 User Statistics\n")
	for _, cs := range perChannel {
		sb.WriteString(fmt.Sprintf("\n📢 %s\n", cs.Title))
		sb.WriteString(fmt.Sprintf("✅ Approved: %d\n", cs.Approved))
		sb.WriteString(fmt.Sprintf("⏳ Pending: %d\n", cs.Pending))
		sb.WriteString(fmt.Sprintf("❌ Blocked: %d\n", cs.Blocked))
	}
	sb.WriteString(fmt.Sprintf("\n📁 Total Unique Users: %d", st.Users))

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   sb.String(),
	})
}

func (h *Handler) handleExportUsers(ctx context.Context, b *bot.Bot, update *models.Update) {
	var channelID int64
	parts := strings.Fields(update.Message.Text)
	if len(parts) > 1 {
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   "Usage: /export_users [CHANNEL_ID]",
			})
			return
		}
		channelID = id
	}

	progress, _ := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "⏳ Generating report...",
	})

	edit := func(text string) {
		if progress == nil {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   text,
			})
			return
		}
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    update.Message.Chat.ID,
			MessageID: progress.ID,
			Text:      text,
		})
	}

	data, records, err := h.reports.ExportCSV(channelID)
	if err != nil {
		edit(channelErrorText(err, channelID))
		return
	}
	if records == 0 {
		edit("❌ No user data to export")
		return
	}

	filename := "user_report_" + time.Now().Format("20060102_150405") + ".csv"
	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: update.Message.Chat.ID,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(data),
		},
		Caption: fmt.Sprintf("📊 User Report\n\nTotal Records: %d", records),
	})
	if err != nil {
		edit(fmt.Sprintf("❌ Failed to send report: %v", err))
		return
	}
	if progress != nil {
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    update.Message.Chat.ID,
			MessageID: progress.ID,
		})
	}
}

func (h *Handler) handleAutoPostStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	statuses := h.autopost.Statuses()
	if len(statuses) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "📭 No channels yet.\nUse /addchannel to register one.",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("🤖 Auto-Post Status\n")
	sb.WriteString(fmt.Sprintf("⏱ Interval: every %s\n", h.cfg.PostInterval()))
	for _, st := range statuses {
		state := "🔴 OFF"
		if st.Enabled {
			state = "🟢 ON"
		}
		queue := "no images"
		if st.QueueLen > 0 {
			source := "own"
			if st.Source == autopostDomain.QueueSourceShared {
				source = "shared"
			}
			queue = fmt.Sprintf("%d %s image(s) | Next: #%d", st.QueueLen, source, st.Cursor%st.QueueLen+1)
		}
		sb.WriteString(fmt.Sprintf("\n📢 %s\n%s | %s\n", st.Title, state, queue))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   sb.String(),
	})
}

func (h *Handler) handleEnableAutoPost(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /enable_autopost CHANNEL_ID",
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

	if err := h.autopost.EnableAutoPost(channelID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   channelErrorText(err, channelID),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("✅ Auto-posting enabled for %d\nPosts go out every %s.", channelID, h.cfg.PostInterval()),
	})
}

func (h *Handler) handleDisableAutoPost(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /disable_autopost CHANNEL_ID",
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

	if err := h.autopost.DisableAutoPost(channelID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   channelErrorText(err, channelID),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("🔴 Auto-posting disabled for %d", channelID),
	})
}
