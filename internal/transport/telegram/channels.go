package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/samber/lo"
)

func (h *Handler) handleAddChannel(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.session.expectChannel()

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: `📢 Add Channel

1. Add the bot to your channel as an administrator
2. Give it: Invite Users, Post Messages
3. Forward any message from the channel to me`,
	})
}

func (h *Handler) registerForwardedChannel(ctx context.Context, b *bot.Bot, msg *models.Message) {
	if msg.ForwardOrigin.Type != models.MessageOriginTypeChannel {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "❌ That is not a channel post. Forward a message from the channel itself.",
		})
		return
	}
	chat := msg.ForwardOrigin.MessageOriginChannel.Chat

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("Failed to look up own identity", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to verify channel access: %v", err),
		})
		return
	}
	member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chat.ID,
		UserID: me.ID,
	})
	if err != nil || (member.Type != models.ChatMemberTypeOwner && member.Type != models.ChatMemberTypeAdministrator) {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "❌ Make me an administrator of the channel first, then forward again.",
		})
		return
	}

	invite, err := b.ExportChatInviteLink(ctx, &bot.ExportChatInviteLinkParams{ChatID: chat.ID})
	if err != nil {
		// Registration still works, imports just have no link to send
		slog.Warn("Failed to export invite link", "channel_id", chat.ID, "error", err)
	}

	err = h.store.Update(func(doc *storeDomain.Document) error {
		ch, ok := doc.Channels[chat.ID]
		if !ok {
			ch = &storeDomain.Channel{ID: chat.ID, AddedAt: time.Now()}
			doc.Channels[chat.ID] = ch
		}
		ch.Title = chat.Title
		ch.Username = chat.Username
		if invite != "" {
			ch.InviteLink = invite
		}
		return nil
	})
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to save channel: %v", err),
		})
		return
	}

	h.session.takeChannelExpected()
	slog.Info("Channel registered", "channel_id", chat.ID, "title", chat.Title)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   fmt.Sprintf("✅ Registered!\n\n📢 %s\n🆔 %d\n\nJoin requests for this channel are tracked from now on.", chat.Title, chat.ID),
	})
}

func (h *Handler) handleChannels(ctx context.Context, b *bot.Bot, update *models.Update) {
	var channels []*storeDomain.Channel
	var shared int
	h.store.View(func(doc *storeDomain.Document) {
		channels = lo.Values(doc.Channels)
		shared = len(doc.SharedImages)
	})

	if len(channels) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "📭 No channels yet.\nUse /addchannel to register one.",
		})
		return
	}

	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })

	var text strings.Builder
	text.WriteString("📢 Channels:\n\n")
	for _, ch := range channels {
		mode := "🔒 MANUAL"
		if ch.BulkMode {
			mode = "🔄 BULK"
		}
		autopost := "🔴 OFF"
		if ch.AutoPost {
			autopost = "🟢 ON"
		}
		queue := fmt.Sprintf("%d own", len(ch.Images))
		if len(ch.Images) == 0 {
			queue = fmt.Sprintf("%d shared", shared)
		}
		text.WriteString(fmt.Sprintf("📌 %s\nID: %d\nMode: %s\nAuto-post: %s | Images: %s\n\n",
			ch.Title, ch.ID, mode, autopost, queue))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text.String(),
	})
}
