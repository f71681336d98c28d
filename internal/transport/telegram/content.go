package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
)

func (h *Handler) handleUploadImages(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.session.beginUpload(uploadShared, 0)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: `📤 Upload Images

Send me photos now. They go to the shared queue, used by every channel without images of its own.

Finish with /done_uploading`,
	})
}

func (h *Handler) handleUploadForChannel(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		var text strings.Builder
		text.WriteString("📢 Upload for Specific Channel\n\n")
		h.store.View(func(doc *storeDomain.Document) {
			for _, ch := range sortedChannels(doc) {
				text.WriteString(fmt.Sprintf("%s: %d\n", ch.Title, ch.ID))
			}
		})
		text.WriteString("\nUsage: /upload_for_channel CHANNEL_ID")
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   text.String(),
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

	var (
		found bool
		name  string
	)
	h.store.View(func(doc *storeDomain.Document) {
		ch, ok := doc.Channels[channelID]
		if ok {
			found = true
			name = ch.Title
		}
	})
	if !found {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ Channel %d not found. Use /channels to list registered ones.", channelID),
		})
		return
	}

	h.session.beginUpload(uploadChannel, channelID)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("📤 Send images for %s\n\nFinish with /done_uploading", name),
	})
}

func (h *Handler) storeUploadedPhoto(ctx context.Context, b *bot.Bot, msg *models.Message) {
	mode, targetID := h.session.uploadTarget()
	if mode == uploadOff {
		return
	}

	image := storeDomain.Image{
		FileID:  msg.Photo[len(msg.Photo)-1].FileID,
		AddedAt: time.Now(),
	}

	var total int
	err := h.store.Update(func(doc *storeDomain.Document) error {
		if mode == uploadShared {
			doc.SharedImages = append(doc.SharedImages, image)
			total = len(doc.SharedImages)
			return nil
		}
		ch, ok := doc.Channels[targetID]
		if !ok {
			return fmt.Errorf("channel %d disappeared mid-upload", targetID)
		}
		ch.Images = append(ch.Images, image)
		// A channel that was rotating the shared queue may carry a
		// cursor past its own queue's end
		ch.Cursor %= len(ch.Images)
		total = len(ch.Images)
		return nil
	})
	if err != nil {
		slog.Error("Failed to store uploaded image", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to store image: %v", err),
		})
		return
	}
	h.session.noteUploaded()

	reply := fmt.Sprintf("✅ Added! Total: %d", total)
	if mode == uploadChannel {
		reply = fmt.Sprintf("✅ Added! Channel total: %d", total)
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   reply,
	})
}

func (h *Handler) handleDoneUploading(ctx context.Context, b *bot.Bot, update *models.Update) {
	mode, n := h.session.endUpload()
	if mode == uploadOff {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "📭 No upload in progress",
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("✅ Upload finished. Added %d image(s).", n),
	})
}

func (h *Handler) handleListImages(ctx context.Context, b *bot.Bot, update *models.Update) {
	var text strings.Builder
	h.store.View(func(doc *storeDomain.Document) {
		text.WriteString(fmt.Sprintf("📂 Shared queue: %d image(s)\n\n", len(doc.SharedImages)))
		for _, ch := range sortedChannels(doc) {
			if len(ch.Images) == 0 {
				continue
			}
			text.WriteString(fmt.Sprintf("📢 %s: %d image(s)\n", ch.Title, len(ch.Images)))
		}
	})

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text.String(),
	})
}

func (h *Handler) handleClearImages(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)

	if len(parts) < 2 {
		var removed int
		err := h.store.Update(func(doc *storeDomain.Document) error {
			removed = len(doc.SharedImages)
			doc.SharedImages = nil
			// Channels rotating the shared queue start over
			for _, ch := range doc.Channels {
				if len(ch.Images) == 0 {
					ch.Cursor = 0
				}
			}
			return nil
		})
		if err != nil {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   fmt.Sprintf("❌ Failed to clear images: %v", err),
			})
			return
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("🗑️ Cleared shared images (%d removed)", removed),
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

	var (
		removed int
		name    string
	)
	err = h.store.Update(func(doc *storeDomain.Document) error {
		ch, ok := doc.Channels[channelID]
		if !ok {
			return fmt.Errorf("channel %d not found", channelID)
		}
		name = ch.Title
		removed = len(ch.Images)
		ch.Images = nil
		ch.Cursor = 0
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
		Text:   fmt.Sprintf("🗑️ Cleared images for %s (%d removed)", name, removed),
	})
}

func (h *Handler) handlePost(ctx context.Context, b *bot.Bot, update *models.Update) {
	var hasChannels bool
	h.store.View(func(doc *storeDomain.Document) {
		hasChannels = len(doc.Channels) > 0
	})
	if !hasChannels {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ No channels. Use /addchannel first.",
		})
		return
	}

	h.session.expectPost()
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "📤 Send the content to post: text, photo, video or document",
	})
}

func (h *Handler) capturePost(ctx context.Context, b *bot.Bot, msg *models.Message) {
	post := postFromMessage(msg)
	if post == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "❌ Send text, a photo, a video or a document",
		})
		return
	}
	h.session.setPost(post)

	var keyboard [][]models.InlineKeyboardButton
	h.store.View(func(doc *storeDomain.Document) {
		for _, ch := range sortedChannels(doc) {
			keyboard = append(keyboard, []models.InlineKeyboardButton{{
				Text:         "📢 " + ch.Title,
				CallbackData: "post:" + strconv.FormatInt(ch.ID, 10),
			}})
		}
	})
	keyboard = append(keyboard,
		[]models.InlineKeyboardButton{{Text: "🔄 All channels", CallbackData: "post:all"}},
		[]models.InlineKeyboardButton{{Text: "❌ Cancel", CallbackData: "post:cancel"}},
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        "🎯 Select a channel:",
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: keyboard},
	})
}

// postFromMessage classifies admin content for later delivery. Nil means
// the message carries nothing the bot can repost.
func postFromMessage(msg *models.Message) *pendingPost {
	switch {
	case len(msg.Photo) > 0:
		return &pendingPost{Kind: postPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID, Caption: msg.Caption}
	case msg.Video != nil:
		return &pendingPost{Kind: postVideo, FileID: msg.Video.FileID, Caption: msg.Caption}
	case msg.Document != nil:
		return &pendingPost{Kind: postDocument, FileID: msg.Document.FileID, Caption: msg.Caption}
	case strings.TrimSpace(msg.Text) != "":
		return &pendingPost{Kind: postText, Text: msg.Text}
	default:
		return nil
	}
}

func (h *Handler) handlePostCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	defer h.recoverPanic(update)

	q := update.CallbackQuery
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: q.ID})

	if !h.isAdmin(q.From.ID) {
		return
	}
	if q.Message.Message == nil {
		return
	}
	chatID := q.Message.Message.Chat.ID
	messageID := q.Message.Message.ID

	edit := func(text string) {
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      text,
		})
	}

	post := h.session.takePost()
	if post == nil {
		edit("❌ No post waiting")
		return
	}

	data := strings.TrimPrefix(q.Data, "post:")
	if data == "cancel" {
		edit("❌ Cancelled")
		return
	}

	var targets []int64
	if data == "all" {
		h.store.View(func(doc *storeDomain.Document) {
			for _, ch := range sortedChannels(doc) {
				targets = append(targets, ch.ID)
			}
		})
	} else {
		channelID, err := strconv.ParseInt(data, 10, 64)
		if err != nil {
			edit("❌ Invalid channel")
			return
		}
		var found bool
		h.store.View(func(doc *storeDomain.Document) {
			_, found = doc.Channels[channelID]
		})
		if !found {
			edit("❌ Channel not found")
			return
		}
		targets = []int64{channelID}
	}

	edit("⏳ Posting...")

	var posted int
	for _, channelID := range targets {
		if err := deliverPost(ctx, b, channelID, post); err != nil {
			slog.Error("Failed to deliver post", "channel_id", channelID, "error", err)
			continue
		}
		posted++
	}
	edit(fmt.Sprintf("✅ Posted to %d channel(s)", posted))
}

func deliverPost(ctx context.Context, b *bot.Bot, channelID int64, post *pendingPost) error {
	var err error
	switch post.Kind {
	case postText:
		_, err = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: channelID,
			Text:   post.Text,
		})
	case postPhoto:
		_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  channelID,
			Photo:   &models.InputFileString{Data: post.FileID},
			Caption: post.Caption,
		})
	case postVideo:
		_, err = b.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:  channelID,
			Video:   &models.InputFileString{Data: post.FileID},
			Caption: post.Caption,
		})
	case postDocument:
		_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:   channelID,
			Document: &models.InputFileString{Data: post.FileID},
			Caption:  post.Caption,
		})
	}
	return err
}
