package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	approvalService "github.com/reshetovitsme/channel-admin-bot/internal/modules/approval/service"
	autopostService "github.com/reshetovitsme/channel-admin-bot/internal/modules/autopost/service"
	reportService "github.com/reshetovitsme/channel-admin-bot/internal/modules/report/service"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/repository"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/config"
)

// Handler handles Telegram bot interactions
type Handler struct {
	cfg       *config.Config
	store     repository.Store
	approvals *approvalService.Service
	autopost  *autopostService.Service
	reports   *reportService.Service
	session   session
	files     *http.Client
}

// New creates a new Telegram handler
func New(cfg *config.Config, store repository.Store, approvals *approvalService.Service, autopost *autopostService.Service, reports *reportService.Service) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     store,
		approvals: approvals,
		autopost:  autopost,
		reports:   reports,
		files:     &http.Client{Timeout: 30 * time.Second},
	}
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.adminOnly(h.handleStart))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.adminOnly(h.handleHelp))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/addchannel", bot.MatchTypeExact, h.adminOnly(h.handleAddChannel))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/channels", bot.MatchTypeExact, h.adminOnly(h.handleChannels))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/toggle_bulk", bot.MatchTypePrefix, h.adminOnly(h.handleToggleBulk))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/pending_users", bot.MatchTypeExact, h.adminOnly(h.handlePendingUsers))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/approve_user", bot.MatchTypePrefix, h.adminOnly(h.handleApproveUser))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/approve_all_pending", bot.MatchTypeExact, h.adminOnly(h.handleApproveAllPending))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/bulk_approve", bot.MatchTypeExact, h.adminOnly(h.handleBulkApproveUsage))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/import_users", bot.MatchTypePrefix, h.adminOnly(h.handleImportUsers))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/block_user", bot.MatchTypePrefix, h.adminOnly(h.handleBlockUser))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/unblock_user", bot.MatchTypePrefix, h.adminOnly(h.handleUnblockUser))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/post", bot.MatchTypeExact, h.adminOnly(h.handlePost))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/upload_images", bot.MatchTypeExact, h.adminOnly(h.handleUploadImages))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/upload_for_channel", bot.MatchTypePrefix, h.adminOnly(h.handleUploadForChannel))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/done_uploading", bot.MatchTypeExact, h.adminOnly(h.handleDoneUploading))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/list_images", bot.MatchTypeExact, h.adminOnly(h.handleListImages))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/clear_images", bot.MatchTypePrefix, h.adminOnly(h.handleClearImages))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/enable_autopost", bot.MatchTypePrefix, h.adminOnly(h.handleEnableAutoPost))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/disable_autopost", bot.MatchTypePrefix, h.adminOnly(h.handleDisableAutoPost))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/autopost_status", bot.MatchTypeExact, h.adminOnly(h.handleAutoPostStatus))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/set_default_caption", bot.MatchTypePrefix, h.adminOnly(h.handleSetDefaultCaption))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/clear_default_caption", bot.MatchTypeExact, h.adminOnly(h.handleClearDefaultCaption))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/set_channel_caption", bot.MatchTypePrefix, h.adminOnly(h.handleSetChannelCaption))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/clear_channel_caption", bot.MatchTypePrefix, h.adminOnly(h.handleClearChannelCaption))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, h.adminOnly(h.handleStats))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/user_stats", bot.MatchTypeExact, h.adminOnly(h.handleUserStats))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/export_users", bot.MatchTypePrefix, h.adminOnly(h.handleExportUsers))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/view_unauthorized", bot.MatchTypeExact, h.adminOnly(h.handleViewUnauthorized))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/clear_unauthorized", bot.MatchTypeExact, h.adminOnly(h.handleClearUnauthorized))
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "post:", bot.MatchTypePrefix, h.handlePostCallback)
}

// PublishCommands advertises the command list in the Telegram client menu
func (h *Handler) PublishCommands(ctx context.Context, b *bot.Bot) {
	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commandMenu}); err != nil {
		slog.Error("Failed to publish command menu", "error", err)
	}
}

// HandleUpdate processes updates no registered command matched: join
// requests, uploaded photos, forwarded channel posts and post content
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	defer h.recoverPanic(update)

	if update.ChatJoinRequest != nil {
		h.processJoinRequest(ctx, b, update.ChatJoinRequest)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if !h.isAdmin(msg.From.ID) {
		// Non-admin chatter is ignored, command attempts get logged
		if strings.HasPrefix(msg.Text, "/") {
			h.rejectUnauthorized(ctx, b, update)
		}
		return
	}

	switch {
	case msg.Document != nil && strings.HasPrefix(msg.Caption, "/bulk_approve"):
		h.handleBulkApproveFile(ctx, b, msg)
	case msg.ForwardOrigin != nil && h.session.channelExpected():
		h.registerForwardedChannel(ctx, b, msg)
	case h.session.postExpected():
		h.capturePost(ctx, b, msg)
	case len(msg.Photo) > 0:
		h.storeUploadedPhoto(ctx, b, msg)
	}
}

func (h *Handler) processJoinRequest(ctx context.Context, b *bot.Bot, req *models.ChatJoinRequest) {
	status, err := h.approvals.HandleJoinRequest(ctx, req.Chat.ID, &req.From)
	if err != nil {
		slog.Error("Failed to process join request", "user_id", req.From.ID, "channel_id", req.Chat.ID, "error", err)
		return
	}
	slog.Info("Join request processed", "user_id", req.From.ID, "channel_id", req.Chat.ID, "status", status)

	if status != storeDomain.MemberStatusPending {
		return
	}

	var userName, channelName string
	h.store.View(func(doc *storeDomain.Document) {
		channelName = doc.ChannelName(req.Chat.ID)
		if u, ok := doc.Users[req.From.ID]; ok {
			userName = u.DisplayName()
		}
	})
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: h.cfg.AdminID,
		Text: fmt.Sprintf("📬 New join request\n\n👤 %s\n📢 %s\n\nApprove: /approve_user %d %d",
			userName, channelName, req.From.ID, req.Chat.ID),
	})
}

// adminOnly wraps a command handler with the single-admin gate. Attempts
// from anyone else are logged and rejected without side effects.
func (h *Handler) adminOnly(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		defer h.recoverPanic(update)

		if update.Message == nil || update.Message.From == nil {
			return
		}
		if !h.isAdmin(update.Message.From.ID) {
			h.rejectUnauthorized(ctx, b, update)
			return
		}
		next(ctx, b, update)
	}
}

func (h *Handler) isAdmin(userID int64) bool {
	return userID == h.cfg.AdminID
}

func (h *Handler) rejectUnauthorized(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	command := firstField(msg.Text)

	err := h.store.Update(func(doc *storeDomain.Document) error {
		doc.Unauthorized = append(doc.Unauthorized, storeDomain.UnauthorizedAttempt{
			UserID:    msg.From.ID,
			Username:  msg.From.Username,
			Command:   command,
			Timestamp: time.Now(),
		})
		return nil
	})
	if err != nil {
		slog.Error("Failed to record unauthorized attempt", "user_id", msg.From.ID, "error", err)
	}
	slog.Warn("Unauthorized command attempt", "user_id", msg.From.ID, "command", command)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   "❌ You are not authorized to use this bot.",
	})
}

// recoverPanic keeps a fault in one handler from taking the process down
func (h *Handler) recoverPanic(update *models.Update) {
	if r := recover(); r != nil {
		var userID int64
		if update.Message != nil && update.Message.From != nil {
			userID = update.Message.From.ID
		}
		slog.Error("Recovered from panic in handler", "panic", r, "user_id", userID)
	}
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	text := `👋 Channel Admin Bot

I manage join requests, image queues and scheduled posts for your channels.

Channels:
/addchannel - Register a channel (forward a message from it)
/channels - List registered channels

Join requests:
/pending_users - List pending requests
/approve_user <user_id> <channel_id> - Approve one request
/approve_all_pending - Approve everything pending
/toggle_bulk <channel_id> - Auto-approve new requests
/bulk_approve - Approve user IDs from a file
/import_users <channel_id> [source_id] - Invite known users
/block_user <user_id> - Block a user everywhere
/unblock_user <user_id> - Lift a block

Content:
/post - Post content to channels
/upload_images - Add images to the shared queue
/upload_for_channel <channel_id> - Add images for one channel
/done_uploading - Finish an upload session
/list_images - Show queue sizes
/clear_images [channel_id] - Clear a queue
/enable_autopost <channel_id> - Start scheduled posting
/disable_autopost <channel_id> - Stop scheduled posting
/autopost_status - Show posting status
/set_default_caption <text> - Default caption for posts
/clear_default_caption - Remove the default caption
/set_channel_caption <channel_id> <text> - Channel caption
/clear_channel_caption <channel_id> - Remove a channel caption

Reports:
/stats - Aggregate statistics
/user_stats - Per-channel user counts
/export_users [channel_id] - CSV export
/view_unauthorized - Show unauthorized attempts
/clear_unauthorized - Clear the attempt log`

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleStart(ctx, b, update)
}

// Helper functions
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

var commandMenu = []models.BotCommand{
	{Command: "addchannel", Description: "Register a channel"},
	{Command: "channels", Description: "List registered channels"},
	{Command: "pending_users", Description: "List pending join requests"},
	{Command: "approve_all_pending", Description: "Approve all pending requests"},
	{Command: "toggle_bulk", Description: "Toggle auto-approval for a channel"},
	{Command: "post", Description: "Post content to channels"},
	{Command: "upload_images", Description: "Add images to the shared queue"},
	{Command: "autopost_status", Description: "Show scheduled posting status"},
	{Command: "stats", Description: "Aggregate statistics"},
	{Command: "user_stats", Description: "Per-channel user counts"},
	{Command: "export_users", Description: "Export the user database as CSV"},
	{Command: "help", Description: "Show all commands"},
}
