package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	apperrors "github.com/reshetovitsme/channel-admin-bot/internal/shared/errors"
)

// pendingListLimit caps how many entries /pending_users renders
const pendingListLimit = 20

func (h *Handler) handlePendingUsers(ctx context.Context, b *bot.Bot, update *models.Update) {
	type entry struct {
		user        *storeDomain.User
		channelName string
		channelID   int64
		requestedAt time.Time
	}
	var entries []entry
	h.store.View(func(doc *storeDomain.Document) {
		for _, u := range doc.Users {
			if u.Blocked {
				continue
			}
			for chID, m := range u.Memberships {
				if m.Status != storeDomain.MemberStatusPending {
					continue
				}
				entries = append(entries, entry{
					user:        u,
					channelName: doc.ChannelName(chID),
					channelID:   chID,
					requestedAt: m.RequestedAt,
				})
			}
		}
	})

	if len(entries) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "📭 No pending requests",
		})
		return
	}

	// Oldest first, those waited longest
	sort.Slice(entries, func(i, j int) bool { return entries[i].requestedAt.Before(entries[j].requestedAt) })

	var text strings.Builder
	text.WriteString("⏳ Pending Users:\n\n")
	for i, e := range entries {
		if i == pendingListLimit {
			text.WriteString(fmt.Sprintf("...+%d more\n\n", len(entries)-pendingListLimit))
			break
		}
		text.WriteString(fmt.Sprintf("👤 %s\n📢 %s\n🕐 %d min ago\n/approve_user %d %d\n\n",
			e.user.DisplayName(), e.channelName, int(time.Since(e.requestedAt).Minutes()), e.user.ID, e.channelID))
	}
	text.WriteString(fmt.Sprintf("Total: %d", len(entries)))

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text.String(),
	})
}

func (h *Handler) handleApproveUser(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 3 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /approve_user USER_ID CHANNEL_ID",
		})
		return
	}
	userID, err1 := strconv.ParseInt(parts[1], 10, 64)
	channelID, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Invalid ID",
		})
		return
	}

	switch err := h.approvals.ApproveUser(ctx, userID, channelID); {
	case err == nil:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("✅ Approved %d", userID),
		})
	case errors.Is(err, apperrors.ErrUserNotFound):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ User %d has no tracked request", userID),
		})
	case errors.Is(err, apperrors.ErrUserBlocked):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ User %d is blocked. /unblock_user %d first.", userID, userID),
		})
	default:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to approve: %v", err),
		})
	}
}

func (h *Handler) handleApproveAllPending(ctx context.Context, b *bot.Bot, update *models.Update) {
	pending := h.approvals.PendingCount()
	if pending == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "📭 No pending requests",
		})
		return
	}

	progress, _ := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("⏳ Approving %d...", pending),
	})

	approved, failed := h.approvals.ApproveAllPending(ctx)
	result := fmt.Sprintf("✅ Done\n\nApproved: %d\nFailed: %d", approved, failed)

	if progress != nil {
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    update.Message.Chat.ID,
			MessageID: progress.ID,
			Text:      result,
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   result,
	})
}

func (h *Handler) handleToggleBulk(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		var text strings.Builder
		text.WriteString("🔄 Bulk Approval Mode\n\n")
		h.store.View(func(doc *storeDomain.Document) {
			for _, ch := range sortedChannels(doc) {
				status := "❌ OFF"
				if ch.BulkMode {
					status = "✅ ON"
				}
				text.WriteString(fmt.Sprintf("%s: %s\n", ch.Title, status))
			}
		})
		text.WriteString("\nUsage: /toggle_bulk CHANNEL_ID")
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

	enabled, swept, err := h.approvals.ToggleBulk(ctx, channelID)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   channelErrorText(err, channelID),
		})
		return
	}

	var name string
	h.store.View(func(doc *storeDomain.Document) {
		name = doc.ChannelName(channelID)
	})
	status := "OFF ❌"
	if enabled {
		status = "ON ✅"
	}
	text := fmt.Sprintf("🔄 Bulk Mode %s\n\n%s", status, name)
	if swept > 0 {
		text += fmt.Sprintf("\nApproved %d pending request(s)", swept)
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
}

func (h *Handler) handleBlockUser(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /block_user USER_ID",
		})
		return
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Invalid ID",
		})
		return
	}

	if err := h.approvals.BlockUser(ctx, userID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to block: %v", err),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("🚫 Blocked %d", userID),
	})
}

func (h *Handler) handleUnblockUser(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /unblock_user USER_ID",
		})
		return
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Invalid ID",
		})
		return
	}

	switch err := h.approvals.UnblockUser(ctx, userID); {
	case err == nil:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("✅ Unblocked %d", userID),
		})
	case errors.Is(err, apperrors.ErrUserNotFound):
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Not blocked",
		})
	default:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to unblock: %v", err),
		})
	}
}

func (h *Handler) handleBulkApproveUsage(ctx context.Context, b *bot.Bot, update *models.Update) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: `📄 Bulk Approve

Create a text file with one user ID per line:
123456789
987654321

Then upload it here with the caption: /bulk_approve CHANNEL_ID`,
	})
}

func (h *Handler) handleBulkApproveFile(ctx context.Context, b *bot.Bot, msg *models.Message) {
	parts := strings.Fields(msg.Caption)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "❌ Format: /bulk_approve CHANNEL_ID",
		})
		return
	}
	channelID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "❌ Invalid ID",
		})
		return
	}

	data, err := h.downloadFile(ctx, b, msg.Document.FileID)
	if err != nil {
		slog.Error("Failed to download bulk approve file", "file_id", msg.Document.FileID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to download file: %v", err),
		})
		return
	}

	userIDs := parseUserIDs(string(data))
	if len(userIDs) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "❌ No valid IDs in the file",
		})
		return
	}

	progress, _ := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   fmt.Sprintf("⏳ Processing %d...", len(userIDs)),
	})

	approved, failed, err := h.approvals.BulkApprove(ctx, channelID, userIDs)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   channelErrorText(err, channelID),
		})
		return
	}

	result := fmt.Sprintf("✅ Complete!\n\nTotal: %d\nApproved: %d\nFailed: %d", len(userIDs), approved, failed)
	if progress != nil {
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: progress.ID,
			Text:      result,
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   result,
	})
}

func (h *Handler) handleImportUsers(ctx context.Context, b *bot.Bot, update *models.Update) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "Usage: /import_users TARGET_CHANNEL_ID [SOURCE_CHANNEL_ID]\n\nSends the target channel's invite link to approved users the target does not know yet.",
		})
		return
	}
	targetID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Invalid ID",
		})
		return
	}
	var sourceID int64
	if len(parts) > 2 {
		sourceID, err = strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   "❌ Invalid ID",
			})
			return
		}
	}

	invited, failed, err := h.approvals.ImportUsers(ctx, targetID, sourceID)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   channelErrorText(err, targetID),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("📥 Import done\n\nInvited: %d\nFailed: %d\n\nInvited users still have to request to join.", invited, failed),
	})
}

func (h *Handler) handleViewUnauthorized(ctx context.Context, b *bot.Bot, update *models.Update) {
	var attempts []storeDomain.UnauthorizedAttempt
	h.store.View(func(doc *storeDomain.Document) {
		attempts = append(attempts, doc.Unauthorized...)
	})

	if len(attempts) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "✅ No unauthorized attempts logged",
		})
		return
	}

	var text strings.Builder
	text.WriteString("🚨 Unauthorized Attempts:\n\n")
	start := 0
	if len(attempts) > pendingListLimit {
		start = len(attempts) - pendingListLimit
		text.WriteString(fmt.Sprintf("(latest %d of %d)\n\n", pendingListLimit, len(attempts)))
	}
	for _, a := range attempts[start:] {
		who := strconv.FormatInt(a.UserID, 10)
		if a.Username != "" {
			who += " (@" + a.Username + ")"
		}
		text.WriteString(fmt.Sprintf("👤 %s\nCommand: %s\nTime: %s\n\n", who, a.Command, a.Timestamp.Format("2006-01-02 15:04")))
	}
	text.WriteString(fmt.Sprintf("Total: %d", len(attempts)))

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text.String(),
	})
}

func (h *Handler) handleClearUnauthorized(ctx context.Context, b *bot.Bot, update *models.Update) {
	var removed int
	err := h.store.Update(func(doc *storeDomain.Document) error {
		removed = len(doc.Unauthorized)
		doc.Unauthorized = nil
		return nil
	})
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("❌ Failed to clear log: %v", err),
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("🗑️ Cleared %d unauthorized attempt(s)", removed),
	})
}

// downloadFile fetches a Telegram file's bytes through the file API
func (h *Handler) downloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	f, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(f), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.files.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// parseUserIDs extracts one numeric user id per line, ignoring anything else
func parseUserIDs(s string) []int64 {
	var out []int64
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

func channelErrorText(err error, channelID int64) string {
	if errors.Is(err, apperrors.ErrChannelNotFound) {
		return fmt.Sprintf("❌ Channel %d not found. Use /channels to list registered ones.", channelID)
	}
	return fmt.Sprintf("❌ %v", err)
}

// sortedChannels returns the document's channels ordered by id
func sortedChannels(doc *storeDomain.Document) []*storeDomain.Channel {
	out := make([]*storeDomain.Channel, 0, len(doc.Channels))
	for _, ch := range doc.Channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
