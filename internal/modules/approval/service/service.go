package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/repository"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// TelegramAPI is the subset of the bot client the approval workflow needs
type TelegramAPI interface {
	ApproveChatJoinRequest(ctx context.Context, params *bot.ApproveChatJoinRequestParams) (bool, error)
	DeclineChatJoinRequest(ctx context.Context, params *bot.DeclineChatJoinRequestParams) (bool, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Service resolves join requests and admin approve/block commands against
// the per-channel bulk flags and the global block list
type Service struct {
	store repository.Store
	tg    TelegramAPI
}

type pendingRequest struct {
	userID    int64
	channelID int64
}

// New creates a new approval service
func New(store repository.Store) *Service {
	return &Service{store: store}
}

// SetBot sets the Telegram client
func (s *Service) SetBot(tg TelegramAPI) {
	s.tg = tg
}

// HandleJoinRequest records an incoming join request and resolves it.
// Blocked users are declined, channels in bulk mode approve on the spot,
// everything else stays pending for the admin.
func (s *Service) HandleJoinRequest(ctx context.Context, channelID int64, from *models.User) (domain.MemberStatus, error) {
	var (
		blocked bool
		bulk    bool
	)
	err := s.store.Update(func(doc *domain.Document) error {
		user := doc.EnsureUser(from.ID, from.FirstName, from.LastName, from.Username)
		membership := user.EnsureMembership(channelID)
		membership.RequestedAt = time.Now()
		blocked = user.Blocked
		if blocked {
			membership.Status = domain.MemberStatusBlocked
		} else {
			// A fresh request supersedes any earlier resolution
			membership.Status = domain.MemberStatusPending
			membership.ApprovedAt = time.Time{}
		}
		if ch, ok := doc.Channels[channelID]; ok {
			bulk = ch.BulkMode
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if blocked {
		if _, err := s.tg.DeclineChatJoinRequest(ctx, &bot.DeclineChatJoinRequestParams{
			ChatID: channelID,
			UserID: from.ID,
		}); err != nil {
			slog.Error("Failed to decline join request", "user_id", from.ID, "channel_id", channelID, "error", err)
		}
		return domain.MemberStatusBlocked, nil
	}

	if !bulk {
		return domain.MemberStatusPending, nil
	}

	if err := s.approve(ctx, from.ID, channelID); err != nil {
		slog.Error("Bulk approval failed", "user_id", from.ID, "channel_id", channelID, "error", err)
		return domain.MemberStatusPending, nil
	}
	s.notifyApproved(ctx, from.ID, channelID)
	return domain.MemberStatusApproved, nil
}

// ApproveUser approves a single tracked user on a channel. Blocked users
// are refused before any API call is made.
func (s *Service) ApproveUser(ctx context.Context, userID, channelID int64) error {
	var (
		found   bool
		blocked bool
	)
	s.store.View(func(doc *domain.Document) {
		u, ok := doc.Users[userID]
		found = ok
		blocked = ok && u.Blocked
	})
	if !found {
		return errors.ErrUserNotFound
	}
	if blocked {
		return errors.ErrUserBlocked
	}

	if err := s.approve(ctx, userID, channelID); err != nil {
		return err
	}
	s.notifyApproved(ctx, userID, channelID)
	return nil
}

// ApproveAllPending sweeps every channel's pending queue. Individual API
// failures are counted and never abort the sweep.
func (s *Service) ApproveAllPending(ctx context.Context) (approved, failed int) {
	for _, p := range s.collectPending(0) {
		if err := s.approve(ctx, p.userID, p.channelID); err != nil {
			slog.Error("Failed to approve pending request", "user_id", p.userID, "channel_id", p.channelID, "error", err)
			failed++
			continue
		}
		s.notifyApproved(ctx, p.userID, p.channelID)
		approved++
	}
	return approved, failed
}

// ToggleBulk flips a channel's bulk-approval flag. Turning it on sweeps
// the channel's existing pending requests, so the flag means "everyone
// non-blocked gets in" from that moment, not just for future requests.
func (s *Service) ToggleBulk(ctx context.Context, channelID int64) (enabled bool, swept int, err error) {
	err = s.store.Update(func(doc *domain.Document) error {
		ch, ok := doc.Channels[channelID]
		if !ok {
			return errors.ErrChannelNotFound
		}
		ch.BulkMode = !ch.BulkMode
		enabled = ch.BulkMode
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if !enabled {
		return false, 0, nil
	}

	for _, p := range s.collectPending(channelID) {
		if err := s.approve(ctx, p.userID, p.channelID); err != nil {
			slog.Error("Failed to approve pending request", "user_id", p.userID, "channel_id", p.channelID, "error", err)
			continue
		}
		s.notifyApproved(ctx, p.userID, p.channelID)
		swept++
	}
	return true, swept, nil
}

// BlockUser blocks a user globally. The record is created when missing so
// known troublemakers can be blocked before their first request.
func (s *Service) BlockUser(ctx context.Context, userID int64) error {
	return s.store.Update(func(doc *domain.Document) error {
		user := doc.EnsureUser(userID, "", "", "")
		user.Block(time.Now())
		return nil
	})
}

// UnblockUser lifts the global block. Past per-channel blocked statuses
// stay until the admin explicitly approves again.
func (s *Service) UnblockUser(ctx context.Context, userID int64) error {
	return s.store.Update(func(doc *domain.Document) error {
		user, ok := doc.Users[userID]
		if !ok {
			return errors.ErrUserNotFound
		}
		user.Blocked = false
		user.BlockedAt = time.Time{}
		return nil
	})
}

// BulkApprove approves a list of user ids on one channel, tracking ids the
// bot has never seen so the result shows up in exports
func (s *Service) BulkApprove(ctx context.Context, channelID int64, userIDs []int64) (approved, failed int, err error) {
	var found bool
	s.store.View(func(doc *domain.Document) {
		_, found = doc.Channels[channelID]
	})
	if !found {
		return 0, 0, errors.ErrChannelNotFound
	}

	for _, id := range userIDs {
		if err := s.store.Update(func(doc *domain.Document) error {
			u := doc.EnsureUser(id, "", "", "")
			if u.Blocked {
				return errors.ErrUserBlocked
			}
			u.EnsureMembership(channelID)
			return nil
		}); err != nil {
			failed++
			continue
		}
		if err := s.approve(ctx, id, channelID); err != nil {
			slog.Error("Bulk approval failed", "user_id", id, "channel_id", channelID, "error", err)
			failed++
			continue
		}
		approved++
	}
	return approved, failed, nil
}

// ImportUsers sends the target channel's invite link to users who are
// approved elsewhere but not yet tracked on the target. With sourceID set
// only that channel's approved members are considered. No membership is
// recorded here, users still have to request to join.
func (s *Service) ImportUsers(ctx context.Context, targetID, sourceID int64) (invited, failed int, err error) {
	var (
		found      bool
		link       string
		title      string
		candidates []int64
	)
	s.store.View(func(doc *domain.Document) {
		ch, ok := doc.Channels[targetID]
		if !ok {
			return
		}
		found = true
		link = ch.InviteLink
		title = ch.Title

		for _, u := range doc.Users {
			if u.Blocked {
				continue
			}
			if _, tracked := u.Memberships[targetID]; tracked {
				continue
			}
			if sourceID != 0 {
				m, ok := u.Memberships[sourceID]
				if !ok || m.Status != domain.MemberStatusApproved {
					continue
				}
			} else if !lo.ContainsBy(lo.Values(u.Memberships), func(m *domain.Membership) bool {
				return m.Status == domain.MemberStatusApproved
			}) {
				continue
			}
			candidates = append(candidates, u.ID)
		}
	})
	if !found {
		return 0, 0, errors.ErrChannelNotFound
	}
	if link == "" {
		return 0, 0, oops.With("channel_id", targetID).Errorf("channel has no invite link")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	text := fmt.Sprintf("📢 You are invited to join %s:\n%s", title, link)
	for _, id := range candidates {
		if _, err := s.tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: id, Text: text}); err != nil {
			slog.Debug("Invite not delivered", "user_id", id, "channel_id", targetID, "error", err)
			failed++
			continue
		}
		invited++
	}
	return invited, failed, nil
}

// PendingCount reports how many requests are waiting across all channels
func (s *Service) PendingCount() int {
	return len(s.collectPending(0))
}

// approve calls the Telegram API and records the new status once the call
// succeeds. A request approved on the platform but lost here would be
// worse than the reverse, so the store write comes second.
func (s *Service) approve(ctx context.Context, userID, channelID int64) error {
	if _, err := s.tg.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: channelID,
		UserID: userID,
	}); err != nil {
		return oops.With("user_id", userID, "channel_id", channelID, "context", "approve call failed").Wrap(err)
	}

	return s.store.Update(func(doc *domain.Document) error {
		user, ok := doc.Users[userID]
		if !ok {
			return errors.ErrUserNotFound
		}
		if user.Blocked {
			return errors.ErrUserBlocked
		}
		m := user.EnsureMembership(channelID)
		m.Status = domain.MemberStatusApproved
		m.ApprovedAt = time.Now()
		return nil
	})
}

// collectPending lists pending requests from non-blocked users in a stable
// order, optionally limited to one channel (0 means all)
func (s *Service) collectPending(channelID int64) []pendingRequest {
	var out []pendingRequest
	s.store.View(func(doc *domain.Document) {
		for _, u := range doc.Users {
			if u.Blocked {
				continue
			}
			for chID, m := range u.Memberships {
				if channelID != 0 && chID != channelID {
					continue
				}
				if m.Status == domain.MemberStatusPending {
					out = append(out, pendingRequest{userID: u.ID, channelID: chID})
				}
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].userID != out[j].userID {
			return out[i].userID < out[j].userID
		}
		return out[i].channelID < out[j].channelID
	})
	return out
}

// notifyApproved tells the user their request went through, best effort
func (s *Service) notifyApproved(ctx context.Context, userID, channelID int64) {
	var name string
	s.store.View(func(doc *domain.Document) {
		name = doc.ChannelName(channelID)
	})
	if _, err := s.tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: userID,
		Text:   fmt.Sprintf("✅ Your request to join %s has been approved!", name),
	}); err != nil {
		slog.Debug("Approval notification not delivered", "user_id", userID, "error", err)
	}
}
