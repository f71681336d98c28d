package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/report/domain"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/repository"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/config"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

var csvHeader = []string{
	"User ID", "First Name", "Last Name", "Username",
	"Channel Name", "Channel ID", "Status", "Request Date", "Approval Date",
}

// DocumentSender is the part of the bot client report delivery needs
type DocumentSender interface {
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// Service aggregates statistics and exports the user database as CSV
type Service struct {
	cfg    *config.Config
	store  repository.Store
	tg     DocumentSender
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new report service
func New(cfg *config.Config, store repository.Store) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:    cfg,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetBot sets the Telegram bot instance
func (s *Service) SetBot(tg DocumentSender) {
	s.tg = tg
}

// Start begins the weekly report loop
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.reportLoop()
}

// Stop stops the weekly report loop
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Stats computes an aggregate snapshot of the whole document
func (s *Service) Stats() domain.Stats {
	var stats domain.Stats
	s.store.View(func(doc *storeDomain.Document) {
		channels := lo.Values(doc.Channels)
		users := lo.Values(doc.Users)

		stats.Channels = len(channels)
		stats.BulkChannels = lo.CountBy(channels, func(ch *storeDomain.Channel) bool { return ch.BulkMode })
		stats.AutoPostChannels = lo.CountBy(channels, func(ch *storeDomain.Channel) bool { return ch.AutoPost })
		stats.Users = len(users)
		stats.BlockedUsers = lo.CountBy(users, func(u *storeDomain.User) bool { return u.Blocked })
		stats.SharedImages = len(doc.SharedImages)
		stats.Unauthorized = len(doc.Unauthorized)

		for _, ch := range channels {
			stats.ChannelImages += len(ch.Images)
		}
		for _, u := range users {
			for _, m := range u.Memberships {
				switch m.Status {
				case storeDomain.MemberStatusPending:
					stats.PendingRequests++
				case storeDomain.MemberStatusApproved:
					stats.ApprovedRequests++
				case storeDomain.MemberStatusBlocked:
				}
			}
		}
	})
	return stats
}

// UserStats breaks request counts down per channel, sorted by channel id
func (s *Service) UserStats() []domain.ChannelUserStats {
	var out []domain.ChannelUserStats
	s.store.View(func(doc *storeDomain.Document) {
		for _, ch := range doc.Channels {
			entry := domain.ChannelUserStats{ChannelID: ch.ID, Title: ch.Title}
			for _, u := range doc.Users {
				m, ok := u.Memberships[ch.ID]
				if !ok {
					continue
				}
				switch m.Status {
				case storeDomain.MemberStatusApproved:
					entry.Approved++
				case storeDomain.MemberStatusPending:
					entry.Pending++
				case storeDomain.MemberStatusBlocked:
					entry.Blocked++
				}
			}
			out = append(out, entry)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// ExportCSV renders the user database as CSV, one row per tracked
// membership. A non-zero channelID keeps only that channel's rows.
// The record count comes back alongside the bytes.
func (s *Service) ExportCSV(channelID int64) ([]byte, int, error) {
	type row struct {
		userID    int64
		channelID int64
		cells     []string
	}
	var (
		found bool
		rows  []row
	)
	s.store.View(func(doc *storeDomain.Document) {
		_, found = doc.Channels[channelID]
		for _, u := range doc.Users {
			for chID, m := range u.Memberships {
				if channelID != 0 && chID != channelID {
					continue
				}
				rows = append(rows, row{
					userID:    u.ID,
					channelID: chID,
					cells: []string{
						strconv.FormatInt(u.ID, 10),
						u.FirstName,
						u.LastName,
						u.Username,
						doc.ChannelName(chID),
						strconv.FormatInt(chID, 10),
						m.Status.String(),
						formatDate(m.RequestedAt),
						formatDate(m.ApprovedAt),
					},
				})
			}
		}
	})
	if channelID != 0 && !found {
		return nil, 0, errors.ErrChannelNotFound
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].userID != rows[j].userID {
			return rows[i].userID < rows[j].userID
		}
		return rows[i].channelID < rows[j].channelID
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, 0, oops.With("context", "failed to write csv header").Wrap(err)
	}
	for _, r := range rows {
		if err := w.Write(r.cells); err != nil {
			return nil, 0, oops.With("user_id", r.userID, "context", "failed to write csv row").Wrap(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, oops.With("context", "failed to flush csv").Wrap(err)
	}
	return buf.Bytes(), len(rows), nil
}

// SendWeeklyReport exports the full user database and sends it to the
// admin. Nothing goes out when no memberships are tracked.
func (s *Service) SendWeeklyReport(ctx context.Context) error {
	data, records, err := s.ExportCSV(0)
	if err != nil {
		return err
	}
	if records == 0 {
		slog.Info("Skipping weekly report, no user data")
		return nil
	}

	var users int
	s.store.View(func(doc *storeDomain.Document) {
		users = len(doc.Users)
	})

	filename := fmt.Sprintf("weekly_report_%s.csv", time.Now().Format("20060102"))
	_, err = s.tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   s.cfg.AdminID,
		Document: &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption:  fmt.Sprintf("📊 Weekly User Report\n\nTotal Users: %d\nTotal Records: %d", users, records),
	})
	if err != nil {
		return oops.With("admin_id", s.cfg.AdminID, "context", "failed to send weekly report").Wrap(err)
	}
	slog.Info("Weekly report sent", "records", records)
	return nil
}

func (s *Service) reportLoop() {
	defer s.wg.Done()

	for {
		timer := time.NewTimer(time.Until(nextReportTime(time.Now())))
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := s.SendWeeklyReport(s.ctx); err != nil {
				slog.Error("Failed to send weekly report", "error", err)
			}
		}
	}
}

// nextReportTime returns the first Monday 09:00 local time strictly
// after now
func nextReportTime(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04")
}
