package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/autopost/domain"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/repository"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/config"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/errors"
	"github.com/samber/oops"
)

// PhotoSender is the part of the bot client the posting loop needs
type PhotoSender interface {
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
}

// Service posts queued images to enabled channels on a fixed interval
type Service struct {
	cfg    *config.Config
	store  repository.Store
	tg     PhotoSender
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new autopost service
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
func (s *Service) SetBot(tg PhotoSender) {
	s.tg = tg
}

// Start begins the posting loop
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.postLoop()
}

// Stop stops the posting loop
func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) postLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PostInterval())
	defer ticker.Stop()

	// No post on startup, the first one lands a full interval in
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(s.ctx)
		}
	}
}

// RunCycle posts the next image to every enabled channel. Failures on one
// channel never stop the others.
func (s *Service) RunCycle(ctx context.Context) {
	var channelIDs []int64
	s.store.View(func(doc *storeDomain.Document) {
		for id, ch := range doc.Channels {
			if ch.AutoPost {
				channelIDs = append(channelIDs, id)
			}
		}
	})
	sort.Slice(channelIDs, func(i, j int) bool { return channelIDs[i] < channelIDs[j] })

	for _, id := range channelIDs {
		if _, err := s.PostNext(ctx, id); err != nil {
			slog.Error("Failed to post to channel", "channel_id", id, "error", err)
		}
	}
}

// PostNext sends one image to a channel and advances its cursor. The
// cursor moves only after Telegram accepts the photo, so a failed send
// retries the same image on the next cycle. An empty queue is skipped,
// not an error.
func (s *Service) PostNext(ctx context.Context, channelID int64) (bool, error) {
	var (
		found   bool
		fileID  string
		caption string
		source  domain.QueueSource
		length  int
	)
	s.store.View(func(doc *storeDomain.Document) {
		ch, ok := doc.Channels[channelID]
		if !ok {
			return
		}
		found = true
		source, length = queueFor(doc, ch)
		if length == 0 {
			return
		}
		idx := ch.Cursor % length
		if source == domain.QueueSourceChannel {
			fileID = ch.Images[idx].FileID
		} else {
			fileID = doc.SharedImages[idx].FileID
		}
		caption = resolveCaption(doc, ch)
	})
	if !found {
		return false, errors.ErrChannelNotFound
	}
	if length == 0 {
		slog.Debug("Image queue is empty", "channel_id", channelID)
		return false, nil
	}

	if _, err := s.tg.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  channelID,
		Photo:   &models.InputFileString{Data: fileID},
		Caption: caption,
	}); err != nil {
		return false, oops.With("channel_id", channelID, "source", source, "context", "failed to send photo").Wrap(err)
	}

	// Recompute the queue length here, the admin may have changed the
	// queue while the send was in flight
	err := s.store.Update(func(doc *storeDomain.Document) error {
		ch, ok := doc.Channels[channelID]
		if !ok {
			return errors.ErrChannelNotFound
		}
		_, n := queueFor(doc, ch)
		if n == 0 {
			ch.Cursor = 0
			return nil
		}
		ch.Cursor = (ch.Cursor%n + 1) % n
		return nil
	})
	if err != nil {
		return true, err
	}

	slog.Info("Posted image", "channel_id", channelID, "source", source)
	return true, nil
}

// EnableAutoPost turns scheduled posting on for a channel
func (s *Service) EnableAutoPost(channelID int64) error {
	return s.setAutoPost(channelID, true)
}

// DisableAutoPost turns scheduled posting off for a channel
func (s *Service) DisableAutoPost(channelID int64) error {
	return s.setAutoPost(channelID, false)
}

func (s *Service) setAutoPost(channelID int64, enabled bool) error {
	return s.store.Update(func(doc *storeDomain.Document) error {
		ch, ok := doc.Channels[channelID]
		if !ok {
			return errors.ErrChannelNotFound
		}
		ch.AutoPost = enabled
		return nil
	})
}

// Statuses reports the posting state of every registered channel
func (s *Service) Statuses() []domain.ChannelStatus {
	var out []domain.ChannelStatus
	s.store.View(func(doc *storeDomain.Document) {
		for _, ch := range doc.Channels {
			source, length := queueFor(doc, ch)
			out = append(out, domain.ChannelStatus{
				ChannelID: ch.ID,
				Title:     ch.Title,
				Enabled:   ch.AutoPost,
				Source:    source,
				QueueLen:  length,
				Cursor:    ch.Cursor,
			})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// queueFor picks the queue a channel draws from, its own images first
// with the shared pool as fallback
func queueFor(doc *storeDomain.Document, ch *storeDomain.Channel) (domain.QueueSource, int) {
	if len(ch.Images) > 0 {
		return domain.QueueSourceChannel, len(ch.Images)
	}
	return domain.QueueSourceShared, len(doc.SharedImages)
}

// resolveCaption falls back from the channel caption to the global default
func resolveCaption(doc *storeDomain.Document, ch *storeDomain.Channel) string {
	if ch.Caption != "" {
		return ch.Caption
	}
	return doc.Settings.DefaultCaption
}
