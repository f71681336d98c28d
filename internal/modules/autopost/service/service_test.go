package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/go-cmp/cmp"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/autopost/domain"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/repository"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/config"
	sharederrors "github.com/reshetovitsme/channel-admin-bot/internal/shared/errors"
)

type sentPhoto struct {
	chatID  int64
	fileID  string
	caption string
}

type fakeSender struct {
	mu         sync.Mutex
	sent       []sentPhoto
	failChatID int64
}

func (f *fakeSender) SendPhoto(_ context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chatID, _ := params.ChatID.(int64)
	if f.failChatID != 0 && chatID == f.failChatID {
		return nil, errors.New("telegram: CHAT_WRITE_FORBIDDEN")
	}
	file, _ := params.Photo.(*models.InputFileString)
	f.sent = append(f.sent, sentPhoto{chatID: chatID, fileID: file.Data, caption: params.Caption})
	return &models.Message{}, nil
}

func newTestService(t *testing.T) (*Service, *fakeSender, repository.Store) {
	t.Helper()
	store, err := repository.NewFileStore(filepath.Join(t.TempDir(), "state.json"), true)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	tg := &fakeSender{}
	svc := New(&config.Config{PostIntervalMinutes: 15}, store)
	svc.SetBot(tg)
	return svc, tg, store
}

func seedChannel(t *testing.T, store repository.Store, ch *storeDomain.Channel) {
	t.Helper()
	err := store.Update(func(doc *storeDomain.Document) error {
		doc.Channels[ch.ID] = ch
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func images(fileIDs ...string) []storeDomain.Image {
	out := make([]storeDomain.Image, 0, len(fileIDs))
	for _, id := range fileIDs {
		out = append(out, storeDomain.Image{FileID: id})
	}
	return out
}

func cursorOf(t *testing.T, store repository.Store, channelID int64) int {
	t.Helper()
	var cursor int
	store.View(func(doc *storeDomain.Document) {
		cursor = doc.Channels[channelID].Cursor
	})
	return cursor
}

func TestPostNextRoundRobin(t *testing.T) {
	svc, tg, store := newTestService(t)
	seedChannel(t, store, &storeDomain.Channel{
		ID:       -100,
		AutoPost: true,
		Images:   images("img-a", "img-b", "img-c"),
	})

	// Three cycles visit each image exactly once, the fourth wraps around
	var got []string
	for i := 0; i < 4; i++ {
		posted, err := svc.PostNext(context.Background(), -100)
		if err != nil {
			t.Fatalf("PostNext() #%d error = %v", i, err)
		}
		if !posted {
			t.Fatalf("PostNext() #%d posted = false", i)
		}
	}
	for _, p := range tg.sent {
		got = append(got, p.fileID)
	}
	want := []string{"img-a", "img-b", "img-c", "img-a"}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("posting order mismatch (-want +got):\n%s", d)
	}
	if got := cursorOf(t, store, -100); got != 1 {
		t.Errorf("cursor = %d, want 1", got)
	}
}

func TestPostNextEmptyQueue(t *testing.T) {
	svc, tg, store := newTestService(t)
	seedChannel(t, store, &storeDomain.Channel{ID: -100, AutoPost: true})

	posted, err := svc.PostNext(context.Background(), -100)
	if err != nil {
		t.Fatalf("PostNext() error = %v", err)
	}
	if posted {
		t.Error("PostNext() posted = true, want skip on empty queue")
	}
	if len(tg.sent) != 0 {
		t.Errorf("sent %d photos, want 0", len(tg.sent))
	}
}

func TestPostNextUnknownChannel(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PostNext(context.Background(), -999)
	if !errors.Is(err, sharederrors.ErrChannelNotFound) {
		t.Errorf("PostNext() error = %v, want ErrChannelNotFound", err)
	}
}

func TestPostNextSharedFallback(t *testing.T) {
	svc, tg, store := newTestService(t)
	seedChannel(t, store, &storeDomain.Channel{ID: -100, AutoPost: true})
	err := store.Update(func(doc *storeDomain.Document) error {
		doc.SharedImages = images("shared-a", "shared-b")
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.PostNext(context.Background(), -100); err != nil {
			t.Fatalf("PostNext() #%d error = %v", i, err)
		}
	}
	want := []sentPhoto{
		{chatID: -100, fileID: "shared-a"},
		{chatID: -100, fileID: "shared-b"},
	}
	if d := cmp.Diff(want, tg.sent, cmp.AllowUnexported(sentPhoto{})); d != "" {
		t.Errorf("sent photos mismatch (-want +got):\n%s", d)
	}
}

func TestPostNextCaptionFallback(t *testing.T) {
	tests := []struct {
		name           string
		channelCaption string
		defaultCaption string
		want           string
	}{
		{name: "channel caption wins", channelCaption: "Channel news", defaultCaption: "Global", want: "Channel news"},
		{name: "default caption fallback", channelCaption: "", defaultCaption: "Global", want: "Global"},
		{name: "no caption", channelCaption: "", defaultCaption: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tg, store := newTestService(t)
			seedChannel(t, store, &storeDomain.Channel{
				ID:       -100,
				AutoPost: true,
				Caption:  tt.channelCaption,
				Images:   images("img-a"),
			})
			err := store.Update(func(doc *storeDomain.Document) error {
				doc.Settings.DefaultCaption = tt.defaultCaption
				return nil
			})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}

			if _, err := svc.PostNext(context.Background(), -100); err != nil {
				t.Fatalf("PostNext() error = %v", err)
			}
			if got := tg.sent[0].caption; got != tt.want {
				t.Errorf("caption = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPostNextFailureKeepsCursor(t *testing.T) {
	svc, tg, store := newTestService(t)
	seedChannel(t, store, &storeDomain.Channel{
		ID:       -100,
		AutoPost: true,
		Images:   images("img-a", "img-b"),
	})
	tg.failChatID = -100

	_, err := svc.PostNext(context.Background(), -100)
	if err == nil {
		t.Fatal("PostNext() error = nil, want send failure")
	}
	if got := cursorOf(t, store, -100); got != 0 {
		t.Errorf("cursor after failed send = %d, want 0", got)
	}

	// The same image goes out once the send recovers
	tg.failChatID = 0
	if _, err := svc.PostNext(context.Background(), -100); err != nil {
		t.Fatalf("PostNext() error = %v", err)
	}
	if got := tg.sent[0].fileID; got != "img-a" {
		t.Errorf("retried fileID = %q, want img-a", got)
	}
}

func TestRunCycleContinuesPastFailures(t *testing.T) {
	svc, tg, store := newTestService(t)
	seedChannel(t, store, &storeDomain.Channel{ID: -300, AutoPost: true, Images: images("c-img")})
	seedChannel(t, store, &storeDomain.Channel{ID: -200, AutoPost: true, Images: images("b-img")})
	seedChannel(t, store, &storeDomain.Channel{ID: -100, AutoPost: false, Images: images("a-img")})
	tg.failChatID = -300

	svc.RunCycle(context.Background())

	// -300 fails, -200 posts, -100 is disabled
	want := []sentPhoto{{chatID: -200, fileID: "b-img"}}
	if d := cmp.Diff(want, tg.sent, cmp.AllowUnexported(sentPhoto{})); d != "" {
		t.Errorf("sent photos mismatch (-want +got):\n%s", d)
	}
}

func TestEnableDisableAutoPost(t *testing.T) {
	svc, _, store := newTestService(t)
	seedChannel(t, store, &storeDomain.Channel{ID: -100})

	// Enabling twice is fine
	for i := 0; i < 2; i++ {
		if err := svc.EnableAutoPost(-100); err != nil {
			t.Fatalf("EnableAutoPost() #%d error = %v", i, err)
		}
	}
	store.View(func(doc *storeDomain.Document) {
		if !doc.Channels[-100].AutoPost {
			t.Error("AutoPost = false, want true")
		}
	})

	if err := svc.DisableAutoPost(-100); err != nil {
		t.Fatalf("DisableAutoPost() error = %v", err)
	}
	store.View(func(doc *storeDomain.Document) {
		if doc.Channels[-100].AutoPost {
			t.Error("AutoPost = true, want false")
		}
	})

	if err := svc.EnableAutoPost(-999); !errors.Is(err, sharederrors.ErrChannelNotFound) {
		t.Errorf("EnableAutoPost(-999) error = %v, want ErrChannelNotFound", err)
	}
}

func TestStatuses(t *testing.T) {
	svc, _, store := newTestService(t)
	seedChannel(t, store, &storeDomain.Channel{ID: -200, Title: "Beta", AutoPost: true, Images: images("x", "y"), Cursor: 1})
	seedChannel(t, store, &storeDomain.Channel{ID: -100, Title: "Alpha"})
	err := store.Update(func(doc *storeDomain.Document) error {
		doc.SharedImages = images("s")
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	want := []domain.ChannelStatus{
		{ChannelID: -200, Title: "Beta", Enabled: true, Source: domain.QueueSourceChannel, QueueLen: 2, Cursor: 1},
		{ChannelID: -100, Title: "Alpha", Enabled: false, Source: domain.QueueSourceShared, QueueLen: 1, Cursor: 0},
	}
	if d := cmp.Diff(want, svc.Statuses()); d != "" {
		t.Errorf("Statuses() mismatch (-want +got):\n%s", d)
	}
}
