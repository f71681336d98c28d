package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/go-cmp/cmp"

	approvalService "github.com/reshetovitsme/channel-admin-bot/internal/modules/approval/service"
	autopostService "github.com/reshetovitsme/channel-admin-bot/internal/modules/autopost/service"
	reportService "github.com/reshetovitsme/channel-admin-bot/internal/modules/report/service"
	storeDomain "github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/repository"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/config"
)

const testAdminID int64 = 900

// apiLog records which bot API methods the stub server saw
type apiLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *apiLog) record(method string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, method)
}

func (l *apiLog) count(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, m := range l.calls {
		if m == method {
			n++
		}
	}
	return n
}

// newTestBot wires a bot client to a stub API server that accepts every call
func newTestBot(t *testing.T) (*bot.Bot, *apiLog) {
	t.Helper()
	calls := &apiLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := path.Base(r.URL.Path)
		calls.record(method)
		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "answerCallbackQuery", "deleteMessage", "setMyCommands":
			w.Write([]byte(`{"ok":true,"result":true}`))
		default:
			w.Write([]byte(`{"ok":true,"result":{}}`))
		}
	}))
	t.Cleanup(srv.Close)

	b, err := bot.New("12345:stub", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("bot.New() error = %v", err)
	}
	return b, calls
}

func newTestHandler(t *testing.T) (*Handler, repository.Store) {
	t.Helper()
	store, err := repository.NewFileStore(filepath.Join(t.TempDir(), "state.json"), true)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	cfg := &config.Config{AdminID: testAdminID, PostIntervalMinutes: 15}
	h := New(cfg, store,
		approvalService.New(store),
		autopostService.New(cfg, store),
		reportService.New(cfg, store),
	)
	return h, store
}

func messageUpdate(userID int64, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   1,
			Text: text,
			From: &models.User{ID: userID, FirstName: "Test"},
			Chat: models.Chat{ID: userID},
		},
	}
}

func photoUpdate(userID int64, fileID string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:    2,
			From:  &models.User{ID: userID},
			Chat:  models.Chat{ID: userID},
			Photo: []models.PhotoSize{{FileID: "thumb-" + fileID}, {FileID: fileID}},
		},
	}
}

func seedChannel(t *testing.T, store repository.Store, id int64, title string) {
	t.Helper()
	err := store.Update(func(doc *storeDomain.Document) error {
		doc.Channels[id] = &storeDomain.Channel{ID: id, Title: title, AddedAt: time.Now()}
		return nil
	})
	if err != nil {
		t.Fatalf("seed channel: %v", err)
	}
}

func unauthorizedAttempts(store repository.Store) []storeDomain.UnauthorizedAttempt {
	var out []storeDomain.UnauthorizedAttempt
	store.View(func(doc *storeDomain.Document) {
		out = append(out, doc.Unauthorized...)
	})
	return out
}

func TestAdminOnlyRejectsNonAdmin(t *testing.T) {
	h, store := newTestHandler(t)
	b, calls := newTestBot(t)

	var handled bool
	wrapped := h.adminOnly(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		handled = true
	})
	wrapped(context.Background(), b, messageUpdate(1234, "/stats now"))

	if handled {
		t.Error("wrapped handler ran for a non-admin")
	}
	attempts := unauthorizedAttempts(store)
	if len(attempts) != 1 {
		t.Fatalf("recorded attempts = %d, want 1", len(attempts))
	}
	if attempts[0].UserID != 1234 || attempts[0].Command != "/stats" {
		t.Errorf("attempt = {UserID: %d, Command: %q}, want {1234, \"/stats\"}", attempts[0].UserID, attempts[0].Command)
	}
	if got := calls.count("sendMessage"); got != 1 {
		t.Errorf("sendMessage calls = %d, want 1 rejection reply", got)
	}
}

func TestAdminOnlyPassesAdmin(t *testing.T) {
	h, store := newTestHandler(t)
	b, _ := newTestBot(t)

	var handled bool
	wrapped := h.adminOnly(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		handled = true
	})
	wrapped(context.Background(), b, messageUpdate(testAdminID, "/stats"))

	if !handled {
		t.Error("wrapped handler did not run for the admin")
	}
	if attempts := unauthorizedAttempts(store); len(attempts) != 0 {
		t.Errorf("recorded attempts = %d, want 0", len(attempts))
	}
}

func TestHandleUpdateLogsNonAdminCommandsOnly(t *testing.T) {
	h, store := newTestHandler(t)
	b, _ := newTestBot(t)
	ctx := context.Background()

	h.HandleUpdate(ctx, b, messageUpdate(1234, "hello there"))
	if attempts := unauthorizedAttempts(store); len(attempts) != 0 {
		t.Fatalf("plain chatter recorded %d attempts, want 0", len(attempts))
	}

	h.HandleUpdate(ctx, b, messageUpdate(1234, "/secret"))
	attempts := unauthorizedAttempts(store)
	if len(attempts) != 1 {
		t.Fatalf("recorded attempts = %d, want 1", len(attempts))
	}
	if attempts[0].Command != "/secret" {
		t.Errorf("Command = %q, want %q", attempts[0].Command, "/secret")
	}
}

func TestHandleUpdateJoinRequestNotifiesAdmin(t *testing.T) {
	h, store := newTestHandler(t)
	b, calls := newTestBot(t)
	seedChannel(t, store, -100, "Alpha")

	h.HandleUpdate(context.Background(), b, &models.Update{
		ChatJoinRequest: &models.ChatJoinRequest{
			Chat: models.Chat{ID: -100},
			From: models.User{ID: 42, FirstName: "Alice"},
		},
	})

	var status storeDomain.MemberStatus
	store.View(func(doc *storeDomain.Document) {
		if u, ok := doc.Users[42]; ok {
			if m, ok := u.Memberships[-100]; ok {
				status = m.Status
			}
		}
	})
	if status != storeDomain.MemberStatusPending {
		t.Errorf("membership status = %q, want %q", status, storeDomain.MemberStatusPending)
	}
	if got := calls.count("sendMessage"); got != 1 {
		t.Errorf("sendMessage calls = %d, want 1 admin notification", got)
	}
}

func TestUploadFlowSharedQueue(t *testing.T) {
	h, store := newTestHandler(t)
	b, _ := newTestBot(t)
	ctx := context.Background()

	h.handleUploadImages(ctx, b, messageUpdate(testAdminID, "/upload_images"))
	h.HandleUpdate(ctx, b, photoUpdate(testAdminID, "file-1"))
	h.HandleUpdate(ctx, b, photoUpdate(testAdminID, "file-2"))
	h.handleDoneUploading(ctx, b, messageUpdate(testAdminID, "/done_uploading"))

	// The session is over, stray photos must not land in the queue
	h.HandleUpdate(ctx, b, photoUpdate(testAdminID, "file-3"))

	var fileIDs []string
	store.View(func(doc *storeDomain.Document) {
		for _, img := range doc.SharedImages {
			fileIDs = append(fileIDs, img.FileID)
		}
	})
	want := []string{"file-1", "file-2"}
	if d := cmp.Diff(want, fileIDs); d != "" {
		t.Errorf("shared queue mismatch (-want +got):\n%s", d)
	}
}

func TestUploadForChannelClampsCursor(t *testing.T) {
	h, store := newTestHandler(t)
	b, _ := newTestBot(t)
	ctx := context.Background()

	seedChannel(t, store, -100, "Alpha")
	// A cursor left behind by shared-queue rotation
	err := store.Update(func(doc *storeDomain.Document) error {
		doc.Channels[-100].Cursor = 2
		return nil
	})
	if err != nil {
		t.Fatalf("seed cursor: %v", err)
	}

	h.handleUploadForChannel(ctx, b, messageUpdate(testAdminID, "/upload_for_channel -100"))
	h.HandleUpdate(ctx, b, photoUpdate(testAdminID, "own-1"))

	store.View(func(doc *storeDomain.Document) {
		ch := doc.Channels[-100]
		if len(ch.Images) != 1 || ch.Images[0].FileID != "own-1" {
			t.Errorf("channel images = %+v, want one own-1", ch.Images)
		}
		if ch.Cursor != 0 {
			t.Errorf("cursor = %d, want 0 after clamping to the new queue", ch.Cursor)
		}
	})
}

func TestUploadForChannelUnknownID(t *testing.T) {
	h, store := newTestHandler(t)
	b, _ := newTestBot(t)
	ctx := context.Background()

	h.handleUploadForChannel(ctx, b, messageUpdate(testAdminID, "/upload_for_channel -999"))
	h.HandleUpdate(ctx, b, photoUpdate(testAdminID, "file-1"))

	store.View(func(doc *storeDomain.Document) {
		if len(doc.SharedImages) != 0 {
			t.Errorf("shared queue = %d images, want 0 without an upload session", len(doc.SharedImages))
		}
	})
}

func postCallbackUpdate(userID int64, data string) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 7, Chat: models.Chat{ID: userID}},
			},
		},
	}
}

func TestPostCallbackDeliversToAllChannels(t *testing.T) {
	h, store := newTestHandler(t)
	b, calls := newTestBot(t)

	seedChannel(t, store, -100, "Alpha")
	seedChannel(t, store, -200, "Beta")
	h.session.setPost(&pendingPost{Kind: postText, Text: "hello"})

	h.handlePostCallback(context.Background(), b, postCallbackUpdate(testAdminID, "post:all"))

	if got := calls.count("sendMessage"); got != 2 {
		t.Errorf("sendMessage calls = %d, want 2 channel deliveries", got)
	}
	if p := h.session.takePost(); p != nil {
		t.Error("pending post survived delivery")
	}
}

func TestPostCallbackCancel(t *testing.T) {
	h, _ := newTestHandler(t)
	b, calls := newTestBot(t)

	h.session.setPost(&pendingPost{Kind: postText, Text: "hello"})
	h.handlePostCallback(context.Background(), b, postCallbackUpdate(testAdminID, "post:cancel"))

	if got := calls.count("sendMessage"); got != 0 {
		t.Errorf("sendMessage calls = %d, want 0 after cancel", got)
	}
	if p := h.session.takePost(); p != nil {
		t.Error("pending post survived cancellation")
	}
}

func TestPostCallbackIgnoresNonAdmin(t *testing.T) {
	h, store := newTestHandler(t)
	b, calls := newTestBot(t)

	seedChannel(t, store, -100, "Alpha")
	h.session.setPost(&pendingPost{Kind: postText, Text: "hello"})

	h.handlePostCallback(context.Background(), b, postCallbackUpdate(1234, "post:all"))

	if got := calls.count("sendMessage"); got != 0 {
		t.Errorf("sendMessage calls = %d, want 0 for a non-admin click", got)
	}
	if p := h.session.takePost(); p == nil {
		t.Error("pending post was consumed by a non-admin click")
	}
}

func TestPostFromMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  *models.Message
		want *pendingPost
	}{
		{
			name: "photo takes the largest size",
			msg: &models.Message{
				Photo:   []models.PhotoSize{{FileID: "small"}, {FileID: "large"}},
				Caption: "look",
			},
			want: &pendingPost{Kind: postPhoto, FileID: "large", Caption: "look"},
		},
		{
			name: "video",
			msg:  &models.Message{Video: &models.Video{FileID: "vid"}, Caption: "clip"},
			want: &pendingPost{Kind: postVideo, FileID: "vid", Caption: "clip"},
		},
		{
			name: "document",
			msg:  &models.Message{Document: &models.Document{FileID: "doc"}},
			want: &pendingPost{Kind: postDocument, FileID: "doc"},
		},
		{
			name: "text",
			msg:  &models.Message{Text: "plain words"},
			want: &pendingPost{Kind: postText, Text: "plain words"},
		},
		{
			name: "blank text carries nothing",
			msg:  &models.Message{Text: "   "},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := postFromMessage(tt.msg)
			if d := cmp.Diff(tt.want, got); d != "" {
				t.Errorf("postFromMessage() mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestParseUserIDs(t *testing.T) {
	input := "123\n456\n\nnot a number\n-5\n 789 \n0\n"
	want := []int64{123, 456, 789}
	if d := cmp.Diff(want, parseUserIDs(input)); d != "" {
		t.Errorf("parseUserIDs() mismatch (-want +got):\n%s", d)
	}
}

func TestFirstField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/block_user 42", "/block_user"},
		{"/stats", "/stats"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := firstField(tt.in); got != tt.want {
			t.Errorf("firstField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSessionUploadLifecycle(t *testing.T) {
	var s session

	if mode, _ := s.uploadTarget(); mode != uploadOff {
		t.Fatalf("fresh session mode = %v, want uploadOff", mode)
	}

	s.beginUpload(uploadChannel, -100)
	s.noteUploaded()
	s.noteUploaded()

	mode, n := s.endUpload()
	if mode != uploadChannel || n != 2 {
		t.Errorf("endUpload() = (%v, %d), want (uploadChannel, 2)", mode, n)
	}
	if mode, _ := s.endUpload(); mode != uploadOff {
		t.Errorf("second endUpload() mode = %v, want uploadOff", mode)
	}
}

func TestSessionPostLifecycle(t *testing.T) {
	var s session

	s.expectPost()
	if !s.postExpected() {
		t.Fatal("postExpected() = false after expectPost")
	}

	s.setPost(&pendingPost{Kind: postText, Text: "hi"})
	if s.postExpected() {
		t.Error("postExpected() = true after content was captured")
	}
	if p := s.takePost(); p == nil || p.Text != "hi" {
		t.Errorf("takePost() = %+v, want the captured post", p)
	}
	if p := s.takePost(); p != nil {
		t.Error("takePost() returned content twice")
	}
}
