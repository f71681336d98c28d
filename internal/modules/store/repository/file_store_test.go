package repository

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
	"github.com/reshetovitsme/channel-admin-bot/internal/shared/errors"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewFileStore(path, false)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s, path
}

func populate(t *testing.T, s *FileStore) {
	t.Helper()
	err := s.Update(func(doc *domain.Document) error {
		doc.Channels[-100123] = &domain.Channel{
			ID:       -100123,
			Title:    "Announcements",
			BulkMode: true,
			AutoPost: true,
			Caption:  "per-channel caption",
			Images: []domain.Image{
				{FileID: "img-1", AddedAt: time.Now()},
				{FileID: "img-2", AddedAt: time.Now()},
			},
			Cursor:  1,
			AddedAt: time.Now(),
		}
		u := doc.EnsureUser(42, "Alice", "Smith", "alice")
		m := u.EnsureMembership(-100123)
		m.Status = domain.MemberStatusApproved
		m.ApprovedAt = time.Now()
		doc.SharedImages = append(doc.SharedImages, domain.Image{FileID: "shared-1", AddedAt: time.Now()})
		doc.Unauthorized = append(doc.Unauthorized, domain.UnauthorizedAttempt{
			UserID:    77,
			Username:  "mallory",
			Command:   "/stats",
			Timestamp: time.Now(),
		})
		doc.Settings.DefaultCaption = "global caption"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	populate(t, s)

	var want domain.Document
	s.View(func(doc *domain.Document) {
		clone, err := doc.Clone()
		if err != nil {
			t.Fatalf("Clone: %v", err)
		}
		want = *clone
	})

	reloaded, err := NewFileStore(path, true)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	reloaded.View(func(got *domain.Document) {
		if d := cmp.Diff(&want, got); d != "" {
			t.Errorf("reloaded document mismatch (-want +got):\n%s", d)
		}
	})
}

func TestFileStoreMissingFile(t *testing.T) {
	s, _ := newTestStore(t)

	s.View(func(doc *domain.Document) {
		if len(doc.Channels) != 0 || len(doc.Users) != 0 {
			t.Errorf("expected empty document, got %d channels, %d users", len(doc.Channels), len(doc.Users))
		}
	})
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Run("lenient resets to defaults", func(t *testing.T) {
		s, err := NewFileStore(path, false)
		if err != nil {
			t.Fatalf("NewFileStore: %v", err)
		}
		s.View(func(doc *domain.Document) {
			if len(doc.Channels) != 0 {
				t.Errorf("expected empty document, got %d channels", len(doc.Channels))
			}
		})
	})

	t.Run("strict fails startup", func(t *testing.T) {
		_, err := NewFileStore(path, true)
		if !stderrors.Is(err, errors.ErrCorruptState) {
			t.Errorf("got %v, want ErrCorruptState", err)
		}
	})
}

func TestFileStoreUpdateRollback(t *testing.T) {
	s, path := newTestStore(t)
	populate(t, s)

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	failure := stderrors.New("boom")
	err = s.Update(func(doc *domain.Document) error {
		doc.Channels[-100123].Cursor = 99
		doc.Settings.DefaultCaption = "should not persist"
		return failure
	})
	if !stderrors.Is(err, failure) {
		t.Fatalf("got %v, want the closure error", err)
	}

	s.View(func(doc *domain.Document) {
		if got := doc.Channels[-100123].Cursor; got != 1 {
			t.Errorf("cursor = %d, want 1 after rollback", got)
		}
		if got := doc.Settings.DefaultCaption; got != "global caption" {
			t.Errorf("default caption = %q, want unchanged", got)
		}
	})

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if d := cmp.Diff(string(before), string(after)); d != "" {
		t.Errorf("state file changed by failed update (-before +after):\n%s", d)
	}
}

func TestFileStoreLeavesNoTempFile(t *testing.T) {
	s, path := newTestStore(t)
	populate(t, s)

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after save: %v", err)
	}
}
