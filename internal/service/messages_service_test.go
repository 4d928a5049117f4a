package service_test

import (
	"testing"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/persist"
	"github.com/manjushapaul/Crypto-sub001/internal/repository"
	"github.com/manjushapaul/Crypto-sub001/internal/service"
)

func inbox() []models.Message {
	return []models.Message{
		{ID: "m1", Subject: "Welcome", IsRead: true},
		{ID: "m2", Subject: "Price alert"},
		{ID: "m3", Subject: "Security notice"},
	}
}

func TestMessageOverlay(t *testing.T) {
	store, _ := newTestStore()
	svc := service.NewMessagesService(store, testLogger())

	if _, ok := svc.Override("m1"); ok {
		t.Errorf("Expected no override initially")
	}
	if got := svc.CountUnread(inbox()); got != 2 {
		t.Errorf("Expected 2 unread by default, got %d", got)
	}

	svc.SetOverride("m1", false)
	svc.SetOverride("m2", true)

	t.Run("apply", func(t *testing.T) {
		base := inbox()
		applied := svc.ApplyOverrides(base)

		if applied[0].IsRead || !applied[1].IsRead || applied[2].IsRead {
			t.Errorf("Unexpected read flags after overlay: %+v", applied)
		}
		if !base[0].IsRead {
			t.Errorf("ApplyOverrides must not modify its input")
		}
		if got := svc.CountUnread(base); got != 2 {
			t.Errorf("Expected 2 unread, got %d", got)
		}
	})

	t.Run("persisted", func(t *testing.T) {
		reloaded := service.NewMessagesService(store, testLogger())
		if read, ok := reloaded.Override("m2"); !ok || !read {
			t.Errorf("Expected override for m2 after reload")
		}
	})

	t.Run("mark_all", func(t *testing.T) {
		svc.MarkAllRead(inbox())
		if got := svc.CountUnread(inbox()); got != 0 {
			t.Errorf("Expected 0 unread, got %d", got)
		}
	})
}

func TestMessageOverlayOnSharedStore(t *testing.T) {
	repo := repository.NewMemoryKVRepository()
	a := service.NewMessagesService(persist.New(repo, testLogger(), persist.WithShared(true)), testLogger())
	b := service.NewMessagesService(persist.New(repo, testLogger(), persist.WithShared(true)), testLogger())

	a.SetOverride("m2", true)
	b.SetOverride("m3", true)

	reloaded := service.NewMessagesService(persist.New(repo, testLogger()), testLogger())
	if got := reloaded.CountUnread(inbox()); got != 0 {
		t.Errorf("Expected overrides from both instances to be kept, got %d unread", got)
	}
}
