package service

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/persist"
)

// MessagesService keeps a sparse read/unread override per message id on top
// of a static inbox. Messages without an override keep their own flag.
type MessagesService interface {
	Override(messageID string) (read bool, ok bool)
	SetOverride(messageID string, read bool)
	ApplyOverrides(messages []models.Message) []models.Message
	CountUnread(messages []models.Message) int
	MarkAllRead(messages []models.Message)
}

type messagesService struct {
	store *persist.Store
	log   *slog.Logger

	mu        sync.RWMutex
	overrides map[string]bool
}

func NewMessagesService(store *persist.Store, log *slog.Logger) MessagesService {
	overrides := persist.Load(store, KeyMessageRead, map[string]bool{})
	if overrides == nil {
		overrides = map[string]bool{}
	}

	return &messagesService{
		store:     store,
		log:       log,
		overrides: overrides,
	}
}

func (s *messagesService) Override(messageID string) (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	read, ok := s.overrides[messageID]
	return read, ok
}

func (s *messagesService) SetOverride(messageID string, read bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	s.overrides[messageID] = read
	s.store.Save(KeyMessageRead, s.overrides)
}

func (s *messagesService) ApplyOverrides(messages []models.Message) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(messages))
	for i, m := range messages {
		if read, ok := s.overrides[m.ID]; ok {
			m.IsRead = read
		}
		out[i] = m
	}
	return out
}

func (s *messagesService) CountUnread(messages []models.Message) int {
	count := 0
	for _, m := range s.ApplyOverrides(messages) {
		if !m.IsRead {
			count++
		}
	}
	return count
}

// MarkAllRead sets a read override for every given message in one write.
func (s *messagesService) MarkAllRead(messages []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	next := maps.Clone(s.overrides)
	for _, m := range messages {
		next[m.ID] = true
	}
	s.overrides = next
	s.store.Save(KeyMessageRead, s.overrides)
}

// refreshLocked picks up overrides written by other instances before a
// change on a shared store.
func (s *messagesService) refreshLocked() {
	if !s.store.Shared() {
		return
	}

	var stored map[string]bool
	if persist.LoadInto(s.store, KeyMessageRead, &stored) && stored != nil {
		s.overrides = stored
	}
}
