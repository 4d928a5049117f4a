package service

import (
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/persist"
)

const initialsFallback = "U"

var DefaultUserProfile = models.UserProfile{
	Name:  "Manjusha Paul",
	Email: "manjusha.paul@example.com",
}

type UsersService interface {
	User() models.UserProfile
	UpdateUser(patch models.UserPatch)
	Initials() string
}

type usersService struct {
	store *persist.Store
	log   *slog.Logger

	mu   sync.RWMutex
	user models.UserProfile
}

// NewUsersService loads the stored profile on top of DefaultUserProfile, so
// records written before a field existed still come back fully populated.
func NewUsersService(store *persist.Store, log *slog.Logger) UsersService {
	user := DefaultUserProfile
	persist.LoadInto(store, KeyUserProfile, &user)

	return &usersService{
		store: store,
		log:   log,
		user:  user,
	}
}

func (s *usersService) User() models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.user
}

func (s *usersService) UpdateUser(patch models.UserPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Shared() {
		persist.LoadInto(s.store, KeyUserProfile, &s.user)
	}
	s.user = patch.Apply(s.user)
	s.store.Save(KeyUserProfile, s.user)
}

func (s *usersService) Initials() string {
	return Initials(s.User().Name)
}

// Initials takes the first letter of the first and last word of name, or of
// its only word. An empty name yields "U".
func Initials(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return initialsFallback
	case 1:
		return firstUpper(words[0])
	default:
		return firstUpper(words[0]) + firstUpper(words[len(words)-1])
	}
}

func firstUpper(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r))
}

type nopUsersService struct {
	log *slog.Logger
}

func NewNopUsersService(log *slog.Logger) UsersService {
	return nopUsersService{log: log}
}

func (nopUsersService) User() models.UserProfile { return DefaultUserProfile }

func (s nopUsersService) UpdateUser(models.UserPatch) {
	s.log.Warn("user service not configured, UpdateUser ignored")
}

func (nopUsersService) Initials() string { return Initials(DefaultUserProfile.Name) }
