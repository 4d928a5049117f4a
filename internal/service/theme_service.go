package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/persist"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
)

const (
	DefaultTheme    = models.ThemeLight
	DefaultLanguage = models.LocaleEN

	darkClass = "dark"
	langAttr  = "lang"
)

// RootNode is the global presentation node theme and locale are mirrored to.
type RootNode interface {
	SetClass(name string, on bool)
	SetAttr(name, value string)
}

type ThemeService interface {
	Theme() models.ThemeMode
	Language() models.Locale
	IsDark() bool
	SetTheme(mode models.ThemeMode) error
	SetLanguage(locale models.Locale) error
	ToggleTheme()
}

type themeService struct {
	store *persist.Store
	root  RootNode
	log   *slog.Logger

	mu     sync.RWMutex
	theme  models.ThemeMode
	locale models.Locale
}

func NewThemeService(store *persist.Store, root RootNode, log *slog.Logger) ThemeService {
	s := &themeService{
		store:  store,
		root:   root,
		log:    log,
		theme:  persist.Load(store, KeyTheme, DefaultTheme),
		locale: persist.Load(store, KeyLanguage, DefaultLanguage),
	}

	if !s.theme.Valid() {
		log.Warn("ignoring stored theme", "theme", s.theme)
		s.theme = DefaultTheme
	}
	if !s.locale.Valid() {
		log.Warn("ignoring stored language", "language", s.locale)
		s.locale = DefaultLanguage
	}

	root.SetClass(darkClass, s.theme == models.ThemeDark)
	root.SetAttr(langAttr, string(s.locale))

	return s
}

func (s *themeService) Theme() models.ThemeMode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.theme
}

func (s *themeService) Language() models.Locale {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.locale
}

func (s *themeService) IsDark() bool {
	return s.Theme() == models.ThemeDark
}

func (s *themeService) SetTheme(mode models.ThemeMode) error {
	if !mode.Valid() {
		return fmt.Errorf("service.SetTheme: %q: %w", mode, errs.ErrInvalidTheme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setThemeLocked(mode)
	return nil
}

func (s *themeService) SetLanguage(locale models.Locale) error {
	if !locale.Valid() {
		return fmt.Errorf("service.SetLanguage: %q: %w", locale, errs.ErrInvalidLocale)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.locale = locale
	s.store.Save(KeyLanguage, locale)
	s.root.SetAttr(langAttr, string(locale))
	return nil
}

func (s *themeService) ToggleTheme() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := models.ThemeDark
	if s.theme == models.ThemeDark {
		next = models.ThemeLight
	}
	s.setThemeLocked(next)
}

func (s *themeService) setThemeLocked(mode models.ThemeMode) {
	s.theme = mode
	s.store.Save(KeyTheme, mode)
	s.root.SetClass(darkClass, mode == models.ThemeDark)
}

// nopThemeService stands in when no theme store is wired. Reads return the
// defaults and writes are dropped with a warning.
type nopThemeService struct {
	log *slog.Logger
}

func NewNopThemeService(log *slog.Logger) ThemeService {
	return nopThemeService{log: log}
}

func (nopThemeService) Theme() models.ThemeMode { return DefaultTheme }

func (nopThemeService) Language() models.Locale { return DefaultLanguage }

func (nopThemeService) IsDark() bool { return false }

func (s nopThemeService) SetTheme(mode models.ThemeMode) error {
	s.log.Warn("theme service not configured, SetTheme ignored", "theme", mode)
	return nil
}

func (s nopThemeService) SetLanguage(locale models.Locale) error {
	s.log.Warn("theme service not configured, SetLanguage ignored", "language", locale)
	return nil
}

func (s nopThemeService) ToggleTheme() {
	s.log.Warn("theme service not configured, ToggleTheme ignored")
}
