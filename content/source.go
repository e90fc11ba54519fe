// Package content loads menu pages from a directory of text files and
// keeps subscribed sessions in sync when the files change on disk.
package content

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pagemenu/server/logger"
	"github.com/pagemenu/server/menu"
	"github.com/pagemenu/server/page"
)

const debounceInterval = 100 * time.Millisecond

// replaceTimeout bounds one ReplacePages attempt during a reload.
var replaceTimeout = 5 * time.Second

// Source watches one directory and turns each *.txt / *.md file into a
// page, in lexical filename order.
type Source struct {
	dir     string
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	sessions map[string]*menu.Session
	timer    *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSource(dir string) *Source {
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		dir:      dir,
		sessions: make(map[string]*menu.Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Load reads the directory into a page sequence.
func (s *Source) Load() ([]page.Page, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var pages []page.Page
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			slog.Warn("skipping unreadable page file", "file", name, "error", err)
			continue
		}
		pages = append(pages, page.Text(strings.TrimRight(string(data), "\n")))
	}
	return pages, nil
}

// Start begins watching the directory for changes.
func (s *Source) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	go s.eventLoop()
	slog.Info("content source started", "dir", s.dir)
	return nil
}

// Stop ends the watch and any pending reload.
func (s *Source) Stop() {
	s.cancel()
	if s.watcher != nil {
		s.watcher.Close()
	}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	slog.Info("content source stopped")
}

// Subscribe keeps the session's pages in sync with the directory.
func (s *Source) Subscribe(sess *menu.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
}

// Unsubscribe stops syncing the session.
func (s *Source) Unsubscribe(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *Source) eventLoop() {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "content source crashed", "dir", s.dir)
		}
	}()

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.scheduleReload()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("content watch error", "dir", s.dir, "error", err)

		case <-s.ctx.Done():
			return
		}
	}
}

// scheduleReload debounces bursts of filesystem events into one reload.
func (s *Source) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceInterval, s.reload)
}

func (s *Source) reload() {
	pages, err := s.Load()
	if err != nil {
		slog.Warn("content reload failed", "dir", s.dir, "error", err)
		return
	}
	if len(pages) == 0 {
		slog.Warn("content reload skipped, directory has no pages", "dir", s.dir)
		return
	}

	s.mu.Lock()
	sessions := make([]*menu.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		ctx, cancel := context.WithTimeout(s.ctx, replaceTimeout)
		err := sess.ReplacePages(ctx, pages)
		cancel()
		if err == nil {
			continue
		}
		if errors.Is(err, menu.ErrNotRunning) {
			s.Unsubscribe(sess.ID())
			continue
		}
		// Transient failures, e.g. a session busy in a page prompt,
		// keep the subscription. The next change picks the pages up.
		slog.Warn("failed to replace session pages", "sessionId", sess.ID(), "error", err)
	}
	slog.Info("content reloaded", "dir", s.dir, "pages", len(pages), "sessions", len(sessions))
}
