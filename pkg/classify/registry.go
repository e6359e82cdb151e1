package classify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/fsnotify.v1"
)

// Registry manages a directory of classifier profiles.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	files    map[string]string // path -> profile id
	dir      string
	defaults bool
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(event string, profile *Profile)
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		profiles: make(map[string]*Profile),
		files:    make(map[string]string),
		logger:   logger,
	}
}

// Register adds or replaces a profile.
func (r *Registry) Register(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	if !p.IsCompiled() {
		if err := p.Compile(); err != nil {
			return fmt.Errorf("compiling profile %q: %w", p.ID, err)
		}
	}

	r.mu.Lock()
	r.profiles[p.ID] = p
	r.mu.Unlock()
	return nil
}

// Get returns a profile by id.
func (r *Registry) Get(id string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	return p, ok
}

// List returns all profiles ordered by id.
func (r *Registry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles
}

// Count returns the number of registered profiles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Classifier builds a Classifier over the current profiles.
func (r *Registry) Classifier() *Classifier {
	return New(r.List()...)
}

// LoadDefaults registers the built-in profile.
func (r *Registry) LoadDefaults() error {
	if err := r.Register(DefaultProfile()); err != nil {
		return err
	}
	r.defaults = true
	return nil
}

// LoadDirectory loads every YAML profile in dir. A missing directory loads
// nothing. Files that fail are reported together after the rest load.
func (r *Registry) LoadDirectory(dir string) error {
	r.dir = dir

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !isProfileFile(entry.Name()) {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
		}
	}
	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading profiles: %s", strings.Join(loadErrors, "; "))
	}
	return nil
}

// LoadFile loads a single profile file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return err
	}
	if err := r.Register(p); err != nil {
		return err
	}

	r.mu.Lock()
	r.files[path] = p.ID
	r.mu.Unlock()
	return nil
}

// Reload clears the registry and loads the configured directory again. The
// built-in profile is restored first when LoadDefaults was used, so a
// directory profile with the same id still overrides it.
func (r *Registry) Reload() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for reload")
	}
	r.mu.Lock()
	r.profiles = make(map[string]*Profile)
	r.files = make(map[string]string)
	r.mu.Unlock()
	if r.defaults {
		if err := r.Register(DefaultProfile()); err != nil {
			return err
		}
	}
	return r.LoadDirectory(r.dir)
}

// SetOnChange sets a callback invoked after a watched file is loaded or
// removed. The profile is nil for removals.
func (r *Registry) SetOnChange(fn func(event string, profile *Profile)) {
	r.onChange = fn
}

// Watch starts watching the profile directory and reloads changed files.
func (r *Registry) Watch() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", r.dir, err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})
	go r.watchLoop(watcher, r.stopChan)
	return nil
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isProfileFile(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				r.handleFileChange(event.Name, "create")
			case event.Op&fsnotify.Write == fsnotify.Write:
				r.handleFileChange(event.Name, "modify")
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				r.handleFileRemove(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("profile watcher error", slog.String("error", err.Error()))
		}
	}
}

func (r *Registry) handleFileChange(path, event string) {
	if err := r.LoadFile(path); err != nil {
		r.logger.Warn("failed to reload profile", slog.String("file", path), slog.String("error", err.Error()))
		return
	}
	r.mu.RLock()
	p := r.profiles[r.files[path]]
	r.mu.RUnlock()

	r.logger.Info("profile loaded", slog.String("file", path), slog.String("event", event))
	if r.onChange != nil {
		r.onChange(event, p)
	}
}

func (r *Registry) handleFileRemove(path string) {
	r.mu.Lock()
	if id, ok := r.files[path]; ok {
		delete(r.profiles, id)
		delete(r.files, path)
	}
	r.mu.Unlock()

	r.logger.Info("profile removed", slog.String("file", path))
	if r.onChange != nil {
		r.onChange("remove", nil)
	}
}

// StopWatch stops watching the profile directory.
func (r *Registry) StopWatch() {
	if r.stopChan != nil {
		close(r.stopChan)
		r.stopChan = nil
	}
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
}

func isProfileFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
