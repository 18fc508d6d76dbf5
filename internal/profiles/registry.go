package profiles

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/rules"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// SourceBuiltin marks profiles compiled into the binary.
const SourceBuiltin = "builtin"

// Registry holds compiled profiles by name.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	patterns *rules.PatternCache
	logger   *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := rules.NewPatternCache(0)
	if err != nil {
		return nil, err
	}
	return &Registry{profiles: map[string]*Profile{}, patterns: pc, logger: logger}, nil
}

// Load returns a registry with the built-in profiles plus those in dir, when dir is set.
func Load(dir string, logger *slog.Logger) (*Registry, error) {
	r, err := NewRegistry(logger)
	if err != nil {
		return nil, err
	}
	if err := r.LoadBuiltin(); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := r.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadBuiltin adds the embedded profiles.
func (r *Registry) LoadBuiltin() error {
	return r.loadFS(builtinFS, "builtin", SourceBuiltin)
}

// LoadDir adds every *.yaml / *.yml profile in dir. A profile named like an existing one
// replaces it.
func (r *Registry) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("profiles dir: %w", err)
	}
	if !info.IsDir() {
		return common.NewAppError("PROFILES_DIR", dir+" is not a directory", common.ErrInvalidInput)
	}
	return r.loadFS(os.DirFS(dir), ".", dir)
}

func (r *Registry) loadFS(fsys fs.FS, root, source string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read profiles %s: %w", source, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, name)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		p, err := ParseBytes(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if source == SourceBuiltin {
			p.Source = SourceBuiltin
		} else {
			p.Source = filepath.Join(source, name)
		}
		if err := r.Add(p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return common.NewAppError("PROFILE_ERROR", "invalid profiles", errors.Join(append([]error{common.ErrInvalidInput}, errs...)...))
	}
	return nil
}

// Add compiles p and registers it under its name.
func (r *Registry) Add(p *Profile) error {
	if _, err := Compile(p, r.patterns); err != nil {
		return err
	}
	key := strings.ToLower(p.Name)
	r.mu.Lock()
	prev, replaced := r.profiles[key]
	r.profiles[key] = p
	r.mu.Unlock()
	if replaced {
		r.logger.Info("profile overridden", "name", p.Name, "source", p.Source, "previous", prev.Source)
	} else {
		r.logger.Debug("profile loaded", "name", p.Name, "source", p.Source, "fields", len(p.Nodes))
	}
	return nil
}

// Get returns the profile named name, case-insensitively.
func (r *Registry) Get(name string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names lists the registered profile names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}

// ForFile picks the profile with the longest prefix of the base name of path, compared
// case-insensitively. Ties go to the alphabetically first profile.
func (r *Registry) ForFile(path string) (*Profile, bool) {
	base := strings.ToLower(filepath.Base(path))
	var (
		best    *Profile
		bestLen int
	)
	for _, name := range r.Names() {
		p, _ := r.Get(name)
		for _, pre := range p.Match.Prefixes {
			pre = strings.ToLower(pre)
			if pre != "" && strings.HasPrefix(base, pre) && len(pre) > bestLen {
				best, bestLen = p, len(pre)
			}
		}
	}
	return best, best != nil
}

// Sniff picks the first profile, by name, whose Contains strings all occur in text.
func (r *Registry) Sniff(text string) (*Profile, bool) {
	for _, name := range r.Names() {
		p, _ := r.Get(name)
		if len(p.Match.Contains) == 0 {
			continue
		}
		all := true
		for _, c := range p.Match.Contains {
			if !strings.Contains(text, c) {
				all = false
				break
			}
		}
		if all {
			return p, true
		}
	}
	return nil, false
}

// Generic returns the fallback profile.
func (r *Registry) Generic() (*Profile, bool) {
	return r.Get(constants.GenericVendor)
}
