// Package prefs stores the preferences that stay on this machine and are
// never synced: the last selected view, the palette, and which news items
// the user has already read.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"taskflow/internal/model"
)

var saveLock sync.Mutex

type Prefs struct {
	SelectedView model.View `yaml:"selected_view"`
	ColorTheme   string     `yaml:"color_theme"`
	NewsRead     []string   `yaml:"news_read,omitempty"`
}

// Defaults returns the preferences of a fresh install.
func Defaults() Prefs {
	return Prefs{SelectedView: model.ViewKanban, ColorTheme: model.DefaultColorTheme}
}

// DefaultPath is prefs.yaml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "taskflow", "prefs.yaml"), nil
}

// Load reads path. A missing file yields the defaults; fields absent from the
// file keep their default values.
func Load(path string) (Prefs, error) {
	p := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("parse prefs: %w", err)
	}
	return p, nil
}

// Save writes p atomically via a temp file.
func Save(path string, p Prefs) error {
	saveLock.Lock()
	defer saveLock.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename prefs: %w", err)
	}
	return nil
}

// Set changes one preference by its yaml key.
func (p *Prefs) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "selected_view":
		v := model.View(value)
		if v != model.ViewKanban && v != model.ViewCalendar && v != model.ViewList {
			return fmt.Errorf("unknown view %q", value)
		}
		p.SelectedView = v
	case "color_theme":
		if !knownPalette(value) {
			return fmt.Errorf("unknown color theme %q", value)
		}
		p.ColorTheme = value
	case "news_read":
		p.MarkRead(value)
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return nil
}

// MarkRead records news items as read. Ids may be comma separated.
func (p *Prefs) MarkRead(ids string) {
	seen := make(map[string]bool, len(p.NewsRead))
	for _, id := range p.NewsRead {
		seen[id] = true
	}
	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		p.NewsRead = append(p.NewsRead, id)
	}
	sort.Strings(p.NewsRead)
}

func (p Prefs) IsRead(id string) bool {
	for _, v := range p.NewsRead {
		if v == id {
			return true
		}
	}
	return false
}

func knownPalette(name string) bool {
	for _, c := range model.ColorThemes {
		if c == name {
			return true
		}
	}
	return false
}
