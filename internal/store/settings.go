package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// Settings persists the user-editable settings (the margin sheet URL) as a
// small JSON document next to the binary.
type Settings struct {
	path string
	mu   sync.RWMutex
}

type settingsDoc struct {
	AnalysisSheetURL string `json:"analysis_sheet_url,omitempty"`
}

func NewSettings(path string) *Settings {
	return &Settings{path: path}
}

// SheetURL returns the stored margin sheet URL, or "" when none is stored.
// A missing or unreadable file is treated as empty.
func (s *Settings) SheetURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read()
	if err != nil {
		return ""
	}
	return doc.AnalysisSheetURL
}

// SetSheetURL stores a new margin sheet URL
func (s *Settings) SetSheetURL(u string) error {
	u = strings.TrimSpace(u)
	if u == "" {
		return errors.New("sheet url is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a corrupt file is overwritten
	doc, _ := s.read()
	doc.AnalysisSheetURL = u

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

func (s *Settings) read() (settingsDoc, error) {
	var doc settingsDoc
	b, err := os.ReadFile(s.path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return settingsDoc{}, err
	}
	return doc, nil
}
