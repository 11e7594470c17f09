// Package attachment manages the image a user has selected but not yet sent,
// together with the on-disk preview handle used to display it.
package attachment

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxImageSize is the largest image accepted for upload (10MB).
const MaxImageSize = 10 * 1024 * 1024

var (
	// ErrUnsupportedInput indicates missing, empty or undecodable image data.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrImageTooLarge indicates the image exceeds MaxImageSize.
	ErrImageTooLarge = fmt.Errorf("%w: image exceeds maximum size", ErrUnsupportedInput)
	// ErrNoAttachment indicates an operation that needs a pending attachment found none.
	ErrNoAttachment = errors.New("no image attached")
)

// Preview is a locally renderable handle for a selected image. It stays
// valid until released.
type Preview struct {
	ID     string
	Path   string
	Format string
	Width  int
	Height int
}

// Ref returns the reference stored on transcript messages.
func (p Preview) Ref() string {
	return p.Path
}

// Attachment is a pending image upload: the raw bytes, their preview and the
// plant-name tag the diagnosis service needs.
type Attachment struct {
	Name    string
	Data    []byte
	Preview Preview
	Plant   string
}

// Complete reports whether the attachment can be sent.
func (a Attachment) Complete() bool {
	return len(a.Data) > 0 && strings.TrimSpace(a.Plant) != ""
}

// Manager owns at most one pending attachment.
type Manager struct {
	dir     string
	ownsDir bool
	current *Attachment
}

// NewManager returns a manager writing previews under dir. An empty dir
// means a private temporary directory created on first use and removed by
// Close.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Select validates data as an image and makes it the pending attachment.
// Any previous attachment is cleared first.
func (m *Manager) Select(name string, data []byte) (Preview, error) {
	if len(data) == 0 {
		return Preview{}, fmt.Errorf("%w: no image data", ErrUnsupportedInput)
	}
	if len(data) > MaxImageSize {
		return Preview{}, ErrImageTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Preview{}, fmt.Errorf("%w: %w", ErrUnsupportedInput, err)
	}

	dir, err := m.previewDir()
	if err != nil {
		return Preview{}, err
	}

	id := uuid.NewString()
	path := filepath.Join(dir, id+"."+format)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Preview{}, fmt.Errorf("failed to write preview: %w", err)
	}

	if err := m.Clear(); err != nil {
		slog.Warn("Failed to release previous preview", "error", err)
	}

	preview := Preview{
		ID:     id,
		Path:   path,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}
	m.current = &Attachment{
		Name:    name,
		Data:    data,
		Preview: preview,
	}

	slog.Debug("Image selected", "name", name, "format", format, "width", cfg.Width, "height", cfg.Height)
	return preview, nil
}

// SelectFile reads path and selects it.
func (m *Manager) SelectFile(path string) (Preview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preview{}, fmt.Errorf("%w: %w", ErrUnsupportedInput, err)
	}
	return m.Select(filepath.Base(path), data)
}

// SetPlant sets the plant-name tag on the pending attachment.
func (m *Manager) SetPlant(plant string) error {
	if m.current == nil {
		return ErrNoAttachment
	}
	m.current.Plant = plant
	return nil
}

// Current returns a copy of the pending attachment.
func (m *Manager) Current() (Attachment, bool) {
	if m.current == nil {
		return Attachment{}, false
	}
	return *m.current, true
}

// Pending reports whether an attachment is selected.
func (m *Manager) Pending() bool {
	return m.current != nil
}

// Clear drops the pending attachment and releases its preview.
func (m *Manager) Clear() error {
	if m.current == nil {
		return nil
	}
	preview := m.current.Preview
	m.current = nil
	return Release(preview)
}

// Detach removes the pending attachment without releasing its preview.
// The caller takes ownership of the preview handle.
func (m *Manager) Detach() (Attachment, bool) {
	if m.current == nil {
		return Attachment{}, false
	}
	att := *m.current
	m.current = nil
	return att, true
}

// Close clears the pending attachment and removes the preview directory if
// the manager created it.
func (m *Manager) Close() error {
	err := m.Clear()
	if m.ownsDir && m.dir != "" {
		err = errors.Join(err, os.RemoveAll(m.dir))
		m.dir = ""
		m.ownsDir = false
	}
	return err
}

func (m *Manager) previewDir() (string, error) {
	if m.dir == "" {
		dir, err := os.MkdirTemp("", "plantchat-previews-")
		if err != nil {
			return "", fmt.Errorf("failed to create preview directory: %w", err)
		}
		m.dir = dir
		m.ownsDir = true
		return dir, nil
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}
	return m.dir, nil
}

// Release deletes the preview's backing file. Releasing twice is harmless.
func Release(p Preview) error {
	if p.Path == "" {
		return nil
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
