package ml

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/keiba-analytics/internal/models"
)

const artifactExtension = ".gob"

// SaveModel serializes a model into dir and returns the artifact path.
// File names carry a timestamp so latest-by-mtime and lexical order agree.
func SaveModel(model *Model, dir string) (string, error) {
	if model == nil {
		return "", models.ErrModelNotTrained
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model dir: %w", err)
	}

	name := fmt.Sprintf("model_%s_%s%s",
		time.Now().UTC().Format("20060102T150405"),
		strings.Split(uuid.NewString(), "-")[0],
		artifactExtension,
	)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create model artifact: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(model); err != nil {
		return "", fmt.Errorf("failed to encode model: %w", err)
	}
	return path, nil
}

// LoadModel reads a model artifact from disk.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model artifact: %w", err)
	}
	defer f.Close()

	model := &Model{}
	if err := gob.NewDecoder(f).Decode(model); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return model, nil
}

// FindLatestModel returns the newest artifact in dir by modification time,
// or "" when the directory holds none.
func FindLatestModel(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read model dir: %w", err)
	}

	latest := ""
	var latestMod time.Time
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != artifactExtension {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = filepath.Join(dir, e.Name())
			latestMod = info.ModTime()
		}
	}
	return latest, nil
}
