package dictionary

import (
	"context"
	"fmt"
	"os"

	"github.com/mcoot/wordbattles/internal/storage"
)

// Provider supplies the words a dictionary is built from
type Provider interface {
	Name() string
	Words(ctx context.Context) ([]string, error)
}

// FileProvider reads one word per line. Blank lines and lines starting
// with # are skipped.
type FileProvider struct {
	Path string
}

func (p FileProvider) Name() string { return "file:" + p.Path }

func (p FileProvider) Words(_ context.Context) ([]string, error) {
	file, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer file.Close()

	words, err := readWords(file)
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", p.Path, err)
	}
	return words, nil
}

// StorageProvider reads a word set previously saved to storage
type StorageProvider struct {
	Store storage.Storage
}

func (p StorageProvider) Name() string { return "storage" }

func (p StorageProvider) Words(ctx context.Context) ([]string, error) {
	return p.Store.GetDictionaryWords(ctx)
}

// StaticProvider serves a fixed list
type StaticProvider []string

func (p StaticProvider) Name() string { return "static" }

func (p StaticProvider) Words(_ context.Context) ([]string, error) {
	return []string(p), nil
}

var (
	_ Provider = FileProvider{}
	_ Provider = StorageProvider{}
	_ Provider = StaticProvider(nil)
)
