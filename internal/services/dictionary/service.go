package dictionary

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/wordbattles/internal/storage"
)

//go:embed default_words.txt
var defaultWordsFile []byte

// DefaultWords returns the built-in word list used when no provider is usable.
// It panics if the embedded list cannot be read.
func DefaultWords() []string {
	words, err := readWords(bytes.NewReader(defaultWordsFile))
	if err != nil {
		panic(fmt.Sprintf("read embedded word list: %v", err))
	}
	return words
}

// Service is the read-only word lookup set shared by every game instance
type Service struct {
	storage storage.Storage
	logger  *slog.Logger

	mu     sync.RWMutex
	words  map[string]struct{}
	loaded bool
	source string
}

// New creates a new DictionaryService
func New(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger.With(slog.String("component", "dictionary")),
		words:   make(map[string]struct{}),
	}
}

// Load reads words from the provider once. If the provider fails or yields
// nothing, the built-in list is loaded instead and a warning is logged; the
// provider error is not returned.
func (s *Service) Load(ctx context.Context, p Provider) error {
	words, err := p.Words(ctx)
	if err == nil && len(words) > 0 {
		s.loadWords(words, p.Name())
		s.logger.Info("dictionary loaded",
			slog.String("source", p.Name()),
			slog.Int("words", s.WordCount()),
		)
		return nil
	}

	if err == nil {
		err = fmt.Errorf("provider %s returned no words", p.Name())
	}
	s.logger.Warn("dictionary provider unavailable, using built-in words",
		slog.String("source", p.Name()),
		slog.String("error", err.Error()),
	)
	s.LoadDefault()
	return nil
}

// LoadFromStorage loads dictionary words from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := StorageProvider{Store: s.storage}.Words(ctx)
	if err != nil {
		return err
	}
	s.loadWords(words, "storage")
	return nil
}

// LoadFromFile loads dictionary words from a file (one word per line) and
// saves them to storage for future use
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	words, err := FileProvider{Path: path}.Words(ctx)
	if err != nil {
		return err
	}

	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return fmt.Errorf("save dictionary words: %w", err)
	}

	s.loadWords(words, "file")
	return nil
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) error {
	s.loadWords(words, "static")
	return nil
}

// LoadDefault loads the built-in word list
func (s *Service) LoadDefault() {
	s.loadWords(DefaultWords(), "builtin")
}

func (s *Service) loadWords(words []string, source string) {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		w := strings.ToLower(strings.TrimSpace(word))
		if w != "" {
			set[w] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = set
	s.loaded = true
	s.source = source
}

// IsValidWord checks if a word exists in the dictionary, ignoring case
func (s *Service) IsValidWord(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return false
	}

	_, ok := s.words[strings.ToLower(word)]
	return ok
}

// IsLoaded returns whether the dictionary has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// WordCount returns the number of words in the dictionary
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Source names where the current word set came from
func (s *Service) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" && !strings.HasPrefix(word, "#") {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// ServiceInterface is the dictionary contract
type ServiceInterface interface {
	IsValidWord(word string) bool
	IsLoaded() bool
	WordCount() int
	Load(ctx context.Context, p Provider) error
	LoadFromStorage(ctx context.Context) error
	LoadFromFile(ctx context.Context, path string) error
	LoadWords(words []string) error
}

var _ ServiceInterface = (*Service)(nil)
