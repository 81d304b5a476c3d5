package label

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// handlePrefix is stripped from remote label handles before they are
// used as artifact identifiers.
const handlePrefix = "bol_shipping_label_"

// Store persists label artifacts on disk, addressable by a flat
// identifier. The filename is the identifier plus a fixed extension.
type Store struct {
	dir string
	ext string
}

// NewStore creates an artifact store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create label directory")
	}
	return &Store{dir: dir, ext: ".pdf"}, nil
}

// Dir returns the directory holding the stored artifacts.
func (s *Store) Dir() string {
	return s.dir
}

// CleanID normalizes a label handle into an artifact identifier.
func CleanID(labelID string) string {
	return strings.TrimPrefix(labelID, handlePrefix)
}

// Save writes an artifact under the given label handle and returns the
// identifier the artifact is addressable by.
func (s *Store) Save(labelID string, data []byte) (string, error) {
	id := CleanID(labelID)
	path := filepath.Join(s.dir, id+s.ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to save label artifact")
	}
	log.Info().Str("label_id", id).Int("bytes", len(data)).Msg("Saved label artifact")
	return id, nil
}

// Load reads a stored artifact by identifier.
func (s *Store) Load(id string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+s.ext))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load label artifact")
	}
	return data, nil
}

// List returns the paths of all stored artifacts.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read label directory")
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), s.ext) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	return paths, nil
}
