package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor"
)

const manifestName = "library.yaml"

var supportedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

type manifest struct {
	Documents []domain.LibraryEntry `yaml:"documents"`
}

// Library serves preloaded documents from one directory. Titles come from
// library.yaml when present, otherwise from file names.
type Library struct {
	basePath string
}

func NewLibrary(basePath string) (*Library, error) {
	if basePath == "" {
		basePath = "./data/library"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	return &Library{basePath: basePath}, nil
}

func (l *Library) List(ctx context.Context) ([]domain.LibraryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := l.readManifest()
	if err != nil {
		return nil, err
	}
	if entries != nil {
		out := make([]domain.LibraryEntry, 0, len(entries))
		for _, entry := range entries {
			if _, err := l.stat(entry.Filename); err != nil {
				slog.Warn("library_entry_missing", "filename", entry.Filename, "error", err.Error())
				continue
			}
			out = append(out, entry)
		}
		return out, nil
	}

	dirEntries, err := os.ReadDir(l.basePath)
	if err != nil {
		return nil, fmt.Errorf("read library dir: %w", err)
	}
	out := make([]domain.LibraryEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(de.Name()))] {
			continue
		}
		out = append(out, entryFromFilename(de.Name()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// Open reads one library file. Names that leave the library directory are
// rejected.
func (l *Library) Open(ctx context.Context, filename string) (domain.DocumentFile, error) {
	if err := ctx.Err(); err != nil {
		return domain.DocumentFile{}, err
	}
	info, err := l.stat(filename)
	if err != nil {
		return domain.DocumentFile{}, err
	}
	if info.Size() > domain.MaxDocumentSize {
		return domain.DocumentFile{}, domain.WrapError(domain.ErrFileTooLarge, "open library document", fmt.Errorf("%s is %d bytes", filename, info.Size()))
	}

	root, err := os.OpenRoot(l.basePath)
	if err != nil {
		return domain.DocumentFile{}, fmt.Errorf("open library root: %w", err)
	}
	defer root.Close()

	f, err := root.Open(filename)
	if err != nil {
		return domain.DocumentFile{}, fmt.Errorf("open library file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, domain.MaxDocumentSize+1))
	if err != nil {
		return domain.DocumentFile{}, fmt.Errorf("read library file: %w", err)
	}
	return domain.DocumentFile{
		Name:      filename,
		MediaType: extractor.DetectMediaType(filename, ""),
		Size:      int64(len(content)),
		Content:   content,
	}, nil
}

// Save copies data into the library under filename.
func (l *Library) Save(ctx context.Context, filename string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateName(filename); err != nil {
		return err
	}
	if !supportedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return domain.WrapError(domain.ErrUnsupportedFormat, "save library document", fmt.Errorf("%s", filename))
	}

	root, err := os.OpenRoot(l.basePath)
	if err != nil {
		return fmt.Errorf("open library root: %w", err)
	}
	defer root.Close()

	f, err := root.Create(filename)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(data, domain.MaxDocumentSize+1))
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if n > domain.MaxDocumentSize {
		_ = f.Close()
		_ = root.Remove(filename)
		return domain.WrapError(domain.ErrFileTooLarge, "save library document", fmt.Errorf("%s exceeds %d bytes", filename, domain.MaxDocumentSize))
	}
	return nil
}

func (l *Library) stat(filename string) (fs.FileInfo, error) {
	if err := validateName(filename); err != nil {
		return nil, err
	}
	info, err := os.Stat(filepath.Join(l.basePath, filename))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open library document", fmt.Errorf("%s", filename))
	}
	if err != nil {
		return nil, fmt.Errorf("stat library file: %w", err)
	}
	return info, nil
}

func (l *Library) readManifest() ([]domain.LibraryEntry, error) {
	raw, err := os.ReadFile(filepath.Join(l.basePath, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read library manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse library manifest: %w", err)
	}
	out := make([]domain.LibraryEntry, 0, len(m.Documents))
	for _, entry := range m.Documents {
		if strings.TrimSpace(entry.Filename) == "" {
			continue
		}
		fallback := entryFromFilename(entry.Filename)
		if entry.ID == "" {
			entry.ID = fallback.ID
		}
		if entry.Title == "" {
			entry.Title = fallback.Title
		}
		out = append(out, entry)
	}
	return out, nil
}

func validateName(filename string) error {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return domain.WrapError(domain.ErrInvalidInput, "library document name", fmt.Errorf("%q", filename))
	}
	return nil
}

// entryFromFilename derives "great-gatsby" and "Great Gatsby" from great_gatsby.txt.
func entryFromFilename(filename string) domain.LibraryEntry {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	words := strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return domain.LibraryEntry{
		ID:       strings.ToLower(strings.Join(words, "-")),
		Title:    strings.Join(words, " "),
		Filename: filename,
	}
}
