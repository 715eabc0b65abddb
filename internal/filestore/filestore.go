// Package filestore сохраняет сгенерированные файлы на локальный диск
// и строит публичные адреса для их раздачи.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store — локальное файловое хранилище.
type Store struct {
	dir     string
	baseURL string
}

// New создаёт хранилище и каталог для файлов, если его ещё нет.
func New(dir, baseURL string) (*Store, error) {
	const op = "filestore.New"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// SaveBytes пишет содержимое в файл и возвращает публичный адрес.
// Существующие файлы не перезаписываются: к имени добавляется
// числовой суффикс.
func (s *Store) SaveBytes(filename string, content []byte) (string, error) {
	const op = "filestore.SaveBytes"

	absPath := filepath.Join(s.dir, filepath.Base(filename))
	ext := filepath.Ext(absPath)
	base := strings.TrimSuffix(absPath, ext)
	counter := 1
	for {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			break
		}
		absPath = fmt.Sprintf("%s_%d%s", base, counter, ext)
		counter++
	}

	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.baseURL + "/" + filepath.Base(absPath), nil
}

// Dir возвращает каталог хранилища для раздачи статики.
func (s *Store) Dir() string {
	return s.dir
}
