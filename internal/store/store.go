// Package store хранит наборы привязок шаблонов: в JSON-файле или в PostgreSQL.
// Запись всегда целиком, побеждает последний писатель.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikitaxru/cellmapper"
)

// ErrNotFound — набора с таким идентификатором нет.
var ErrNotFound = errors.New("набор привязок не найден")

// Record — сохранённый набор привязок.
type Record struct {
	ID        string                `json:"id"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Mapping   cellmapper.MappingSet `json:"mapping"`
}

type Store struct {
	path string
	pool *pgxpool.Pool

	loadOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
	byID     map[string]Record

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, cellmapper.MappingSet]
	now   func() time.Time
}

// NewFile создаёт хранилище поверх JSON-файла. Файл читается при первом обращении.
func NewFile(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]Record),
		now:  time.Now,
	}
}

// NewPostgres подключается к PostgreSQL. cacheSize — размер LRU-кэша прочитанных наборов.
func NewPostgres(ctx context.Context, dsn string, cacheSize int) (*Store, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("подключение к базе: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("проверка подключения: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, cellmapper.MappingSet](cacheSize)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, cache: cache, now: time.Now}, nil
}

// Close освобождает подключения.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SaveMappingSet сохраняет набор под идентификатором id, заменяя прежний.
func (s *Store) SaveMappingSet(ctx context.Context, id string, set cellmapper.MappingSet) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("пустой идентификатор набора привязок")
	}
	if s.pool != nil {
		return s.savePostgres(ctx, id, set)
	}
	return s.saveFile(id, set)
}

// LoadMappingSet читает набор по идентификатору.
func (s *Store) LoadMappingSet(ctx context.Context, id string) (cellmapper.MappingSet, error) {
	if s.pool != nil {
		return s.loadPostgres(ctx, id)
	}
	if err := s.ensureLoadedFile(); err != nil {
		return cellmapper.MappingSet{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return cellmapper.MappingSet{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return rec.Mapping.Clone(), nil
}

// List возвращает идентификаторы сохранённых наборов по алфавиту.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if s.pool != nil {
		return s.listPostgres(ctx)
	}
	if err := s.ensureLoadedFile(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

// Delete удаляет набор. Отсутствующий набор — ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.pool != nil {
		return s.deletePostgres(ctx, id)
	}
	if err := s.ensureLoadedFile(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	s.mu.Unlock()
	return s.persistFile()
}

// -----------------------------
// Файл
// -----------------------------

func (s *Store) ensureLoadedFile() error {
	s.loadOnce.Do(func() {
		data, err := os.ReadFile(s.path)
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		if err != nil {
			s.loadErr = fmt.Errorf("чтение хранилища %s: %w", s.path, err)
			return
		}
		var rows []Record
		if err := json.Unmarshal(data, &rows); err != nil {
			s.loadErr = fmt.Errorf("разбор хранилища %s: %w", s.path, err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			if row.ID == "" {
				continue
			}
			s.byID[row.ID] = row
		}
		slog.Debug("хранилище загружено", "path", s.path, "records", len(rows))
	})
	return s.loadErr
}

func (s *Store) saveFile(id string, set cellmapper.MappingSet) error {
	if err := s.ensureLoadedFile(); err != nil {
		return err
	}
	s.mu.Lock()
	s.byID[id] = Record{ID: id, UpdatedAt: s.now().UTC(), Mapping: set.Clone()}
	s.mu.Unlock()
	return s.persistFile()
}

func (s *Store) persistFile() error {
	s.mu.RLock()
	rows := make([]Record, 0, len(s.byID))
	for _, rec := range s.byID {
		rows = append(rows, rec)
	}
	s.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// -----------------------------
// PostgreSQL
// -----------------------------

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cellmapper_templates (
	id         TEXT PRIMARY KEY,
	mapping    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
			s.schemaErr = fmt.Errorf("создание схемы: %w", err)
		}
	})
	return s.schemaErr
}

func (s *Store) savePostgres(ctx context.Context, id string, set cellmapper.MappingSet) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("сериализация набора: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO cellmapper_templates (id, mapping, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET mapping = EXCLUDED.mapping, updated_at = EXCLUDED.updated_at`,
		id, body, s.now().UTC())
	if err != nil {
		return fmt.Errorf("запись набора %s: %w", id, err)
	}
	s.cache.Add(id, set.Clone())
	return nil
}

func (s *Store) loadPostgres(ctx context.Context, id string) (cellmapper.MappingSet, error) {
	if set, ok := s.cache.Get(id); ok {
		return set.Clone(), nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return cellmapper.MappingSet{}, err
	}
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT mapping FROM cellmapper_templates WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return cellmapper.MappingSet{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return cellmapper.MappingSet{}, fmt.Errorf("чтение набора %s: %w", id, err)
	}
	set, err := cellmapper.ParseMappingSet(body)
	if err != nil {
		return cellmapper.MappingSet{}, err
	}
	s.cache.Add(id, set)
	return set.Clone(), nil
}

func (s *Store) listPostgres(ctx context.Context) ([]string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT id FROM cellmapper_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("список наборов: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("список наборов: %w", err)
	}
	return ids, nil
}

func (s *Store) deletePostgres(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM cellmapper_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("удаление набора %s: %w", id, err)
	}
	s.cache.Remove(id)
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}
