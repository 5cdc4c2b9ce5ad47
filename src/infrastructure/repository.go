package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"video-linker/src/domain"
)

var (
	registryMu sync.Mutex
	registry   = make(map[string]*SQLiteSegmentStore)
)

// SQLiteSegmentStore векторный индекс сегментов в SQLite.
// Коллекция одна: каждое заполнение полностью заменяет предыдущее.
type SQLiteSegmentStore struct {
	db       *sqlx.DB
	key      string
	embedder domain.Embedder

	// mu защищает коллекцию: запись только на время транзакции замены,
	// чтение на время выборки строк
	mu sync.RWMutex
}

var _ domain.SegmentStore = (*SQLiteSegmentStore)(nil)

type segmentRow struct {
	ID          string  `db:"id"`
	Position    int     `db:"position"`
	Start       float64 `db:"start_time"`
	End         float64 `db:"end_time"`
	Text        string  `db:"text"`
	DisplayTime string  `db:"display_time"`
	Vector      []byte  `db:"vector"`
}

type collectionRow struct {
	Generation int64     `db:"generation"`
	Dimensions int       `db:"dimensions"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// OpenSegmentStore открывает хранилище по пути к файлу базы. Повторный вызов
// с тем же путем возвращает уже открытый экземпляр без переподключения;
// embedder повторного вызова игнорируется.
func OpenSegmentStore(dbPath string, embedder domain.Embedder) (*SQLiteSegmentStore, error) {
	key := dbPath
	if dbPath != ":memory:" {
		abs, err := filepath.Abs(dbPath)
		if err != nil {
			return nil, fmt.Errorf("некорректный путь к базе данных: %w", err)
		}
		key = abs
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if store, ok := registry[key]; ok {
		return store, nil
	}

	store, err := newSQLiteSegmentStore(key, embedder)
	if err != nil {
		return nil, err
	}
	registry[key] = store
	return store, nil
}

func newSQLiteSegmentStore(key string, embedder domain.Embedder) (*SQLiteSegmentStore, error) {
	if embedder == nil {
		return nil, errors.New("не задан построитель векторов")
	}

	db, err := sqlx.Connect("sqlite3", key+"?_busy_timeout=5000")
	if err != nil {
		return nil, domain.NewStoreUnavailableError("не удалось подключиться к базе данных", err)
	}
	// Одно соединение: SQLite сериализует запись, а :memory: живет в пределах соединения
	db.SetMaxOpenConns(1)

	store := &SQLiteSegmentStore{db: db, key: key, embedder: embedder}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось инициализировать схему: %w", err)
	}

	return store, nil
}

// initSchema инициализирует схему базы данных
func (s *SQLiteSegmentStore) initSchema() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS collection (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			generation INTEGER NOT NULL,
			dimensions INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS segments (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			start_time REAL NOT NULL,
			end_time REAL NOT NULL,
			text TEXT NOT NULL,
			display_time TEXT NOT NULL,
			vector BLOB NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_segments_position ON segments(position)`,
	}

	for _, tableSQL := range tables {
		if _, err := s.db.Exec(tableSQL); err != nil {
			return fmt.Errorf("ошибка при создании таблицы: %w", err)
		}
	}
	return nil
}

// Populate строит векторы сегментов и атомарно заменяет ими коллекцию.
// Векторы строятся без блокировки: параллельные запросы видят старую коллекцию.
func (s *SQLiteSegmentStore) Populate(ctx context.Context, segments []domain.Segment) error {
	if len(segments) == 0 {
		return domain.NewValidationError("нет сегментов для индексации", nil)
	}

	indexed := make([]domain.IndexedSegment, 0, len(segments))
	dims := 0
	for i, seg := range segments {
		vec, err := s.embedder.Embed(ctx, seg.Text)
		if err != nil {
			return domain.Classify(err, domain.KindStoreUnavailable, fmt.Sprintf("ошибка построения вектора сегмента %d", i))
		}
		if i == 0 {
			dims = len(vec)
		}
		if len(vec) == 0 || len(vec) != dims {
			return domain.NewStoreUnavailableError(
				fmt.Sprintf("размерность вектора сегмента %d: %d, ожидалось %d", i, len(vec), dims), nil)
		}
		indexed = append(indexed, domain.IndexedSegment{Segment: seg, Vector: vec})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replace(ctx, indexed, dims); err != nil {
		return domain.Classify(err, domain.KindStoreUnavailable, "ошибка записи коллекции")
	}
	return nil
}

func (s *SQLiteSegmentStore) replace(ctx context.Context, indexed []domain.IndexedSegment, dims int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments`); err != nil {
		return fmt.Errorf("ошибка удаления сегментов: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO segments
		(id, position, start_time, end_time, text, display_time, vector)
		VALUES (:id, :position, :start_time, :end_time, :text, :display_time, :vector)`)
	if err != nil {
		return fmt.Errorf("не удалось подготовить SQL для сегмента: %w", err)
	}
	defer stmt.Close()

	for i, seg := range indexed {
		row := segmentRow{
			ID:          uuid.NewString(),
			Position:    i,
			Start:       seg.Start,
			End:         seg.End,
			Text:        seg.Text,
			DisplayTime: seg.DisplayTime,
			Vector:      encodeVector(seg.Vector),
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("не удалось вставить сегмент: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO collection (id, generation, dimensions, updated_at)
		VALUES (1, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			generation = generation + 1,
			dimensions = excluded.dimensions,
			updated_at = excluded.updated_at`, dims, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ошибка обновления коллекции: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	return nil
}

// Query возвращает до k сегментов, ближайших к тексту. Оценка: косинусное
// расстояние 1 - cos, результаты по возрастанию расстояния.
func (s *SQLiteSegmentStore) Query(ctx context.Context, text string, k int) ([]domain.ScoredSegment, error) {
	if k <= 0 {
		return nil, domain.NewValidationError("k должно быть положительным", nil)
	}

	s.mu.RLock()
	_, err := s.collection(ctx)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, domain.Classify(err, domain.KindStoreUnavailable, "ошибка построения вектора запроса")
	}

	rows, coll, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(query) != coll.Dimensions {
		return nil, fmt.Errorf("размерность вектора запроса %d не совпадает с коллекцией (%d)", len(query), coll.Dimensions)
	}

	scored := make([]domain.ScoredSegment, 0, len(rows))
	for _, row := range rows {
		vec, err := decodeVector(row.Vector)
		if err != nil {
			return nil, fmt.Errorf("поврежден вектор сегмента %s: %w", row.ID, err)
		}
		if len(vec) != coll.Dimensions {
			return nil, fmt.Errorf("поврежден вектор сегмента %s: размерность %d", row.ID, len(vec))
		}
		scored = append(scored, domain.ScoredSegment{
			Segment: domain.Segment{
				Start:       row.Start,
				End:         row.End,
				Text:        row.Text,
				DisplayTime: row.DisplayTime,
			},
			Score: cosineDistance(query, vec),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// load читает коллекцию под блокировкой чтения
func (s *SQLiteSegmentStore) load(ctx context.Context) ([]segmentRow, collectionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, err := s.collection(ctx)
	if err != nil {
		return nil, coll, err
	}

	var rows []segmentRow
	err = s.db.SelectContext(ctx, &rows, `SELECT id, position, start_time, end_time, text, display_time, vector
		FROM segments ORDER BY position`)
	if err != nil {
		return nil, coll, domain.Classify(err, domain.KindStoreUnavailable, "ошибка чтения сегментов")
	}
	return rows, coll, nil
}

func (s *SQLiteSegmentStore) collection(ctx context.Context) (collectionRow, error) {
	var coll collectionRow
	err := s.db.GetContext(ctx, &coll, `SELECT generation, dimensions, updated_at FROM collection WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return coll, domain.ErrNotInitialized
	}
	if err != nil {
		return coll, domain.Classify(err, domain.KindStoreUnavailable, "ошибка чтения коллекции")
	}
	return coll, nil
}

// Stats возвращает состояние коллекции
func (s *SQLiteSegmentStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, err := s.collection(ctx)
	if errors.Is(err, domain.ErrNotInitialized) {
		return domain.StoreStats{}, nil
	}
	if err != nil {
		return domain.StoreStats{}, err
	}

	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM segments`); err != nil {
		return domain.StoreStats{}, domain.Classify(err, domain.KindStoreUnavailable, "ошибка подсчета сегментов")
	}

	return domain.StoreStats{
		Initialized: true,
		Generation:  coll.Generation,
		Segments:    count,
		Dimensions:  coll.Dimensions,
		UpdatedAt:   coll.UpdatedAt,
	}, nil
}

// Close закрывает соединение с базой данных и убирает хранилище из реестра
func (s *SQLiteSegmentStore) Close() error {
	registryMu.Lock()
	if registry[s.key] == s {
		delete(registry, s.key)
	}
	registryMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
