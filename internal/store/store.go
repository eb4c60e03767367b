package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"sentiment_research/internal/domain"
)

// ErrNotFound is returned when a job, analysis or chart does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for jobs, posts, analyses and charts.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers from concurrent workers
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			record_limit INTEGER NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			source TEXT,
			author_location TEXT,
			content TEXT,
			collected_at TIMESTAMP,
			sentiment_label TEXT,
			sentiment_score REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_posts_job ON posts(job_id, collected_at);`,
		`CREATE TABLE IF NOT EXISTS analyses (
			job_id TEXT PRIMARY KEY REFERENCES jobs(id) ON DELETE CASCADE,
			total_count INTEGER,
			positive_count INTEGER,
			neutral_count INTEGER,
			negative_count INTEGER,
			average_score REAL,
			top_locations_json TEXT,
			top_sources_json TEXT,
			day_histogram_json TEXT,
			chart_series_json TEXT,
			created_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS charts (
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			png BLOB,
			PRIMARY KEY (job_id, name)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Job represents a research job persisted to DB.
type Job struct {
	ID          string           `json:"id"`
	Query       string           `json:"query"`
	Limit       int              `json:"limit"`
	Status      domain.JobStatus `json:"status"`
	Message     *string          `json:"message"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	StartedAt   *time.Time       `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at"`
}

// Descriptor returns the pipeline input for j.
func (j *Job) Descriptor() domain.JobDescriptor {
	return domain.JobDescriptor{Query: j.Query, Limit: j.Limit}
}

var jobColumns = []string{"id", "query", "record_limit", "status", "message", "created_at", "updated_at", "started_at", "completed_at"}

func (s *Store) CreateJob(ctx context.Context, j *Job) error {
	query, args, err := sq.Insert("jobs").
		Columns(jobColumns...).
		Values(j.ID, j.Query, j.Limit, string(j.Status), j.Message, j.CreatedAt, j.UpdatedAt, j.StartedAt, j.CompletedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	query, args, err := sq.Select(jobColumns...).From("jobs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	j, err := scanJob(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// ListJobs returns the newest jobs first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	return s.listJobs(ctx, sq.Select(jobColumns...).From("jobs").OrderBy("created_at DESC").Limit(uint64(limit)))
}

// UnfinishedJobs returns pending and processing jobs, oldest first.
func (s *Store) UnfinishedJobs(ctx context.Context) ([]Job, error) {
	return s.listJobs(ctx, sq.Select(jobColumns...).From("jobs").
		Where(sq.Eq{"status": []string{string(domain.StatusPending), string(domain.StatusProcessing)}}).
		OrderBy("created_at ASC"))
}

func (s *Store) listJobs(ctx context.Context, b sq.SelectBuilder) ([]Job, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var status string
	var msg sql.NullString
	var started, completed sql.NullTime
	if err := row.Scan(&j.ID, &j.Query, &j.Limit, &status, &msg, &j.CreatedAt, &j.UpdatedAt, &started, &completed); err != nil {
		return nil, err
	}
	j.Status = domain.JobStatus(status)
	if msg.Valid {
		j.Message = &msg.String
	}
	if started.Valid {
		j.StartedAt = &started.Time
	}
	if completed.Valid {
		j.CompletedAt = &completed.Time
	}
	return &j, nil
}

func (s *Store) MarkJobStarted(ctx context.Context, id string, ts time.Time) error {
	return s.updateJob(ctx, id, sq.Eq{"status": string(domain.StatusProcessing), "started_at": ts, "updated_at": ts})
}

// MarkJobCompleted records success and clears any previous message.
func (s *Store) MarkJobCompleted(ctx context.Context, id string, ts time.Time) error {
	return s.updateJob(ctx, id, sq.Eq{"status": string(domain.StatusCompleted), "message": nil, "completed_at": ts, "updated_at": ts})
}

func (s *Store) MarkJobFailed(ctx context.Context, id, message string, ts time.Time) error {
	return s.updateJob(ctx, id, sq.Eq{"status": string(domain.StatusFailed), "message": message, "updated_at": ts})
}

func (s *Store) updateJob(ctx context.Context, id string, set sq.Eq) error {
	query, args, err := sq.Update("jobs").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveResults stores the records, aggregate and chart images of one job in a
// single transaction.
func (s *Store) SaveResults(ctx context.Context, jobID string, records []domain.NormalizedRecord, agg domain.AggregateResult, charts map[string][]byte, ts time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// replace any earlier run of the same job
	for _, table := range []string{"posts", "analyses", "charts"} {
		query, args, qerr := sq.Delete(table).Where(sq.Eq{"job_id": jobID}).ToSql()
		if qerr != nil {
			return qerr
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	const batch = 200
	for start := 0; start < len(records); start += batch {
		ins := sq.Insert("posts").Columns("job_id", "seq", "source", "author_location", "content", "collected_at", "sentiment_label", "sentiment_score")
		for i, r := range records[start:min(start+batch, len(records))] {
			ins = ins.Values(jobID, start+i, r.Source, r.AuthorLocation, r.Text, r.Timestamp.UTC(), string(r.Label), r.Score)
		}
		query, args, qerr := ins.ToSql()
		if qerr != nil {
			return qerr
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert posts: %w", err)
		}
	}

	blobs, err := encodeAggregate(agg)
	if err != nil {
		return err
	}
	query, args, err := sq.Insert("analyses").
		Columns("job_id", "total_count", "positive_count", "neutral_count", "negative_count", "average_score",
			"top_locations_json", "top_sources_json", "day_histogram_json", "chart_series_json", "created_at").
		Values(jobID, agg.TotalCount, agg.PositiveCount, agg.NeutralCount, agg.NegativeCount, agg.AverageScore,
			blobs[0], blobs[1], blobs[2], blobs[3], ts).
		ToSql()
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	if len(charts) > 0 {
		ins := sq.Insert("charts").Columns("job_id", "name", "png")
		for name, png := range charts {
			ins = ins.Values(jobID, name, png)
		}
		query, args, err = ins.ToSql()
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert charts: %w", err)
		}
	}
	return tx.Commit()
}

// encodeAggregate serializes the nested aggregate fields; the JSON stays
// inside this package.
func encodeAggregate(agg domain.AggregateResult) ([4]string, error) {
	var out [4]string
	for i, v := range []any{agg.TopLocations, agg.TopSources, agg.DayHistogram, agg.Series} {
		raw, err := json.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("encode aggregate: %w", err)
		}
		out[i] = string(raw)
	}
	return out, nil
}

func (s *Store) GetAnalysis(ctx context.Context, jobID string) (*domain.AggregateResult, error) {
	query, args, err := sq.Select("total_count", "positive_count", "neutral_count", "negative_count", "average_score",
		"top_locations_json", "top_sources_json", "day_histogram_json", "chart_series_json").
		From("analyses").Where(sq.Eq{"job_id": jobID}).ToSql()
	if err != nil {
		return nil, err
	}
	var agg domain.AggregateResult
	var blobs [4]string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&agg.TotalCount, &agg.PositiveCount, &agg.NeutralCount, &agg.NegativeCount,
		&agg.AverageScore, &blobs[0], &blobs[1], &blobs[2], &blobs[3])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for i, dst := range []any{&agg.TopLocations, &agg.TopSources, &agg.DayHistogram, &agg.Series} {
		if err := json.Unmarshal([]byte(blobs[i]), dst); err != nil {
			return nil, fmt.Errorf("decode analysis %s: %w", jobID, err)
		}
	}
	return &agg, nil
}

// Posts returns a job's records oldest first.
func (s *Store) Posts(ctx context.Context, jobID string) ([]domain.NormalizedRecord, error) {
	return s.posts(ctx, sq.Select().From("posts").Where(sq.Eq{"job_id": jobID}).OrderBy("collected_at ASC", "seq ASC"))
}

// RecentPosts returns up to n of a job's newest records.
func (s *Store) RecentPosts(ctx context.Context, jobID string, n int) ([]domain.NormalizedRecord, error) {
	return s.posts(ctx, sq.Select().From("posts").Where(sq.Eq{"job_id": jobID}).OrderBy("collected_at DESC", "seq ASC").Limit(uint64(n)))
}

func (s *Store) posts(ctx context.Context, b sq.SelectBuilder) ([]domain.NormalizedRecord, error) {
	query, args, err := b.Columns("source", "author_location", "content", "collected_at", "sentiment_label", "sentiment_score").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.NormalizedRecord
	for rows.Next() {
		var r domain.NormalizedRecord
		var label string
		if err := rows.Scan(&r.Source, &r.AuthorLocation, &r.Text, &r.Timestamp, &label, &r.Score); err != nil {
			return nil, err
		}
		r.Label = domain.Label(label)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetChart(ctx context.Context, jobID, name string) ([]byte, error) {
	query, args, err := sq.Select("png").From("charts").Where(sq.Eq{"job_id": jobID, "name": name}).ToSql()
	if err != nil {
		return nil, err
	}
	var png []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&png)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return png, err
}

// Charts returns every stored chart of a job keyed by name.
func (s *Store) Charts(ctx context.Context, jobID string) (map[string][]byte, error) {
	query, args, err := sq.Select("name", "png").From("charts").Where(sq.Eq{"job_id": jobID}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]byte)
	for rows.Next() {
		var name string
		var png []byte
		if err := rows.Scan(&name, &png); err != nil {
			return nil, err
		}
		out[name] = png
	}
	return out, rows.Err()
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
