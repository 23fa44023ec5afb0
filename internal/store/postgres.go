package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iandry357/jobpulse/internal/posting"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// NewPool creates and verifies a pgxpool connection pool.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// Postgres implements the store interfaces over a pgx connection pool. Schema
// management lives outside this package.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, p *posting.Posting) error {
	raw, err := json.Marshal(p.Raw)
	if err != nil {
		return fmt.Errorf("marshal raw payload: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO postings (
		   external_id, title, description, contract_type, contract_label,
		   work_time, experience_code, experience_label, rome_code,
		   location_label, location_postal_code, location_lat, location_lng,
		   company_name, company_description, company_url, salary_label,
		   sector_label, naf_code, offer_url, published_at, source_updated_at,
		   raw_data, status, first_seen_at, last_seen_at
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
		   $18,$19,$20,$21,$22,$23,$24,$25,$26)
		 RETURNING id`,
		p.ExternalID, p.Title, p.Description, p.ContractType, p.ContractLabel,
		p.WorkTime, p.ExperienceCode, p.ExperienceLabel, p.RomeCode,
		p.LocationLabel, p.LocationPostalCode, p.LocationLat, p.LocationLng,
		p.CompanyName, p.CompanyDescription, p.CompanyURL, p.SalaryLabel,
		p.SectorLabel, p.NafCode, p.OfferURL, p.PublishedAt, p.UpdatedAt,
		raw, string(p.Status), p.FirstSeenAt, p.LastSeenAt,
	).Scan(&p.ID)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert posting: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id int64) (*posting.Posting, error) {
	row := s.pool.QueryRow(ctx, postingSelect+` WHERE id = $1`, id)
	return scanPosting(row)
}

func (s *Postgres) ExternalIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT external_id FROM postings`)
	if err != nil {
		return nil, fmt.Errorf("select external ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan external id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *Postgres) ListActive(ctx context.Context) ([]*posting.Posting, error) {
	rows, err := s.pool.Query(ctx,
		postingSelect+` WHERE status NOT IN ($1, $2) ORDER BY first_seen_at DESC`,
		string(posting.StatusClosed), string(posting.StatusApplied),
	)
	if err != nil {
		return nil, fmt.Errorf("select active postings: %w", err)
	}
	defer rows.Close()

	var out []*posting.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateStatus(ctx context.Context, id int64, status posting.Status, appliedAt *time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postings
		 SET status = $1, applied_at = COALESCE($2, applied_at), updated_at = NOW()
		 WHERE id = $3`,
		string(status), appliedAt, id,
	)
	if err != nil {
		return fmt.Errorf("update posting status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const postingSelect = `
	SELECT id, external_id, title, description, contract_type, contract_label,
	       work_time, experience_code, experience_label, rome_code,
	       location_label, location_postal_code, location_lat, location_lng,
	       company_name, company_description, company_url, salary_label,
	       sector_label, naf_code, offer_url, published_at, source_updated_at,
	       raw_data, status, first_seen_at, last_seen_at, applied_at
	FROM postings`

func scanPosting(row pgx.Row) (*posting.Posting, error) {
	var (
		p      posting.Posting
		raw    []byte
		status string
	)
	err := row.Scan(
		&p.ID, &p.ExternalID, &p.Title, &p.Description, &p.ContractType,
		&p.ContractLabel, &p.WorkTime, &p.ExperienceCode, &p.ExperienceLabel,
		&p.RomeCode, &p.LocationLabel, &p.LocationPostalCode, &p.LocationLat,
		&p.LocationLng, &p.CompanyName, &p.CompanyDescription, &p.CompanyURL,
		&p.SalaryLabel, &p.SectorLabel, &p.NafCode, &p.OfferURL,
		&p.PublishedAt, &p.UpdatedAt, &raw, &status, &p.FirstSeenAt,
		&p.LastSeenAt, &p.AppliedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan posting: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Raw); err != nil {
			return nil, fmt.Errorf("decode raw payload: %w", err)
		}
	}
	p.Status = posting.Status(status)
	return &p, nil
}

// PostgresReports implements ReportStore over the same pool.
type PostgresReports struct {
	pool *pgxpool.Pool
}

// NewPostgresReports returns a report store backed by the given pool.
func NewPostgresReports(pool *pgxpool.Pool) *PostgresReports {
	return &PostgresReports{pool: pool}
}

func (s *PostgresReports) Create(ctx context.Context, r *posting.EnrichmentReport) error {
	extraction, evaluation, history, err := marshalReportFields(r)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO enrichment_reports (
		   posting_id, score, extraction, evaluation, summary,
		   initial_prompt, recalc_history, recalc_count
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING id, created_at, updated_at`,
		r.PostingID, r.Score, extraction, evaluation, r.Summary,
		r.InitialPrompt, history, r.RecalcCount,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresReports) GetByPostingID(ctx context.Context, postingID int64) (*posting.EnrichmentReport, error) {
	var (
		r          posting.EnrichmentReport
		extraction []byte
		evaluation []byte
		history    []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, posting_id, score, extraction, evaluation, summary,
		        initial_prompt, recalc_history, recalc_count, created_at, updated_at
		 FROM enrichment_reports WHERE posting_id = $1`,
		postingID,
	).Scan(
		&r.ID, &r.PostingID, &r.Score, &extraction, &evaluation, &r.Summary,
		&r.InitialPrompt, &history, &r.RecalcCount, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select report: %w", err)
	}

	if err := unmarshalReportFields(&r, extraction, evaluation, history); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresReports) Update(ctx context.Context, r *posting.EnrichmentReport) error {
	extraction, evaluation, history, err := marshalReportFields(r)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE enrichment_reports
		 SET extraction = $1, evaluation = $2, summary = $3,
		     recalc_history = $4, recalc_count = $5, updated_at = NOW()
		 WHERE posting_id = $6`,
		extraction, evaluation, r.Summary, history, r.RecalcCount, r.PostingID,
	)
	if err != nil {
		if isPgCode(err, pgCheckViolation) {
			return ErrRecalcLimit
		}
		return fmt.Errorf("update report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalReportFields(r *posting.EnrichmentReport) (extraction, evaluation, history []byte, err error) {
	if extraction, err = json.Marshal(r.Extraction); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal extraction: %w", err)
	}
	if evaluation, err = json.Marshal(r.Evaluation); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal evaluation: %w", err)
	}
	if r.History == nil {
		history = []byte("[]")
	} else if history, err = json.Marshal(r.History); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal history: %w", err)
	}
	return extraction, evaluation, history, nil
}

func unmarshalReportFields(r *posting.EnrichmentReport, extraction, evaluation, history []byte) error {
	if len(extraction) > 0 {
		if err := json.Unmarshal(extraction, &r.Extraction); err != nil {
			return fmt.Errorf("decode extraction: %w", err)
		}
	}
	if len(evaluation) > 0 {
		if err := json.Unmarshal(evaluation, &r.Evaluation); err != nil {
			return fmt.Errorf("decode evaluation: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &r.History); err != nil {
			return fmt.Errorf("decode history: %w", err)
		}
	}
	return nil
}

// PostgresExperiences implements ExperienceStore over the same pool.
type PostgresExperiences struct {
	pool *pgxpool.Pool
}

// NewPostgresExperiences returns an experience store backed by the given pool.
func NewPostgresExperiences(pool *pgxpool.Pool) *PostgresExperiences {
	return &PostgresExperiences{pool: pool}
}

func (s *PostgresExperiences) Experiences(ctx context.Context) ([]Experience, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role, context, technologies, start_date
		 FROM experiences ORDER BY start_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select experiences: %w", err)
	}
	defer rows.Close()

	var out []Experience
	for rows.Next() {
		var e Experience
		if err := rows.Scan(&e.Role, &e.Context, &e.Technologies, &e.StartDate); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
