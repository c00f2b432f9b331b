package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/abhisek/drillsergeant/internal/backend"
)

// Drill event kinds.
const (
	DrillGenerated  = "generated"
	DrillAnalyzed   = "analyzed"
	DrillSummarized = "summarized"
)

// Drill is a generated drill as served to a client.
type Drill struct {
	Session    backend.Session
	Difficulty backend.Difficulty
	ExamDate   string
	CreatedAt  time.Time
}

type drillRow struct {
	ID           string `db:"id"`
	Difficulty   string `db:"difficulty"`
	ExamDate     string `db:"exam_date"`
	PassageTitle string `db:"passage_title"`
	PassageText  string `db:"passage_text"`
	Questions    string `db:"questions"`
	CreatedAt    int64  `db:"created_at"`
}

// DrillEvent is one entry in a drill's history.
type DrillEvent struct {
	ID        int64  `db:"id"`
	Sequence  int64  `db:"sequence"`
	DrillID   string `db:"drill_id"`
	Kind      string `db:"kind"`
	Detail    string `db:"detail"`
	CreatedAt int64  `db:"created_at"`
}

// Time returns the event timestamp.
func (e DrillEvent) Time() time.Time { return time.UnixMilli(e.CreatedAt) }

// DrillRepo stores generated drills so mistakes can be analyzed against
// their answer keys.
type DrillRepo struct {
	db  *sqlx.DB
	seq *sequenceCounter
}

// Save stores a drill.
func (r *DrillRepo) Save(ctx context.Context, d Drill) error {
	qs, err := json.Marshal(d.Session.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	row := drillRow{
		ID:           d.Session.ID,
		Difficulty:   string(d.Difficulty),
		ExamDate:     d.ExamDate,
		PassageTitle: d.Session.Passage.Title,
		PassageText:  d.Session.Passage.Text,
		Questions:    string(qs),
		CreatedAt:    d.CreatedAt.UnixMilli(),
	}
	_, err = r.db.NamedExecContext(ctx,
		`INSERT INTO drills (id, difficulty, exam_date, passage_title, passage_text, questions, created_at)
		 VALUES (:id, :difficulty, :exam_date, :passage_title, :passage_text, :questions, :created_at)`, row)
	if isUniqueViolation(err) {
		return fmt.Errorf("save drill %s: %w", d.Session.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("save drill %s: %w", d.Session.ID, err)
	}
	return nil
}

// Get loads a drill by id.
func (r *DrillRepo) Get(ctx context.Context, id string) (*Drill, error) {
	var row drillRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM drills WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get drill %s: %w", id, err)
	}

	var qs []backend.Question
	if err := json.Unmarshal([]byte(row.Questions), &qs); err != nil {
		return nil, fmt.Errorf("decode questions of drill %s: %w", id, err)
	}
	return &Drill{
		Session: backend.Session{
			ID:        row.ID,
			Passage:   backend.Passage{Title: row.PassageTitle, Text: row.PassageText},
			Questions: qs,
		},
		Difficulty: backend.Difficulty(row.Difficulty),
		ExamDate:   row.ExamDate,
		CreatedAt:  time.UnixMilli(row.CreatedAt),
	}, nil
}

// PruneBefore deletes drills created before cutoff, with their events.
// It returns the number of drills removed.
func (r *DrillRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	ms := cutoff.UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM drill_events WHERE drill_id IN (SELECT id FROM drills WHERE created_at < ?)`, ms); err != nil {
		return 0, fmt.Errorf("prune drill events: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM drills WHERE created_at < ?`, ms)
	if err != nil {
		return 0, fmt.Errorf("prune drills: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}

// AppendEvent records a step in a drill's history.
func (r *DrillRepo) AppendEvent(ctx context.Context, drillID, kind, detail string) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO drill_events (sequence, drill_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		seq, drillID, kind, detail, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("append %s event for drill %s: %w", kind, drillID, err)
	}
	return nil
}

// Events returns a drill's history in order.
func (r *DrillRepo) Events(ctx context.Context, drillID string) ([]DrillEvent, error) {
	var out []DrillEvent
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM drill_events WHERE drill_id = ? ORDER BY sequence`, drillID)
	if err != nil {
		return nil, fmt.Errorf("query drill events: %w", err)
	}
	return out, nil
}
