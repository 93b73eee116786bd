package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Drift is one cached counter that disagrees with the rows it summarises.
type Drift struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	ID     uint   `json:"id"`
	Cached int    `json:"cached"`
	Actual int    `json:"actual"`
}

// counterSource says which child rows a counter column counts.
type counterSource struct {
	table  string
	column string
	child  string
	fk     string
}

var counterSources = []counterSource{
	{table: "posts", column: colPoints, child: "post_upvotes", fk: "post_id"},
	{table: "posts", column: colCommentCount, child: "comments", fk: "post_id"},
	{table: "comments", column: colPoints, child: "comment_upvotes", fk: "comment_id"},
	{table: "comments", column: colCommentCount, child: "comments", fk: "parent_comment_id"},
}

// Reconciler finds and repairs drift in the denormalized counters. Normal
// operation never needs it; it exists to detect bugs and manual data edits.
type Reconciler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReconciler(conn *gorm.DB, log *zap.Logger) *Reconciler {
	return &Reconciler{db: conn, log: log.Named("reconcile")}
}

// Check reports every drifting counter without changing anything.
func (r *Reconciler) Check(ctx context.Context) ([]Drift, error) {
	return r.scan(r.db.WithContext(ctx))
}

// Fix rewrites every drifting counter from its rows in one transaction and returns what it changed.
func (r *Reconciler) Fix(ctx context.Context) ([]Drift, error) {
	var drifts []Drift
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		drifts, err = r.scan(tx)
		if err != nil {
			return err
		}
		for _, d := range drifts {
			src := sourceFor(d.Table, d.Column)
			// the child may be the table itself (replies), so it gets its own alias
			recount := gorm.Expr(fmt.Sprintf("(SELECT COUNT(*) FROM %s AS c WHERE c.%s = %s.id)", src.child, src.fk, src.table))
			if err := tx.Table(d.Table).Where("id = ?", d.ID).UpdateColumn(d.Column, recount).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	for _, d := range drifts {
		counterRepairs.WithLabelValues(d.Table, d.Column).Inc()
		r.log.Warn("counter repaired",
			zap.String("table", d.Table),
			zap.String("column", d.Column),
			zap.Uint("id", d.ID),
			zap.Int("cached", d.Cached),
			zap.Int("actual", d.Actual),
		)
	}
	return drifts, nil
}

func (r *Reconciler) scan(tx *gorm.DB) ([]Drift, error) {
	var drifts []Drift
	for _, src := range counterSources {
		var rows []Drift
		err := tx.Table(src.table+" AS t").
			Select(fmt.Sprintf("t.id AS id, t.%s AS cached, COUNT(c.id) AS actual", src.column)).
			Joins(fmt.Sprintf("LEFT JOIN %s AS c ON c.%s = t.id", src.child, src.fk)).
			Group(fmt.Sprintf("t.id, t.%s", src.column)).
			Having(fmt.Sprintf("t.%s <> COUNT(c.id)", src.column)).
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", src.table, src.column, err)
		}
		for i := range rows {
			rows[i].Table = src.table
			rows[i].Column = src.column
		}
		drifts = append(drifts, rows...)
	}
	return drifts, nil
}

func sourceFor(table, column string) counterSource {
	for _, src := range counterSources {
		if src.table == table && src.column == column {
			return src
		}
	}
	panic("unknown counter " + table + "." + column)
}

// Schedule runs Fix on the cron spec until the returned scheduler is stopped.
func (r *Reconciler) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		drifts, err := r.Fix(context.Background())
		if err != nil {
			r.log.Error("scheduled reconcile failed", zap.Error(err))
			return
		}
		r.log.Info("scheduled reconcile finished", zap.Int("repaired", len(drifts)))
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
