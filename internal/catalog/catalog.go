package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mycar-backend/internal/vehicle"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mycar.internal.catalog")

var ErrNotFound = errors.New("part type not found")

// MinSimilarity is the lowest Jaro-Winkler score a category may have to be
// picked when there is no exact match.
const MinSimilarity = 0.85

// Catalog resolves part types by category.
type Catalog interface {
	PartTypeByCategory(ctx context.Context, category string) (*vehicle.PartType, error)
}

// DefaultPartTypes are the part types `catalog seed` installs.
var DefaultPartTypes = []vehicle.PartType{
	{Name: "Battery", Category: "Battery"},
	{Name: "Tire", Category: "Tire"},
	{Name: "Engine Oil", Category: "Oil"},
	{Name: "Oil Filter", Category: "Oil Filter"},
	{Name: "Engine Air Filter", Category: "Air Filter"},
	{Name: "Wiper Blade", Category: "Wiper"},
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Migrate creates the catalog tables if they do not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// Seed inserts part types, replacing the name of any category that already
// exists.
func (s Store) Seed(ctx context.Context, types []vehicle.PartType) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range types {
		_, err = tx.ExecContext(
			ctx,
			`insert into part_types(name, category) values (?, ?)
			on conflict(category) do update set name = excluded.name`,
			t.Name, t.Category,
		)
		if err != nil {
			return fmt.Errorf("seed part type '%s': %w", t.Category, err)
		}
	}
	return tx.Commit()
}

func (s Store) List(ctx context.Context) ([]vehicle.PartType, error) {
	rows, err := s.db.QueryContext(ctx, "select id, name, category from part_types order by id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []vehicle.PartType
	for rows.Next() {
		var t vehicle.PartType
		err = rows.Scan(&t.Id, &t.Name, &t.Category)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PartTypeByCategory returns the part type of a category, falling back to
// the most similar category when there is no exact (case-insensitive)
// match.
func (s Store) PartTypeByCategory(ctx context.Context, category string) (*vehicle.PartType, error) {
	ctx, span := tracer.Start(ctx, "PartTypeByCategory")
	defer span.End()
	span.SetAttributes(attribute.String("category", category))

	var t vehicle.PartType
	err := s.db.QueryRowContext(
		ctx,
		"select id, name, category from part_types where category = ?",
		category,
	).Scan(&t.Id, &t.Name, &t.Category)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query part type")
		return nil, err
	}

	all, err := s.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list part types")
		return nil, err
	}

	target := strings.ToLower(category)
	var best *vehicle.PartType
	var similarity float64
	for i, candidate := range all {
		sim := matchr.JaroWinkler(target, strings.ToLower(candidate.Category), false)
		if sim > similarity {
			similarity = sim
			best = &all[i]
		}
	}
	if best == nil || similarity < MinSimilarity {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, category)
	}
	span.SetAttributes(
		attribute.String("matched", best.Category),
		attribute.Float64("similarity", similarity),
	)
	return best, nil
}
