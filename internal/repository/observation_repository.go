// Package repository provides data access implementations
package repository

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/ecms-bot/internal/entities"
)

const timestampLayout = time.RFC3339Nano

// ObservationRepository defines the append-only persistence operations for
// the four observation kinds
type ObservationRepository interface {
	AppendWaste(ctx context.Context, obs entities.WasteObservation) (int64, error)
	AppendDrainage(ctx context.Context, obs entities.DrainageObservation) (int64, error)
	AppendChemical(ctx context.Context, obs entities.ChemicalObservation) (int64, error)
	AppendForest(ctx context.Context, obs entities.ForestObservation) (int64, error)

	ListWaste(ctx context.Context) ([]entities.WasteObservation, error)
	ListDrainage(ctx context.Context) ([]entities.DrainageObservation, error)
	ListChemical(ctx context.Context) ([]entities.ChemicalObservation, error)
	ListForest(ctx context.Context) ([]entities.ForestObservation, error)

	Count(ctx context.Context, kind entities.RecordKind) (int, error)
	Counts(ctx context.Context) (entities.Counts, error)
	Close() error
}

// SQLObservationRepository implements ObservationRepository on database/sql
type SQLObservationRepository struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
	DSN     string
}

var tableNames = map[entities.RecordKind]string{
	entities.KindWaste:    "waste_data",
	entities.KindDrainage: "drainage_data",
	entities.KindChemical: "chemical_waste",
	entities.KindForest:   "forest_cover",
}

// NewSQLiteObservationRepository opens the default mattn SQLite database,
// using data/ecms.db when dbPath is empty
func NewSQLiteObservationRepository(dbPath string) (*SQLObservationRepository, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "ecms.db")
	}
	return NewObservationRepository(DriverSQLite3, dbPath)
}

// ensureDBDir creates the parent directory of a file-backed SQLite DSN
func ensureDBDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return eris.Wrap(err, "failed to create database directory")
	}
	return nil
}

// NewObservationRepository opens dsn with the named driver and creates the
// observation tables if they don't exist
func NewObservationRepository(driver, dsn string) (*SQLObservationRepository, error) {
	d, ok := dialectFor(driver)
	if !ok {
		return nil, eris.Errorf("unsupported database driver %q", driver)
	}

	if d.singleWriter {
		if err := ensureDBDir(dsn); err != nil {
			return nil, err
		}
	}

	zap.L().Info("opening database", zap.String("driver", driver))
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, storageErr("open", "", err)
	}
	if d.singleWriter {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range d.schema() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, storageErr("migrate", "", err)
		}
	}

	return &SQLObservationRepository{
		db:      db,
		dialect: d,
		now:     time.Now,
		DSN:     dsn,
	}, nil
}

// Close closes the database connection
func (r *SQLObservationRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable
func (r *SQLObservationRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storageErr("ping", "", err)
	}
	return nil
}

// stamp returns the insert time in its stored form
func (r *SQLObservationRepository) stamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// insert runs an INSERT ... RETURNING id for kind
func (r *SQLObservationRepository) insert(ctx context.Context, kind entities.RecordKind, query string, args ...any) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), args...).Scan(&id); err != nil {
		return 0, storageErr("append", kind, err)
	}
	return id, nil
}

// AppendWaste stores a classified waste image
func (r *SQLObservationRepository) AppendWaste(ctx context.Context, obs entities.WasteObservation) (int64, error) {
	ts := r.stamp()
	return r.insert(ctx, entities.KindWaste,
		`INSERT INTO waste_data(filename, classification, recommended_action, created_at)
		VALUES(?, ?, ?, ?) RETURNING id`,
		obs.SourceReference, string(obs.Classification), obs.RecommendedAction, ts)
}

// AppendDrainage stores a drainage report
func (r *SQLObservationRepository) AppendDrainage(ctx context.Context, obs entities.DrainageObservation) (int64, error) {
	ts := r.stamp()
	return r.insert(ctx, entities.KindDrainage,
		`INSERT INTO drainage_data(location, flow_status, risk_level, created_at)
		VALUES(?, ?, ?, ?) RETURNING id`,
		obs.Location, string(obs.FlowStatus), string(obs.RiskLevel), ts)
}

// AppendChemical stores a chemical pH reading
func (r *SQLObservationRepository) AppendChemical(ctx context.Context, obs entities.ChemicalObservation) (int64, error) {
	ts := r.stamp()
	return r.insert(ctx, entities.KindChemical,
		`INSERT INTO chemical_waste(chemical_name, ph_level, recommendation, created_at)
		VALUES(?, ?, ?, ?) RETURNING id`,
		obs.ChemicalName, obs.PHLevel, obs.Recommendation, ts)
}

// AppendForest stores a vegetation index reading
func (r *SQLObservationRepository) AppendForest(ctx context.Context, obs entities.ForestObservation) (int64, error) {
	ts := r.stamp()
	return r.insert(ctx, entities.KindForest,
		`INSERT INTO forest_cover(vegetation_index, alert_level, created_at)
		VALUES(?, ?, ?) RETURNING id`,
		obs.VegetationIndex, string(obs.AlertLevel), ts)
}

// query runs a full-table SELECT ordered by id and hands every row to scan
func (r *SQLObservationRepository) query(ctx context.Context, kind entities.RecordKind, q string, scan func(*sql.Rows) error) error {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return storageErr("list", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return storageErr("list", kind, err)
		}
	}
	if err := rows.Err(); err != nil {
		return storageErr("list", kind, err)
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "failed to parse timestamp '%s'", s)
	}
	return ts.UTC(), nil
}

// ListWaste returns every waste observation in insertion order
func (r *SQLObservationRepository) ListWaste(ctx context.Context) ([]entities.WasteObservation, error) {
	var result []entities.WasteObservation
	err := r.query(ctx, entities.KindWaste,
		`SELECT id, filename, classification, recommended_action, created_at FROM waste_data ORDER BY id`,
		func(rows *sql.Rows) error {
			var o entities.WasteObservation
			var class, ts string
			if err := rows.Scan(&o.ID, &o.SourceReference, &class, &o.RecommendedAction, &ts); err != nil {
				return err
			}
			o.Classification = entities.WasteClass(class)
			created, err := parseTimestamp(ts)
			if err != nil {
				return err
			}
			o.CreatedAt = created
			result = append(result, o)
			return nil
		})
	return result, err
}

// ListDrainage returns every drainage observation in insertion order
func (r *SQLObservationRepository) ListDrainage(ctx context.Context) ([]entities.DrainageObservation, error) {
	var result []entities.DrainageObservation
	err := r.query(ctx, entities.KindDrainage,
		`SELECT id, location, flow_status, risk_level, created_at FROM drainage_data ORDER BY id`,
		func(rows *sql.Rows) error {
			var o entities.DrainageObservation
			var flow, risk, ts string
			if err := rows.Scan(&o.ID, &o.Location, &flow, &risk, &ts); err != nil {
				return err
			}
			o.FlowStatus = entities.FlowStatus(flow)
			o.RiskLevel = entities.RiskLevel(risk)
			created, err := parseTimestamp(ts)
			if err != nil {
				return err
			}
			o.CreatedAt = created
			result = append(result, o)
			return nil
		})
	return result, err
}

// ListChemical returns every chemical observation in insertion order
func (r *SQLObservationRepository) ListChemical(ctx context.Context) ([]entities.ChemicalObservation, error) {
	var result []entities.ChemicalObservation
	err := r.query(ctx, entities.KindChemical,
		`SELECT id, chemical_name, ph_level, recommendation, created_at FROM chemical_waste ORDER BY id`,
		func(rows *sql.Rows) error {
			var o entities.ChemicalObservation
			var ts string
			if err := rows.Scan(&o.ID, &o.ChemicalName, &o.PHLevel, &o.Recommendation, &ts); err != nil {
				return err
			}
			created, err := parseTimestamp(ts)
			if err != nil {
				return err
			}
			o.CreatedAt = created
			result = append(result, o)
			return nil
		})
	return result, err
}

// ListForest returns every forest observation in insertion order
func (r *SQLObservationRepository) ListForest(ctx context.Context) ([]entities.ForestObservation, error) {
	var result []entities.ForestObservation
	err := r.query(ctx, entities.KindForest,
		`SELECT id, vegetation_index, alert_level, created_at FROM forest_cover ORDER BY id`,
		func(rows *sql.Rows) error {
			var o entities.ForestObservation
			var alert, ts string
			if err := rows.Scan(&o.ID, &o.VegetationIndex, &alert, &ts); err != nil {
				return err
			}
			o.AlertLevel = entities.AlertLevel(alert)
			created, err := parseTimestamp(ts)
			if err != nil {
				return err
			}
			o.CreatedAt = created
			result = append(result, o)
			return nil
		})
	return result, err
}

// Count returns the number of stored rows of kind
func (r *SQLObservationRepository) Count(ctx context.Context, kind entities.RecordKind) (int, error) {
	table, ok := tableNames[kind]
	if !ok {
		return 0, storageErr("count", kind, eris.Errorf("unknown record kind %q", kind))
	}

	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, storageErr("count", kind, err)
	}
	return n, nil
}

// Counts returns the row count of every kind
func (r *SQLObservationRepository) Counts(ctx context.Context) (entities.Counts, error) {
	var c entities.Counts
	targets := map[entities.RecordKind]*int{
		entities.KindWaste:    &c.Waste,
		entities.KindDrainage: &c.Drainage,
		entities.KindChemical: &c.Chemical,
		entities.KindForest:   &c.Forest,
	}
	for _, kind := range entities.AllKinds {
		n, err := r.Count(ctx, kind)
		if err != nil {
			return entities.Counts{}, err
		}
		*targets[kind] = n
	}
	return c, nil
}
