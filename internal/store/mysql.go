package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is the relational backend. Each collection maps to a table and
// filters become WHERE clauses; the Exists sentinel becomes IS NOT NULL.
type MySQLStore struct {
	db *sql.DB
}

// tableColumns doubles as the schema definition and the identifier allowlist
// for query building.
var tableColumns = map[string][]string{
	Teams:        {FieldID, FieldName, FieldDisplayName, FieldColor, FieldCreatedAt},
	Participants: {FieldParticipantID, FieldName, FieldTeamID},
	Points:       {FieldTeamID, FieldParticipantID, FieldBalance, FieldLastUpdated},
}

// NewMySQLStore connects using a go-sql-driver DSN. The DSN must include
// parseTime=true so DATETIME columns scan as time.Time.
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// InitSchema creates the tables and indexes if they do not exist yet.
func (s *MySQLStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id BIGINT NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			display_name VARCHAR(100) NOT NULL,
			color BIGINT NOT NULL,
			created_at DATETIME NOT NULL,
			KEY idx_teams_name (name)
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			participant_id CHAR(36) NOT NULL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			team_id BIGINT NULL,
			KEY idx_participants_team (team_id)
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			team_id BIGINT NULL,
			participant_id CHAR(36) NULL,
			balance BIGINT NOT NULL,
			last_updated DATETIME NOT NULL,
			KEY idx_points_team (team_id),
			KEY idx_points_participant (participant_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (s *MySQLStore) columns(collection string) ([]string, error) {
	cols, ok := tableColumns[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	return cols, nil
}

// whereClause renders a filter as "WHERE a = ? AND b IS NOT NULL" plus args.
// An empty filter yields an empty clause.
func whereClause(collection string, filter Filter) (string, []any, error) {
	cols := tableColumns[collection]
	var conds []string
	var args []any
	for field, want := range filter {
		allowed := false
		for _, c := range cols {
			if c == field {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", nil, fmt.Errorf("unknown field %q in collection %q", field, collection)
		}
		switch {
		case want == Exists:
			conds = append(conds, field+" IS NOT NULL")
		case want == nil:
			conds = append(conds, field+" IS NULL")
		default:
			conds = append(conds, field+" = ?")
			args = append(args, want)
		}
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (s *MySQLStore) query(ctx context.Context, collection string, filter Filter, limit int) ([]Record, error) {
	cols, err := s.columns(collection)
	if err != nil {
		return nil, err
	}
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return nil, err
	}

	q := "SELECT " + strings.Join(cols, ", ") + " FROM " + collection + where
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", collection, err)
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", collection, err)
	}
	return result, nil
}

func (s *MySQLStore) Find(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	return s.query(ctx, collection, filter, 0)
}

func (s *MySQLStore) FindOne(ctx context.Context, collection string, filter Filter) (Record, error) {
	recs, err := s.query(ctx, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoRecord
	}
	return recs[0], nil
}

func (s *MySQLStore) InsertOne(ctx context.Context, collection string, rec Record) error {
	cols, err := s.columns(collection)
	if err != nil {
		return err
	}

	var fields []string
	var placeholders []string
	var args []any
	for _, col := range cols {
		v, ok := rec[col]
		if !ok {
			continue
		}
		fields = append(fields, col)
		placeholders = append(placeholders, "?")
		args = append(args, v)
	}

	q := "INSERT INTO " + collection + " (" + strings.Join(fields, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return nil
}

func (s *MySQLStore) UpdateOne(ctx context.Context, collection string, filter Filter, set Record) error {
	cols, err := s.columns(collection)
	if err != nil {
		return err
	}
	where, whereArgs, err := whereClause(collection, filter)
	if err != nil {
		return err
	}

	var assigns []string
	var args []any
	for _, col := range cols {
		v, ok := set[col]
		if !ok {
			continue
		}
		assigns = append(assigns, col+" = ?")
		args = append(args, v)
	}
	args = append(args, whereArgs...)

	q := "UPDATE " + collection + " SET " + strings.Join(assigns, ", ") + where + " LIMIT 1"
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("updating %s: %w", collection, err)
	}
	return nil
}

func (s *MySQLStore) DeleteOne(ctx context.Context, collection string, filter Filter) error {
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return err
	}
	q := "DELETE FROM " + collection + where + " LIMIT 1"
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

func (s *MySQLStore) DeleteMany(ctx context.Context, collection string, filter Filter) error {
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return err
	}
	q := "DELETE FROM " + collection + where
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

func (s *MySQLStore) Close(_ context.Context) error {
	return s.db.Close()
}
