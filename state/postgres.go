package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// StateRowID is the single row the document lives in (hosted document
// store contract: the whole state is one jsonb value).
const StateRowID = 1

// PostgresBackend keeps the document in one jsonb row of a hosted table:
// (id int primary key, data jsonb).
type PostgresBackend struct {
	db    *sql.DB
	table string
}

func NewPostgresBackend(db *sql.DB, table string) *PostgresBackend {
	if table == "" {
		table = "app_state"
	}
	return &PostgresBackend{db: db, table: table}
}

func (p *PostgresBackend) Load() (*AppState, error) {
	var raw []byte
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = $1", p.table)
	err := p.db.QueryRow(query, StateRowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var data AppState
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil
	}
	return &data, nil
}

func (p *PostgresBackend) Save(data *AppState) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (id, data) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data",
		p.table,
	)
	_, err = p.db.Exec(query, StateRowID, raw)
	return err
}
