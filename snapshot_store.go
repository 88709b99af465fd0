package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// The snapshot store persists one introspected Snapshot into a local SQLite
// file so a live database can later be diffed against a saved baseline
// without connecting to the original server.

const snapshotStoreDDL = `
CREATE TABLE snapshot_meta (
  db_name TEXT NOT NULL
);
CREATE TABLE tables_meta (
  name      TEXT PRIMARY KEY,
  engine    TEXT NOT NULL,
  charset   TEXT NOT NULL,
  collation TEXT NOT NULL,
  row_count INTEGER NOT NULL
);
CREATE TABLE columns_meta (
  table_name  TEXT NOT NULL,
  name        TEXT NOT NULL,
  ordinal_pos INTEGER NOT NULL,
  column_type TEXT NOT NULL,
  nullable    INTEGER NOT NULL,
  default_val TEXT,
  extra       TEXT NOT NULL,
  PRIMARY KEY (table_name, name)
);
CREATE TABLE indexes_meta (
  table_name TEXT NOT NULL,
  name       TEXT NOT NULL,
  is_unique  INTEGER NOT NULL,
  PRIMARY KEY (table_name, name)
);
CREATE TABLE index_columns_meta (
  table_name TEXT NOT NULL,
  index_name TEXT NOT NULL,
  seq        INTEGER NOT NULL,
  column_name TEXT NOT NULL,
  PRIMARY KEY (table_name, index_name, seq)
);
CREATE TABLE foreign_keys_meta (
  table_name TEXT NOT NULL,
  name       TEXT NOT NULL,
  ref_table  TEXT NOT NULL,
  on_update  TEXT NOT NULL,
  on_delete  TEXT NOT NULL,
  PRIMARY KEY (table_name, name)
);
CREATE TABLE foreign_key_columns_meta (
  table_name TEXT NOT NULL,
  fk_name    TEXT NOT NULL,
  seq        INTEGER NOT NULL,
  column_name TEXT NOT NULL,
  ref_column  TEXT NOT NULL,
  PRIMARY KEY (table_name, fk_name, seq)
);
`

// saveSnapshot writes a snapshot to a new SQLite file at path. The file must
// not already contain a snapshot.
func saveSnapshot(ctx context.Context, path string, snap *Snapshot) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, snapshotStoreDDL); err != nil {
		return fmt.Errorf("initialize snapshot file: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshot_meta (db_name) VALUES (?)`, snap.Name); err != nil {
		return fmt.Errorf("write snapshot meta: %w", err)
	}

	for _, t := range snap.Tables {
		if err := saveTable(ctx, tx, t); err != nil {
			return fmt.Errorf("write table %s: %w", t.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func saveTable(ctx context.Context, tx *sql.Tx, t Table) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tables_meta (name, engine, charset, collation, row_count) VALUES (?, ?, ?, ?, ?)`,
		t.Name, t.Engine, t.Charset, t.Collation, t.RowCount); err != nil {
		return err
	}
	for _, c := range t.Columns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO columns_meta (table_name, name, ordinal_pos, column_type, nullable, default_val, extra)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.Name, c.Name, c.OrdinalPos, c.ColumnType, boolToInt(c.Nullable), c.Default, c.Extra); err != nil {
			return err
		}
	}
	for _, idx := range t.Indexes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO indexes_meta (table_name, name, is_unique) VALUES (?, ?, ?)`,
			t.Name, idx.Name, boolToInt(idx.Unique)); err != nil {
			return err
		}
		for i, col := range idx.Columns {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO index_columns_meta (table_name, index_name, seq, column_name) VALUES (?, ?, ?, ?)`,
				t.Name, idx.Name, i, col); err != nil {
				return err
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO foreign_keys_meta (table_name, name, ref_table, on_update, on_delete) VALUES (?, ?, ?, ?, ?)`,
			t.Name, fk.Name, fk.RefTable, fk.OnUpdate, fk.OnDelete); err != nil {
			return err
		}
		for i := range fk.Columns {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO foreign_key_columns_meta (table_name, fk_name, seq, column_name, ref_column) VALUES (?, ?, ?, ?, ?)`,
				t.Name, fk.Name, i, fk.Columns[i], fk.RefColumns[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// fileEndpoint serves a snapshot previously saved with saveSnapshot.
type fileEndpoint struct {
	db     *sql.DB
	dbName string
}

func openFileEndpoint(path string) (*fileEndpoint, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	var dbName string
	if err := db.QueryRow(`SELECT db_name FROM snapshot_meta`).Scan(&dbName); err != nil {
		db.Close()
		return nil, fmt.Errorf("read snapshot file %q: %w", path, err)
	}
	return &fileEndpoint{db: db, dbName: dbName}, nil
}

func (f *fileEndpoint) Name() string { return f.dbName }

func (f *fileEndpoint) Close() error { return f.db.Close() }

func (f *fileEndpoint) Snapshot(ctx context.Context) (*Snapshot, []*MalformedMetadataError, error) {
	tables, err := loadTables(ctx, f.db)
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}
	// Stored snapshots pass through the same validation as live ones.
	snap, excluded := buildSnapshot(f.dbName, tables)
	return snap, excluded, nil
}

func loadTables(ctx context.Context, db *sql.DB) ([]Table, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, engine, charset, collation, row_count FROM tables_meta ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name, &t.Engine, &t.Charset, &t.Collation, &t.RowCount); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		t := &tables[i]
		if t.Columns, err = loadColumns(ctx, db, t.Name); err != nil {
			return nil, err
		}
		if t.Indexes, err = loadIndexes(ctx, db, t.Name); err != nil {
			return nil, err
		}
		if t.ForeignKeys, err = loadForeignKeys(ctx, db, t.Name); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func loadColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, ordinal_pos, column_type, nullable, default_val, extra
		 FROM columns_meta WHERE table_name = ? ORDER BY ordinal_pos`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		var nullable int
		var dflt sql.NullString
		if err := rows.Scan(&c.Name, &c.OrdinalPos, &c.ColumnType, &nullable, &dflt, &c.Extra); err != nil {
			return nil, err
		}
		c.Nullable = nullable != 0
		if dflt.Valid {
			c.Default = &dflt.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func loadIndexes(ctx context.Context, db *sql.DB, table string) ([]Index, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT i.name, i.is_unique, c.column_name
		 FROM indexes_meta i
		 JOIN index_columns_meta c ON c.table_name = i.table_name AND c.index_name = i.name
		 WHERE i.table_name = ?
		 ORDER BY i.name, c.seq`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indexMap := make(map[string]*Index)
	var order []string
	for rows.Next() {
		var name, col string
		var unique int
		if err := rows.Scan(&name, &unique, &col); err != nil {
			return nil, err
		}
		idx, ok := indexMap[name]
		if !ok {
			idx = &Index{Name: name, Unique: unique != 0}
			indexMap[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []Index
	for _, name := range order {
		indexes = append(indexes, *indexMap[name])
	}
	return indexes, nil
}

func loadForeignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT f.name, f.ref_table, f.on_update, f.on_delete, c.column_name, c.ref_column
		 FROM foreign_keys_meta f
		 JOIN foreign_key_columns_meta c ON c.table_name = f.table_name AND c.fk_name = f.name
		 WHERE f.table_name = ?
		 ORDER BY f.name, c.seq`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fkMap := make(map[string]*ForeignKey)
	var order []string
	for rows.Next() {
		var name, refTable, onUpdate, onDelete, col, refCol string
		if err := rows.Scan(&name, &refTable, &onUpdate, &onDelete, &col, &refCol); err != nil {
			return nil, err
		}
		fk, ok := fkMap[name]
		if !ok {
			fk = &ForeignKey{Name: name, RefTable: refTable, OnUpdate: onUpdate, OnDelete: onDelete}
			fkMap[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, col)
		fk.RefColumns = append(fk.RefColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var fks []ForeignKey
	for _, name := range order {
		fks = append(fks, *fkMap[name])
	}
	return fks, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
