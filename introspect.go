package main

import (
	"context"
	"database/sql"
	"fmt"
)

// mariadbEndpoint introspects a live MariaDB/MySQL database over
// INFORMATION_SCHEMA.
type mariadbEndpoint struct {
	db     *sql.DB
	dbName string
}

func openMariaDBEndpoint(dsn string) (*mariadbEndpoint, error) {
	normalized, err := mysqlDSNWithReadOptions(dsn)
	if err != nil {
		return nil, err
	}
	dbName, err := mysqlDBName(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("open mariadb: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mariadb %q: %w", dbName, err)
	}
	return &mariadbEndpoint{db: db, dbName: dbName}, nil
}

func (m *mariadbEndpoint) Name() string { return m.dbName }

func (m *mariadbEndpoint) Close() error { return m.db.Close() }

func (m *mariadbEndpoint) Snapshot(ctx context.Context) (*Snapshot, []*MalformedMetadataError, error) {
	tables, err := introspectTables(ctx, m.db, m.dbName)
	if err != nil {
		return nil, nil, fmt.Errorf("introspect tables: %w", err)
	}

	for i := range tables {
		t := &tables[i]

		cols, err := introspectColumns(ctx, m.db, m.dbName, t.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("introspect columns for %s: %w", t.Name, err)
		}
		t.Columns = cols

		indexes, err := introspectIndexes(ctx, m.db, m.dbName, t.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("introspect indexes for %s: %w", t.Name, err)
		}
		t.Indexes = indexes

		fks, err := introspectForeignKeys(ctx, m.db, m.dbName, t.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("introspect foreign keys for %s: %w", t.Name, err)
		}
		t.ForeignKeys = fks
	}

	snap, excluded := buildSnapshot(m.dbName, tables)
	return snap, excluded, nil
}

func introspectTables(ctx context.Context, db *sql.DB, dbName string) ([]Table, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT TABLE_NAME, COALESCE(ENGINE, ''), COALESCE(TABLE_COLLATION, ''), COALESCE(TABLE_ROWS, 0)
		 FROM INFORMATION_SCHEMA.TABLES
		 WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		 ORDER BY TABLE_NAME`,
		dbName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Name, &t.Engine, &t.Collation, &t.RowCount); err != nil {
			return nil, err
		}
		t.Charset = charsetFromCollation(t.Collation)
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// charsetFromCollation derives the character set from a collation name,
// e.g. "utf8mb4_general_ci" -> "utf8mb4". TABLE_COLLATION is always
// qualified this way in INFORMATION_SCHEMA.
func charsetFromCollation(collation string) string {
	for i := 0; i < len(collation); i++ {
		if collation[i] == '_' {
			return collation[:i]
		}
	}
	return collation
}

func introspectColumns(ctx context.Context, db *sql.DB, dbName, tableName string) ([]Column, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT COLUMN_NAME, ORDINAL_POSITION, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, EXTRA
		 FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		 ORDER BY ORDINAL_POSITION`,
		dbName, tableName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		var nullable string
		var dflt sql.NullString
		if err := rows.Scan(&c.Name, &c.OrdinalPos, &c.ColumnType, &nullable, &dflt, &c.Extra); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES"
		if dflt.Valid {
			c.Default = &dflt.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func introspectIndexes(ctx context.Context, db *sql.DB, dbName, tableName string) ([]Index, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT INDEX_NAME, NON_UNIQUE, COLUMN_NAME
		 FROM INFORMATION_SCHEMA.STATISTICS
		 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		 ORDER BY INDEX_NAME, SEQ_IN_INDEX`,
		dbName, tableName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indexMap := make(map[string]*Index)
	var order []string

	for rows.Next() {
		var idxName string
		var colName sql.NullString
		var nonUnique int
		if err := rows.Scan(&idxName, &nonUnique, &colName); err != nil {
			return nil, err
		}

		idx, ok := indexMap[idxName]
		if !ok {
			idx = &Index{Name: idxName, Unique: nonUnique == 0}
			indexMap[idxName] = idx
			order = append(order, idxName)
		}
		if colName.Valid {
			idx.Columns = append(idx.Columns, colName.String)
		}
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

func introspectForeignKeys(ctx context.Context, db *sql.DB, dbName, tableName string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME,
		        kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
		        COALESCE(rc.UPDATE_RULE, 'RESTRICT'), COALESCE(rc.DELETE_RULE, 'RESTRICT')
		 FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		 LEFT JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
		   ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
		   AND kcu.TABLE_SCHEMA = rc.CONSTRAINT_SCHEMA
		 WHERE kcu.TABLE_SCHEMA = ? AND kcu.TABLE_NAME = ?
		   AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		 ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`,
		dbName, tableName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fkMap := make(map[string]*ForeignKey)
	var order []string

	for rows.Next() {
		var fkName, colName, refTable, refCol, updateRule, deleteRule string
		if err := rows.Scan(&fkName, &colName, &refTable, &refCol, &updateRule, &deleteRule); err != nil {
			return nil, err
		}

		fk, ok := fkMap[fkName]
		if !ok {
			fk = &ForeignKey{Name: fkName, RefTable: refTable, OnUpdate: updateRule, OnDelete: deleteRule}
			fkMap[fkName] = fk
			order = append(order, fkName)
		}
		fk.Columns = append(fk.Columns, colName)
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
