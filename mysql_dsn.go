package main

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDSNWithReadOptions normalizes a DSN for metadata reads: parsed times,
// UTC, utf8mb4, and client-side interpolation so introspection queries stay
// single round-trip.
func mysqlDSNWithReadOptions(baseDSN string) (string, error) {
	cfg, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["charset"] = "utf8mb4"
	return cfg.FormatDSN(), nil
}

// mysqlDBName extracts the database name from a DSN.
func mysqlDBName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("mysql dsn has no database name: %q", dsn)
	}
	return cfg.DBName, nil
}
