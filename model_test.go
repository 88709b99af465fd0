package main

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name    string
		table   Table
		wantErr string // substring of the reason, "" for valid
	}{
		{
			name: "valid",
			table: Table{Name: "users", Columns: []Column{
				{Name: "id", OrdinalPos: 1},
				{Name: "email", OrdinalPos: 2},
			}},
		},
		{
			name: "duplicate column case-insensitive",
			table: Table{Name: "users", Columns: []Column{
				{Name: "id", OrdinalPos: 1},
				{Name: "ID", OrdinalPos: 2},
			}},
			wantErr: "duplicate column",
		},
		{
			name: "ordinal gap",
			table: Table{Name: "users", Columns: []Column{
				{Name: "id", OrdinalPos: 1},
				{Name: "email", OrdinalPos: 3},
			}},
			wantErr: "ordinals",
		},
		{
			name: "ordinal not starting at 1",
			table: Table{Name: "users", Columns: []Column{
				{Name: "id", OrdinalPos: 2},
				{Name: "email", OrdinalPos: 3},
			}},
			wantErr: "ordinals",
		},
		{
			name: "duplicate index name",
			table: Table{Name: "users",
				Columns: []Column{{Name: "id", OrdinalPos: 1}},
				Indexes: []Index{
					{Name: "idx_a", Columns: []string{"id"}},
					{Name: "IDX_A", Columns: []string{"id"}},
				}},
			wantErr: "duplicate index",
		},
		{
			name: "duplicate fk name",
			table: Table{Name: "users",
				Columns: []Column{{Name: "id", OrdinalPos: 1}},
				ForeignKeys: []ForeignKey{
					{Name: "fk_x", Columns: []string{"id"}, RefTable: "a", RefColumns: []string{"id"}},
					{Name: "fk_x", Columns: []string{"id"}, RefTable: "b", RefColumns: []string{"id"}},
				}},
			wantErr: "duplicate foreign key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTable(tt.table)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateTable() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("validateTable() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateTable() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildSnapshotExcludesMalformedTable(t *testing.T) {
	good := Table{Name: "accounts", Columns: []Column{{Name: "id", OrdinalPos: 1}}}
	bad := Table{Name: "broken", Columns: []Column{
		{Name: "id", OrdinalPos: 1},
		{Name: "id", OrdinalPos: 2},
	}}

	snap, excluded := buildSnapshot("prod", []Table{bad, good})

	if len(snap.Tables) != 1 || snap.Tables[0].Name != "accounts" {
		t.Fatalf("snapshot should keep only the valid table, got %+v", snap.Tables)
	}
	if len(excluded) != 1 || excluded[0].Table != "broken" {
		t.Fatalf("excluded = %+v, want one entry for broken", excluded)
	}
}

func TestColumnEqualIgnoresOrdinal(t *testing.T) {
	a := Column{Name: "email", OrdinalPos: 2, ColumnType: "varchar(150)", Nullable: true}
	b := Column{Name: "email", OrdinalPos: 5, ColumnType: "varchar(150)", Nullable: true}
	if !columnEqual(a, b) {
		t.Error("columns differing only in ordinal position should be equal")
	}

	b.ColumnType = "varchar(200)"
	if columnEqual(a, b) {
		t.Error("columns with different types should not be equal")
	}
}

func TestColumnEqualDefaults(t *testing.T) {
	tests := []struct {
		name string
		a, b *string
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, strPtr("0"), false},
		{"same value", strPtr("0"), strPtr("0"), true},
		{"different value", strPtr("0"), strPtr("1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Column{Name: "c", ColumnType: "int(11)", Default: tt.a}
			b := Column{Name: "c", ColumnType: "int(11)", Default: tt.b}
			if got := columnEqual(a, b); got != tt.want {
				t.Errorf("columnEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIndexAndForeignKeyEqual(t *testing.T) {
	idx := Index{Name: "idx_email", Unique: true, Columns: []string{"email"}}
	same := Index{Name: "IDX_EMAIL", Unique: true, Columns: []string{"EMAIL"}}
	if !indexEqual(idx, same) {
		t.Error("index comparison should be case-insensitive on names and columns")
	}
	if indexEqual(idx, Index{Name: "idx_email", Unique: false, Columns: []string{"email"}}) {
		t.Error("unique flag mismatch should not be equal")
	}

	fk := ForeignKey{Name: "fk_user", Columns: []string{"user_id"}, RefTable: "users", RefColumns: []string{"id"}, OnDelete: "CASCADE", OnUpdate: "RESTRICT"}
	same2 := fk
	same2.OnDelete = "cascade"
	if !foreignKeyEqual(fk, same2) {
		t.Error("referential actions should compare case-insensitively")
	}
	diff := fk
	diff.RefTable = "customers"
	if foreignKeyEqual(fk, diff) {
		t.Error("different referenced table should not be equal")
	}
}

func TestTableLookupsAreCaseInsensitive(t *testing.T) {
	tbl := Table{Name: "Users", Columns: []Column{{Name: "Email", OrdinalPos: 1}}}
	snap, _ := buildSnapshot("db", []Table{tbl})

	if _, ok := snap.table("users"); !ok {
		t.Error("snapshot.table should match case-insensitively")
	}
	if _, ok := tbl.column("email"); !ok {
		t.Error("table.column should match case-insensitively")
	}
}
