package main

import "testing"

func fkTo(name, col, refTable string) ForeignKey {
	return ForeignKey{Name: name, Columns: []string{col}, RefTable: refTable, RefColumns: []string{"id"}}
}

func tableNames(tables []Table) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name
	}
	return out
}

func indexOf(names []string, want string) int {
	for i, n := range names {
		if n == want {
			return i
		}
	}
	return -1
}

func TestOrderNewTablesDependencyFirst(t *testing.T) {
	orders := simpleTable("orders", Column{Name: "id", OrdinalPos: 1}, Column{Name: "customer_id", OrdinalPos: 2})
	orders.ForeignKeys = []ForeignKey{fkTo("fk_orders_customer", "customer_id", "customers")}
	customers := simpleTable("customers", Column{Name: "id", OrdinalPos: 1})

	ordered, deferred := orderNewTables([]Table{orders, customers})

	names := tableNames(ordered)
	if indexOf(names, "customers") > indexOf(names, "orders") {
		t.Errorf("customers must be created before orders, got %v", names)
	}
	if len(deferred) != 0 {
		t.Errorf("acyclic graph must defer nothing, got %+v", deferred)
	}
}

func TestOrderNewTablesAlphabeticalTieBreak(t *testing.T) {
	ordered, _ := orderNewTables([]Table{
		simpleTable("zeta", Column{Name: "id", OrdinalPos: 1}),
		simpleTable("alpha", Column{Name: "id", OrdinalPos: 1}),
		simpleTable("mid", Column{Name: "id", OrdinalPos: 1}),
	})
	want := []string{"alpha", "mid", "zeta"}
	got := tableNames(ordered)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("independent tables must order alphabetically, got %v", got)
		}
	}
}

func TestOrderNewTablesSelfReference(t *testing.T) {
	emp := simpleTable("employees", Column{Name: "id", OrdinalPos: 1}, Column{Name: "manager_id", OrdinalPos: 2})
	emp.ForeignKeys = []ForeignKey{fkTo("fk_manager", "manager_id", "employees")}

	ordered, deferred := orderNewTables([]Table{emp})

	if len(ordered) != 1 {
		t.Fatalf("self-referencing table must still be ordered, got %d tables", len(ordered))
	}
	if len(deferred) != 1 || deferred[0].FK.Name != "fk_manager" {
		t.Fatalf("self-referencing FK must be deferred, got %+v", deferred)
	}
}

func TestOrderNewTablesMutualCycle(t *testing.T) {
	a := simpleTable("a", Column{Name: "id", OrdinalPos: 1}, Column{Name: "b_id", OrdinalPos: 2})
	a.ForeignKeys = []ForeignKey{fkTo("fk_a_b", "b_id", "b")}
	b := simpleTable("b", Column{Name: "id", OrdinalPos: 1}, Column{Name: "a_id", OrdinalPos: 2})
	b.ForeignKeys = []ForeignKey{fkTo("fk_b_a", "a_id", "a")}

	ordered, deferred := orderNewTables([]Table{a, b})

	if len(ordered) != 2 {
		t.Fatalf("cycle must not drop tables, got %d", len(ordered))
	}
	if len(deferred) != 2 {
		t.Fatalf("both FKs of a mutual cycle must be deferred, got %+v", deferred)
	}
	// Deterministic: sorted by table then FK name.
	if deferred[0].Table != "a" || deferred[1].Table != "b" {
		t.Errorf("deferred FK order = %+v, want a then b", deferred)
	}
}

func TestOrderNewTablesDownstreamOfCycleKeepsFKInline(t *testing.T) {
	a := simpleTable("a", Column{Name: "id", OrdinalPos: 1}, Column{Name: "b_id", OrdinalPos: 2})
	a.ForeignKeys = []ForeignKey{fkTo("fk_a_b", "b_id", "b")}
	b := simpleTable("b", Column{Name: "id", OrdinalPos: 1}, Column{Name: "a_id", OrdinalPos: 2})
	b.ForeignKeys = []ForeignKey{fkTo("fk_b_a", "a_id", "a")}
	// c depends on a but sits on no cycle itself.
	c := simpleTable("c", Column{Name: "id", OrdinalPos: 1}, Column{Name: "a_id", OrdinalPos: 2})
	c.ForeignKeys = []ForeignKey{fkTo("fk_c_a", "a_id", "a")}

	ordered, deferred := orderNewTables([]Table{c, b, a})

	if len(ordered) != 3 {
		t.Fatalf("got %d ordered tables, want 3", len(ordered))
	}
	for _, d := range deferred {
		if d.Table == "c" {
			t.Errorf("table c is not on a cycle; its FK must stay inline, deferred = %+v", deferred)
		}
	}
	names := tableNames(ordered)
	if indexOf(names, "c") < indexOf(names, "a") {
		t.Errorf("c depends on a and must come after it, got %v", names)
	}
}

func TestOrderNewTablesExternalReferenceIgnored(t *testing.T) {
	// FK to a table that already exists in the target does not constrain order.
	orders := simpleTable("orders", Column{Name: "id", OrdinalPos: 1}, Column{Name: "user_id", OrdinalPos: 2})
	orders.ForeignKeys = []ForeignKey{fkTo("fk_orders_user", "user_id", "users")}

	ordered, deferred := orderNewTables([]Table{orders})
	if len(ordered) != 1 || len(deferred) != 0 {
		t.Fatalf("external reference must not block or defer, ordered=%d deferred=%d", len(ordered), len(deferred))
	}
}
