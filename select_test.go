package main

import (
	"errors"
	"testing"
)

// recordingPresenter counts calls; the selection loop's output contract is
// "summary once per table, detail on demand, invalid on bad input".
type recordingPresenter struct {
	summaries []string
	details   []string
	recorded  []Decision
	invalid   []string
}

func (p *recordingPresenter) TableSummary(d TableDiff) { p.summaries = append(p.summaries, d.Name) }
func (p *recordingPresenter) TableDetail(d TableDiff)  { p.details = append(p.details, d.Name) }
func (p *recordingPresenter) DecisionRecorded(table string, action Action) {
	p.recorded = append(p.recorded, Decision{Table: table, Action: action})
}
func (p *recordingPresenter) InvalidInput(input string) { p.invalid = append(p.invalid, input) }

func selectionTables(names ...string) []TableDiff {
	out := make([]TableDiff, len(names))
	for i, n := range names {
		out[i] = TableDiff{Name: n, Kind: DiffModified}
	}
	return out
}

func TestRunSelectionRecordsDecisionsInOrder(t *testing.T) {
	p := &recordingPresenter{}
	in := &scriptedInput{tokens: []string{"1", "2", "s"}}

	decisions, err := runSelection(selectionTables("accounts", "orders", "users"), p, in)
	if err != nil {
		t.Fatalf("runSelection() error: %v", err)
	}

	want := []Decision{
		{Table: "accounts", Action: ActionStructureOnly},
		{Table: "orders", Action: ActionStructureAndData},
		{Table: "users", Action: ActionSkip},
	}
	if len(decisions) != len(want) {
		t.Fatalf("got %d decisions, want %d", len(decisions), len(want))
	}
	for i := range want {
		if decisions[i] != want[i] {
			t.Errorf("decisions[%d] = %+v, want %+v", i, decisions[i], want[i])
		}
	}
	if len(p.summaries) != 3 {
		t.Errorf("TableSummary called %d times, want 3", len(p.summaries))
	}
}

func TestRunSelectionWordTokens(t *testing.T) {
	p := &recordingPresenter{}
	in := &scriptedInput{tokens: []string{"structure-only", "STRUCTURE-AND-DATA", " skip "}}

	decisions, err := runSelection(selectionTables("a", "b", "c"), p, in)
	if err != nil {
		t.Fatalf("runSelection() error: %v", err)
	}
	got := []Action{decisions[0].Action, decisions[1].Action, decisions[2].Action}
	want := []Action{ActionStructureOnly, ActionStructureAndData, ActionSkip}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("decision %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRunSelectionDetailsThenDecision(t *testing.T) {
	p := &recordingPresenter{}
	in := &scriptedInput{tokens: []string{"d", "d", "1"}}

	decisions, err := runSelection(selectionTables("users"), p, in)
	if err != nil {
		t.Fatalf("runSelection() error: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Action != ActionStructureOnly {
		t.Fatalf("decisions = %+v, want one structure-only", decisions)
	}
	if len(p.details) != 2 {
		t.Errorf("TableDetail called %d times, want 2", len(p.details))
	}
	if len(p.summaries) != 1 {
		t.Errorf("TableSummary called %d times, want 1 (details must not re-enter the table)", len(p.summaries))
	}
}

func TestRunSelectionInvalidInputReprompts(t *testing.T) {
	p := &recordingPresenter{}
	in := &scriptedInput{tokens: []string{"x", "", "3", "s"}}

	decisions, err := runSelection(selectionTables("users"), p, in)
	if err != nil {
		t.Fatalf("runSelection() error: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Action != ActionSkip {
		t.Fatalf("decisions = %+v, want one explicit skip", decisions)
	}
	if len(p.invalid) != 3 {
		t.Errorf("InvalidInput called %d times, want 3", len(p.invalid))
	}
}

func TestRunSelectionQuitDiscardsEverything(t *testing.T) {
	p := &recordingPresenter{}
	in := &scriptedInput{tokens: []string{"1", "2", "q"}}

	decisions, err := runSelection(selectionTables("a", "b", "c"), p, in)
	if !errors.Is(err, errSelectionAborted) {
		t.Fatalf("err = %v, want errSelectionAborted", err)
	}
	if decisions != nil {
		t.Errorf("decisions = %+v, want nil after abort", decisions)
	}
}

func TestRunSelectionInputExhaustion(t *testing.T) {
	p := &recordingPresenter{}
	in := &scriptedInput{tokens: []string{"1"}}

	_, err := runSelection(selectionTables("a", "b"), p, in)
	if err == nil {
		t.Fatal("expected an error when input runs out mid-selection")
	}
}

func TestDecisionsByTable(t *testing.T) {
	m := decisionsByTable([]Decision{
		{Table: "Users", Action: ActionStructureAndData},
		{Table: "orders", Action: ActionSkip},
	})
	if got, ok := m[foldName("USERS")]; !ok || got != ActionStructureAndData {
		t.Errorf("lookup by folded name failed, got %v ok=%v", got, ok)
	}
}
