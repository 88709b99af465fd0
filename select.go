package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Action is the user's chosen synchronization action for one table.
type Action int

const (
	ActionSkip Action = iota
	ActionStructureOnly
	ActionStructureAndData
)

func (a Action) String() string {
	switch a {
	case ActionStructureOnly:
		return "structure only"
	case ActionStructureAndData:
		return "structure + data"
	default:
		return "skip"
	}
}

// Decision records the chosen action for one table that reached the
// interactive phase.
type Decision struct {
	Table  string
	Action Action
}

// errSelectionAborted is returned when the user quits mid-selection.
// All in-progress decisions are discarded; nothing has been generated yet.
var errSelectionAborted = errors.New("selection aborted by user")

// inputProvider supplies one raw action token per prompt. The terminal
// implementation blocks on stdin; tests substitute a scripted provider.
type inputProvider interface {
	ReadAction(table string) (string, error)
}

// presenter renders diff summaries and details. The selection loop never
// prints directly, so any UI (text, JSON, web) can be plugged in.
type presenter interface {
	TableSummary(d TableDiff)
	TableDetail(d TableDiff)
	DecisionRecorded(table string, action Action)
	InvalidInput(input string)
}

// runSelection drives the per-table decision loop over the selectable diffs,
// one table at a time, and returns exactly one Decision per table in
// traversal order.
//
// Accepted inputs at each prompt: "1"/"structure-only", "2"/
// "structure-and-data", "s"/"skip", "d"/"show-details" (re-renders the full
// diff without consuming a decision), "q"/"quit" (aborts, discarding all
// decisions). Anything else re-prompts; a typo is never treated as a skip.
func runSelection(tables []TableDiff, p presenter, in inputProvider) ([]Decision, error) {
	decisions := make([]Decision, 0, len(tables))
	for _, d := range tables {
		p.TableSummary(d)
		for {
			raw, err := in.ReadAction(d.Name)
			if err != nil {
				return nil, fmt.Errorf("read selection input: %w", err)
			}

			switch strings.ToLower(strings.TrimSpace(raw)) {
			case "1", "structure-only":
				decisions = append(decisions, Decision{Table: d.Name, Action: ActionStructureOnly})
			case "2", "structure-and-data":
				decisions = append(decisions, Decision{Table: d.Name, Action: ActionStructureAndData})
			case "s", "skip":
				decisions = append(decisions, Decision{Table: d.Name, Action: ActionSkip})
			case "d", "show-details":
				p.TableDetail(d)
				continue
			case "q", "quit":
				return nil, errSelectionAborted
			default:
				p.InvalidInput(raw)
				continue
			}

			p.DecisionRecorded(d.Name, decisions[len(decisions)-1].Action)
			break
		}
	}
	return decisions, nil
}

// decisionsByTable indexes decisions by folded table name.
func decisionsByTable(decisions []Decision) map[string]Action {
	m := make(map[string]Action, len(decisions))
	for _, d := range decisions {
		m[foldName(d.Table)] = d.Action
	}
	return m
}

// stdinInput reads action tokens from an interactive stream.
type stdinInput struct {
	r *bufio.Reader
	w io.Writer
}

func newStdinInput(r io.Reader, w io.Writer) *stdinInput {
	return &stdinInput{r: bufio.NewReader(r), w: w}
}

func (s *stdinInput) ReadAction(table string) (string, error) {
	fmt.Fprintf(s.w, "table %q - sync? (1=structure only, 2=structure+data, s=skip, d=details, q=quit): ", table)
	line, err := s.r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// scriptedInput replays a fixed sequence of tokens; used by tests and by
// non-interactive runs driven from a file.
type scriptedInput struct {
	tokens []string
	pos    int
}

func (s *scriptedInput) ReadAction(string) (string, error) {
	if s.pos >= len(s.tokens) {
		return "", io.EOF
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}
