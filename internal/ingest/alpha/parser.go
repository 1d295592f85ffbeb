// Package alpha imports Alpha Progression CSV exports.
//
// An export is a sequence of sessions. Each session starts with a
// name;date;duration header and lists numbered exercises, each followed by
// a #;KG;REPS;RIR table of working sets. Warmups are described inline in the
// exercise header's second field.
package alpha

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	fieldSep   = " · "
	warmupSep  = "<br>"
	dateLayout = "2006-01-02 15:04"
)

// Session is one workout in an export.
type Session struct {
	Name      string
	Start     time.Time
	Duration  string
	Exercises []Exercise
}

// Exercise is one numbered block inside a session.
type Exercise struct {
	Position   int
	Name       string
	Equipment  string
	TargetReps int
	Modifiers  []string
	Sets       []Set
}

// Set is a single warmup or working set.
type Set struct {
	Number         int
	Weight         float64
	BodyweightPlus bool
	Reps           int
	// RIR is reps in reserve; nil when the export did not track it.
	RIR    *float64
	Warmup bool
}

// WorkingSets returns the exercise's non-warmup sets in export order.
func (e Exercise) WorkingSets() []Set {
	var out []Set
	for _, s := range e.Sets {
		if !s.Warmup {
			out = append(out, s)
		}
	}
	return out
}

// RPE converts reps in reserve to an effort rating on the 0..10 scale.
func (s Set) RPE() *float64 {
	if s.RIR == nil {
		return nil
	}
	rpe := 10 - *s.RIR
	if rpe < 0 {
		rpe = 0
	}
	if rpe > 10 {
		rpe = 10
	}
	return &rpe
}

// Parse reads an export and returns its sessions in file order.
func Parse(r io.Reader) ([]Session, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	p := &parser{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if err := p.consume(record); err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return p.finish(), nil
}

type parser struct {
	sessions []Session
	session  *Session
	exercise *Exercise
}

func (p *parser) consume(rec []string) error {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}

	switch {
	case isColumnHeader(rec):
		return nil
	case len(rec) == 3 && strings.HasSuffix(rec[1], " h"):
		start, err := time.Parse(dateLayout, strings.TrimSuffix(rec[1], " h"))
		if err != nil {
			return fmt.Errorf("parsing session date %q: %w", rec[1], err)
		}
		p.closeSession()
		p.session = &Session{Name: rec[0], Start: start, Duration: rec[2]}
		return nil
	case len(rec) == 4:
		if p.exercise == nil {
			return fmt.Errorf("set row without exercise: %q", strings.Join(rec, ";"))
		}
		set, err := parseSetRow(rec)
		if err != nil {
			return err
		}
		p.exercise.Sets = append(p.exercise.Sets, set)
		return nil
	case len(rec) <= 2:
		ex, ok := parseExerciseHeader(rec[0])
		if !ok {
			// notes and other free text
			return nil
		}
		if p.session == nil {
			return fmt.Errorf("exercise without session: %q", rec[0])
		}
		if len(rec) == 2 {
			ex.Sets = parseWarmups(rec[1])
		}
		p.closeExercise()
		p.exercise = &ex
		return nil
	}
	return nil
}

func (p *parser) closeExercise() {
	if p.exercise != nil && p.session != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parser) closeSession() {
	p.closeExercise()
	if p.session != nil {
		p.sessions = append(p.sessions, *p.session)
	}
	p.session = nil
}

func (p *parser) finish() []Session {
	p.closeSession()
	return p.sessions
}

func isColumnHeader(rec []string) bool {
	return len(rec) == 4 && rec[0] == "#" && strings.EqualFold(rec[1], "KG")
}

// parseExerciseHeader splits "1. Hack Squats · Machine · 8 reps · 2 dropsets".
func parseExerciseHeader(s string) (Exercise, bool) {
	num, rest, ok := strings.Cut(s, ". ")
	if !ok {
		return Exercise{}, false
	}
	pos, err := strconv.Atoi(num)
	if err != nil {
		return Exercise{}, false
	}

	parts := strings.Split(rest, fieldSep)
	repsAt := -1
	target := 0
	for i := 1; i < len(parts); i++ {
		if n, ok := strings.CutSuffix(parts[i], " reps"); ok {
			if v, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				repsAt, target = i, v
				break
			}
		}
	}
	if repsAt < 0 {
		return Exercise{}, false
	}

	ex := Exercise{
		Position:   pos,
		Name:       strings.TrimSpace(parts[0]),
		Equipment:  strings.TrimSpace(strings.Join(parts[1:repsAt], fieldSep)),
		TargetReps: target,
	}
	for _, m := range parts[repsAt+1:] {
		ex.Modifiers = append(ex.Modifiers, strings.TrimSpace(m))
	}
	return ex, ex.Name != ""
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps".
func parseWarmups(s string) []Set {
	var sets []Set
	for _, chunk := range strings.Split(s, warmupSep) {
		parts := strings.Split(strings.TrimSpace(chunk), fieldSep)
		if len(parts) != 3 || !strings.HasPrefix(parts[0], "WU") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimPrefix(parts[0], "WU"))
		if err != nil {
			continue
		}
		weight, plus, err := parseWeight(strings.TrimSuffix(parts[1], " kg"))
		if err != nil {
			continue
		}
		reps, err := strconv.Atoi(strings.TrimSuffix(parts[2], " reps"))
		if err != nil {
			continue
		}
		sets = append(sets, Set{Number: num, Weight: weight, BodyweightPlus: plus, Reps: reps, Warmup: true})
	}
	return sets
}

// parseSetRow reads "#;KG;REPS;RIR" data such as "2;102,5;6;0,5".
func parseSetRow(rec []string) (Set, error) {
	num, err := strconv.Atoi(rec[0])
	if err != nil {
		return Set{}, fmt.Errorf("set number %q: %w", rec[0], err)
	}
	weight, plus, err := parseWeight(rec[1])
	if err != nil {
		return Set{}, fmt.Errorf("set %d weight: %w", num, err)
	}
	reps, err := strconv.Atoi(rec[2])
	if err != nil {
		return Set{}, fmt.Errorf("set %d reps %q: %w", num, rec[2], err)
	}
	return Set{Number: num, Weight: weight, BodyweightPlus: plus, Reps: reps, RIR: parseRIR(rec[3])}, nil
}

// parseWeight handles decimal commas and the "+N" bodyweight-plus notation.
func parseWeight(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	plus := strings.HasPrefix(s, "+")
	w, err := parseDecimal(strings.TrimPrefix(s, "+"))
	return w, plus, err
}

// parseRIR returns nil for untracked values ("", "-", "-1").
func parseRIR(s string) *float64 {
	v, err := parseDecimal(s)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
