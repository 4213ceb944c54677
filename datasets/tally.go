package datasets

import (
	"fmt"
	"sync"
)

// Tally is used to count weighted votes of input features for output classes.
// The class with the most votes for a feature is its most likely output.
type Tally struct {
	mut sync.Mutex

	rows    int
	classes int

	// votes is a dense rows x classes matrix, totals holds each row sum
	votes  []float64
	totals []float64
}

// NewTally creates an empty tally for rows input features and classes outputs.
func NewTally(rows, classes int) *Tally {
	return &Tally{
		rows:    rows,
		classes: classes,
		votes:   make([]float64, rows*classes),
		totals:  make([]float64, rows),
	}
}

// Rows is the number of input features.
func (t *Tally) Rows() int {
	return t.rows
}

// Classes is the number of output classes.
func (t *Tally) Classes() int {
	return t.classes
}

// AddToMapping adds a vote of the given weight mapping feature to output.
func (t *Tally) AddToMapping(feature, output int, weight float64) {
	t.mut.Lock()
	t.votes[feature*t.classes+output] += weight
	t.totals[feature] += weight
	t.mut.Unlock()
}

// Votes reads the votes mapping feature to output.
func (t *Tally) Votes(feature, output int) float64 {
	return t.votes[feature*t.classes+output]
}

// Total reads the sum of votes of feature.
func (t *Tally) Total(feature int) float64 {
	return t.totals[feature]
}

// Row returns the votes of feature. The slice must not be modified and must
// not be read while votes are being merged.
func (t *Tally) Row(feature int) []float64 {
	return t.votes[feature*t.classes : (feature+1)*t.classes]
}

// Len counts the features which have received any vote.
func (t *Tally) Len() (o int) {
	t.mut.Lock()
	for _, v := range t.totals {
		if v != 0 {
			o++
		}
	}
	t.mut.Unlock()
	return
}

// Dump copies out the vote matrix.
func (t *Tally) Dump() []float64 {
	t.mut.Lock()
	defer t.mut.Unlock()
	return append([]float64(nil), t.votes...)
}

// Restore replaces the vote matrix with votes, recomputing the row totals.
func (t *Tally) Restore(votes []float64) error {
	if len(votes) != t.rows*t.classes {
		return fmt.Errorf("tally has %d x %d votes, restoring %d", t.rows, t.classes, len(votes))
	}
	t.mut.Lock()
	defer t.mut.Unlock()
	copy(t.votes, votes)
	for r := 0; r < t.rows; r++ {
		var sum float64
		for _, v := range t.votes[r*t.classes : (r+1)*t.classes] {
			sum += v
		}
		t.totals[r] = sum
	}
	return nil
}

// Pending collects votes of one worker without locking. It is merged into the
// tally it was created from.
type Pending struct {
	classes int
	rows    map[int][]float64
}

// NewPending creates an empty pending set of votes for t.
func (t *Tally) NewPending() *Pending {
	return &Pending{
		classes: t.classes,
		rows:    make(map[int][]float64),
	}
}

// AddToMapping adds a vote of the given weight mapping feature to output.
func (p *Pending) AddToMapping(feature, output int, weight float64) {
	row := p.rows[feature]
	if row == nil {
		row = make([]float64, p.classes)
		p.rows[feature] = row
	}
	row[output] += weight
}

// Len is the number of features with pending votes.
func (p *Pending) Len() int {
	return len(p.rows)
}

// Merge adds all pending votes to the tally.
func (t *Tally) Merge(p *Pending) {
	t.mut.Lock()
	defer t.mut.Unlock()
	for feature, row := range p.rows {
		dst := t.votes[feature*t.classes : (feature+1)*t.classes]
		for c, v := range row {
			dst[c] += v
			t.totals[feature] += v
		}
	}
}
