/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package frames

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// None marks an empty selection. Catalog ids are always positive.
const None = 0

// State is the persisted part of a session. Field names match the
// browser storage format used by earlier versions of the game, so old
// snapshots load unchanged.
type State struct {
	UserName      string `json:"userName"`
	Score         int    `json:"score"`
	Streak        int    `json:"streak"`
	SelectedTitle int    `json:"selectedMovie,omitempty"`
	SelectedFrame int    `json:"selectedFrame,omitempty"`
	Matched       []int  `json:"matchedPairs"`
}

var (
	ErrNoSnapshot        = errors.New("no snapshot stored")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// Equal reports whether two states hold the same values.
func (s State) Equal(o State) bool {
	return s.UserName == o.UserName &&
		s.Score == o.Score &&
		s.Streak == o.Streak &&
		s.SelectedTitle == o.SelectedTitle &&
		s.SelectedFrame == o.SelectedFrame &&
		slices.Equal(s.Matched, o.Matched)
}

func (s State) clone() State {
	s.Matched = slices.Clone(s.Matched)
	if s.Matched == nil {
		s.Matched = []int{}
	}
	return s
}

// sanitize drops anything a snapshot cannot legally contain for catalog c.
func (s State) sanitize(c *Catalog) State {
	out := State{
		UserName: s.UserName,
		Score:    max(0, s.Score),
		Streak:   max(0, s.Streak),
		Matched:  make([]int, 0, len(s.Matched)),
	}

	seen := make(map[int]bool, len(s.Matched))
	for _, id := range s.Matched {
		if !c.Contains(id) || seen[id] {
			continue
		}
		seen[id] = true
		out.Matched = append(out.Matched, id)
	}

	if c.Contains(s.SelectedTitle) && !seen[s.SelectedTitle] {
		out.SelectedTitle = s.SelectedTitle
	}
	if c.Contains(s.SelectedFrame) && !seen[s.SelectedFrame] {
		out.SelectedFrame = s.SelectedFrame
	}

	// Both sides filled would mean an evaluation was skipped.
	if out.SelectedTitle != None && out.SelectedFrame != None {
		out.SelectedTitle, out.SelectedFrame = None, None
	}

	return out
}

func encodeState(s State) ([]byte, error) {
	return json.Marshal(s.clone())
}

func decodeState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if s.Matched == nil {
		s.Matched = []int{}
	}
	return s, nil
}
