/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package frames implements the rules of the frame matching game: a player
// pairs movie titles with still frames, scoring points for correct pairs
// and building streaks for consecutive ones.
//
// A Session is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
package frames

import (
	"errors"
	"math"
	"slices"
	"strings"
)

// Side identifies which half of a pair a selection belongs to.
type Side int

const (
	TitleSide Side = iota + 1
	FrameSide
)

func (s Side) String() string {
	switch s {
	case TitleSide:
		return "title"
	case FrameSide:
		return "frame"
	default:
		return "unknown"
	}
}

// ParseSide accepts "title" or "frame".
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "title":
		return TitleSide, true
	case "frame":
		return FrameSide, true
	}
	return 0, false
}

const (
	basePoints   = 5
	streakPoints = 7
	hotPoints    = 9

	streakTier = 5
	hotTier    = 10

	missPenalty = 2
)

// Points returns the award for a correct match that brings the streak to
// streak.
func Points(streak int) int {
	switch {
	case streak >= hotTier:
		return hotPoints
	case streak >= streakTier:
		return streakPoints
	default:
		return basePoints
	}
}

// Event is emitted to subscribers after state changes.
type Event interface {
	isEvent()
}

// MatchResult describes one evaluated attempt. Points is the score delta
// actually applied, so it is zero or negative for misses.
type MatchResult struct {
	Correct bool
	ItemID  int // matched item, None for misses
	TitleID int
	FrameID int
	Points  int
	Score   int
	Streak  int
}

// SessionComplete fires once, when the last catalog item is matched.
type SessionComplete struct {
	FinalScore int
}

func (MatchResult) isEvent()     {}
func (SessionComplete) isEvent() {}

type Option func(*Session)

// WithStore sets where snapshots are loaded from and saved to.
func WithStore(st Store) Option {
	return func(s *Session) {
		if st != nil {
			s.store = st
		}
	}
}

// WithErrorHandler receives persistence failures, which are otherwise ignored.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Session) {
		s.onError = fn
	}
}

// Session holds the state of one game and applies its rules.
type Session struct {
	catalog *Catalog
	store   Store
	onError func(error)

	state   State
	matched map[int]bool

	lastResult   *MatchResult
	lastComplete *SessionComplete

	listeners []func(Event)
}

// New creates a session for catalog, restoring the store's snapshot if
// one exists. A missing or unreadable snapshot starts a fresh game.
func New(catalog *Catalog, opts ...Option) *Session {
	s := &Session{
		catalog: catalog,
		store:   Discard,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.clear()

	st, err := s.store.Load()
	switch {
	case err == nil:
		s.restore(st)
	case !errors.Is(err, ErrNoSnapshot):
		s.report(err)
	}

	return s
}

func (s *Session) clear() {
	s.state = State{Matched: []int{}}
	s.matched = make(map[int]bool)
	s.lastResult = nil
	s.lastComplete = nil
}

func (s *Session) restore(st State) {
	s.state = st.sanitize(s.catalog)
	for _, id := range s.state.Matched {
		s.matched[id] = true
	}
}

func (s *Session) report(err error) {
	if err != nil && s.onError != nil {
		s.onError(err)
	}
}

func (s *Session) save() {
	s.report(s.store.Save(s.state.clone()))
}

func (s *Session) emit(e Event) {
	for _, fn := range s.listeners {
		fn(e)
	}
}

// Subscribe registers fn to be called, in registration order, for every
// event the session emits.
func (s *Session) Subscribe(fn func(Event)) {
	s.listeners = append(s.listeners, fn)
}

// Select records a pick on one side. It reports whether the pick was
// accepted; ids that are unknown or already matched are ignored. When the
// pick completes a pair, the pair is evaluated before Select returns.
func (s *Session) Select(side Side, id int) bool {
	if !s.selectable(id) {
		return false
	}

	switch side {
	case TitleSide:
		s.state.SelectedTitle = id
	case FrameSide:
		s.state.SelectedFrame = id
	default:
		return false
	}

	if s.state.SelectedTitle != None && s.state.SelectedFrame != None {
		s.evaluate()
	}

	return true
}

// Drop is a title dragged onto a frame: both picks are replaced and the
// pair is evaluated at once. Nothing changes if either id is not selectable.
func (s *Session) Drop(titleID, frameID int) bool {
	if !s.selectable(titleID) || !s.selectable(frameID) {
		return false
	}

	s.state.SelectedTitle, s.state.SelectedFrame = titleID, frameID
	s.evaluate()

	return true
}

func (s *Session) selectable(id int) bool {
	return s.catalog.Contains(id) && !s.matched[id]
}

func (s *Session) evaluate() {
	titleID, frameID := s.state.SelectedTitle, s.state.SelectedFrame
	s.state.SelectedTitle, s.state.SelectedFrame = None, None

	var complete *SessionComplete

	res := MatchResult{
		TitleID: titleID,
		FrameID: frameID,
	}

	if titleID == frameID {
		s.state.Streak++
		points := Points(s.state.Streak)
		s.state.Score += points
		s.state.Matched = append(s.state.Matched, titleID)
		s.matched[titleID] = true

		res.Correct = true
		res.ItemID = titleID
		res.Points = points

		if len(s.matched) == s.catalog.Len() {
			complete = &SessionComplete{FinalScore: s.state.Score}
		}
	} else {
		before := s.state.Score
		s.state.Streak = 0
		s.state.Score = max(0, s.state.Score-missPenalty)

		res.Points = s.state.Score - before
	}

	res.Score = s.state.Score
	res.Streak = s.state.Streak

	s.lastResult = &res
	if complete != nil {
		s.lastComplete = complete
	}

	s.save()

	s.emit(res)
	if complete != nil {
		s.emit(*complete)
	}
}

// SetUserName stores a trimmed, non-empty name. Blank input is ignored.
func (s *Session) SetUserName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	s.state.UserName = name
	s.save()

	return true
}

// Reset returns the session to an empty game and purges its snapshot.
func (s *Session) Reset() {
	s.clear()
	s.report(s.store.Purge())
}

func (s *Session) Catalog() *Catalog { return s.catalog }
func (s *Session) UserName() string  { return s.state.UserName }
func (s *Session) Score() int        { return s.state.Score }
func (s *Session) Streak() int       { return s.state.Streak }

// Matched returns matched ids in the order they were matched.
func (s *Session) Matched() []int {
	return slices.Clone(s.state.Matched)
}

func (s *Session) IsMatched(id int) bool {
	return s.matched[id]
}

// Selected returns the pending picks, None for an empty side.
func (s *Session) Selected() (title, frame int) {
	return s.state.SelectedTitle, s.state.SelectedFrame
}

// Remaining returns unmatched items in catalog order.
func (s *Session) Remaining() []Item {
	out := make([]Item, 0, s.catalog.Len()-len(s.matched))
	for _, it := range s.catalog.items {
		if !s.matched[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// Progress is the matched share of the catalog as a rounded percentage.
func (s *Session) Progress() int {
	return int(math.Round(float64(len(s.matched)) / float64(s.catalog.Len()) * 100))
}

func (s *Session) Complete() bool {
	return len(s.matched) == s.catalog.Len()
}

// LastResult returns the most recent evaluation, if any since the session
// was created or reset.
func (s *Session) LastResult() (MatchResult, bool) {
	if s.lastResult == nil {
		return MatchResult{}, false
	}
	return *s.lastResult, true
}

func (s *Session) LastComplete() (SessionComplete, bool) {
	if s.lastComplete == nil {
		return SessionComplete{}, false
	}
	return *s.lastComplete, true
}

// Snapshot returns a copy of the persisted state.
func (s *Session) Snapshot() State {
	return s.state.clone()
}
