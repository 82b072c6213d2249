// Framematch web game
//
// Each game ID is one saved game. The page shows the movie titles and a grid
// of still frames; the player pairs them by clicking one of each, or by
// dragging a title onto a frame. All rules live in games/frames; this file
// only moves gestures in and state out.
//
// Features:
// - WebSockets per game ID: /frames/:gameid and /frames/:gameid/ws
// - Every tab open on a game ID sees the same session
// - Games are saved through the configured store and survive restarts
// - The last game ID is remembered in a cookie, so /frames resumes it
// - Idle games are unloaded from memory after a configurable timeout
// - Random 8-char game IDs via go-nanoid, with collision check against
//   loaded and saved games
// - In-browser QR button to continue the game on another device, backed
//   by go-qrcode

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/framematch/games/frames"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type    string `json:"type"`               // "select", "drop", "set_name", "reset"
	Side    string `json:"side,omitempty"`     // select: "title" or "frame"
	ID      int    `json:"id,omitempty"`       // select
	TitleID int    `json:"title_id,omitempty"` // drop
	FrameID int    `json:"frame_id,omitempty"` // drop
	Name    string `json:"name,omitempty"`     // set_name
}

// CatalogMessage is sent once on connect.
type CatalogMessage struct {
	Type  string        `json:"type"` // "catalog"
	Items []frames.Item `json:"items"`
}

// StateMessage is sent on connect and after every change.
type StateMessage struct {
	Type          string `json:"type"` // "state"
	UserName      string `json:"user_name"`
	Score         int    `json:"score"`
	Streak        int    `json:"streak"`
	Matched       []int  `json:"matched"`
	SelectedTitle int    `json:"selected_title,omitempty"`
	SelectedFrame int    `json:"selected_frame,omitempty"`
	Progress      int    `json:"progress"`
	Total         int    `json:"total"`
}

// MatchResultMessage reports one evaluated pair.
type MatchResultMessage struct {
	Type    string `json:"type"` // "match_result"
	Correct bool   `json:"correct"`
	ItemID  int    `json:"item_id,omitempty"`
	TitleID int    `json:"title_id"`
	FrameID int    `json:"frame_id"`
	Points  int    `json:"points"`
	Score   int    `json:"score"`
	Streak  int    `json:"streak"`
}

type SessionCompleteMessage struct {
	Type       string `json:"type"` // "session_complete"
	FinalScore int    `json:"final_score"`
}

type Client struct {
	id   string
	conn *websocket.Conn
	send chan any
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id      string
	session *frames.Session
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	commands chan command
	quit     chan struct{}
	once     sync.Once

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newHub(gameID string, session *frames.Session) *Hub {
	now := time.Now()
	h := &Hub{
		id:         gameID,
		session:    session,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		quit:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}

	session.Subscribe(h.onEventLocked)

	return h
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			select {
			case <-h.quit:
				close(c.send)
				_ = c.conn.Close()
				return
			default:
			}

			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			h.sendLocked(c, CatalogMessage{
				Type:  "catalog",
				Items: h.session.Catalog().Items(),
			})
			h.sendLocked(c, h.stateLocked())
			h.mu.Unlock()

			logf(cfg, "GAMES: Client %s connected to %s", c.id, h.id)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

			logf(cfg, "GAMES: Client %s left %s", c.id, h.id)

		case cmd := <-h.commands:
			h.handleCommand(cfg, cmd)

		case <-h.quit:
			return
		}
	}
}

// handleCommand applies one client message to the session. Rejected
// input changes nothing and is not answered.
func (h *Hub) handleCommand(cfg *Config, cmd command) {
	msg := cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	var changed bool

	switch msg.Type {
	case "select":
		side, ok := frames.ParseSide(msg.Side)
		if !ok {
			return
		}
		changed = h.session.Select(side, msg.ID)

	case "drop":
		changed = h.session.Drop(msg.TitleID, msg.FrameID)

	case "set_name":
		changed = h.session.SetUserName(msg.Name)
		if changed {
			logf(cfg, "GAMES: Player %q started %s", h.session.UserName(), h.id)
		}

	case "reset":
		h.session.Reset()
		changed = true
		logf(cfg, "GAMES: Game %s was restarted by client %s", h.id, cmd.client.id)
	}

	if changed {
		h.broadcastLocked(h.stateLocked())
	}
}

// onEventLocked runs inside handleCommand, so h.mu is already held.
func (h *Hub) onEventLocked(e frames.Event) {
	switch ev := e.(type) {
	case frames.MatchResult:
		h.broadcastLocked(MatchResultMessage{
			Type:    "match_result",
			Correct: ev.Correct,
			ItemID:  ev.ItemID,
			TitleID: ev.TitleID,
			FrameID: ev.FrameID,
			Points:  ev.Points,
			Score:   ev.Score,
			Streak:  ev.Streak,
		})
	case frames.SessionComplete:
		h.broadcastLocked(SessionCompleteMessage{
			Type:       "session_complete",
			FinalScore: ev.FinalScore,
		})
	}
}

func sessionState(s *frames.Session) StateMessage {
	title, frame := s.Selected()
	return StateMessage{
		Type:          "state",
		UserName:      s.UserName(),
		Score:         s.Score(),
		Streak:        s.Streak(),
		Matched:       s.Matched(),
		SelectedTitle: title,
		SelectedFrame: frame,
		Progress:      s.Progress(),
		Total:         s.Catalog().Len(),
	}
}

func (h *Hub) stateLocked() StateMessage {
	return sessionState(h.session)
}

// state is safe to call from outside the run loop.
func (h *Hub) state() StateMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.stateLocked()
}

func (h *Hub) sendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// join, leave and submit give up once the hub has been shut down.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unreg <- c:
	case <-h.quit:
	}
}

func (h *Hub) submit(cmd command) bool {
	select {
	case h.commands <- cmd:
		return true
	case <-h.quit:
		return false
	}
}

// closeAll stops the run loop and disconnects every client.
func (h *Hub) closeAll() {
	h.once.Do(func() { close(h.quit) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const gameCookieName = "framematch_game"

var errUnknownGame = errors.New("unknown game")

// GameManager holds a set of hubs keyed by game ID, so each /frames/:gameid
// is its own isolated session.
type GameManager struct {
	cfg     *Config
	catalog *frames.Catalog
	backend frames.Backend

	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	done        chan struct{}
}

func newGameManager(cfg *Config, catalog *frames.Catalog, backend frames.Backend) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		catalog:     catalog,
		backend:     backend,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
		done:        make(chan struct{}),
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(gameID string) (*Hub, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		hub.mu.Lock()
		hub.lastActive = time.Now()
		hub.mu.Unlock()

		return hub, nil
	}

	session, err := gm.openSession(gameID)
	if err != nil {
		return nil, err
	}

	hub := newHub(gameID, session)
	gm.hubs[gameID] = hub
	go hub.run(gm.cfg)

	logf(gm.cfg, "GAMES: Loaded game %s (%d/%d matched)", gameID, len(session.Matched()), gm.catalog.Len())

	return hub, nil
}

func (gm *GameManager) openSession(gameID string) (*frames.Session, error) {
	store, err := gm.backend.Slot(gameID)
	if err != nil {
		return nil, errUnknownGame
	}

	return frames.New(gm.catalog,
		frames.WithStore(store),
		frames.WithErrorHandler(func(err error) {
			errorf("GAMES: Persisting %s: %v", gameID, err)
		}),
	), nil
}

// gameState reports a game without loading it into a hub.
func (gm *GameManager) gameState(gameID string) (StateMessage, error) {
	gm.mu.Lock()
	hub, ok := gm.hubs[gameID]
	gm.mu.Unlock()
	if ok {
		return hub.state(), nil
	}

	session, err := gm.openSession(gameID)
	if err != nil {
		return StateMessage{}, err
	}

	return sessionState(session), nil
}

const gameIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var gameIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)

const maxGameIDAttempts = 16

var errNoFreeGameID = errors.New("no free game id")

// newGameID generates a random game ID that is neither loaded nor saved.
// Store read failures are returned instead of retried.
func (gm *GameManager) newGameID() (string, error) {
	for range maxGameIDAttempts {
		id, err := gonanoid.Generate(gameIDLetters, 8)
		if err != nil {
			return "", err
		}

		gm.mu.Lock()
		_, loaded := gm.hubs[id]
		gm.mu.Unlock()
		if loaded {
			continue
		}

		store, err := gm.backend.Slot(id)
		if err != nil {
			return "", err
		}

		_, err = store.Load()
		switch {
		case errors.Is(err, frames.ErrNoSnapshot):
			return id, nil
		case err == nil, errors.Is(err, frames.ErrMalformedSnapshot):
			continue
		default:
			return "", err
		}
	}

	return "", errNoFreeGameID
}

// reaperLoop periodically unloads hubs that have been idle longer than
// idleTimeout. Their games stay in the store.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.reap(time.Now().Add(-gm.idleTimeout))
		case <-gm.done:
			return
		}
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		created := hub.createdAt
		connected := len(hub.clients)
		hub.mu.RUnlock()

		if connected == 0 && last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
			logf(gm.cfg, "GAMES: Unloaded idle game %s after %s", id, time.Since(created).Round(time.Second))
		}
	}
}

func (gm *GameManager) stop() {
	close(gm.done)

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
}

func rememberGame(cfg *Config, w http.ResponseWriter, gameID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     gameCookieName,
		Value:    gameID,
		Path:     cfg.prefix + "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectGame handles GET /frames by resuming the game remembered in the
// cookie, or by creating a new random game ID.
func redirectGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if c, err := r.Cookie(gameCookieName); err == nil && gameIDPattern.MatchString(c.Value) {
			http.Redirect(w, r, path+"/"+c.Value, http.StatusTemporaryRedirect)
			return
		}

		gameID, err := gm.newGameID()
		if err != nil {
			errorf("GAMES: Generating game ID: %v", err)
			http.Error(w, "unable to create game", http.StatusInternalServerError)
			return
		}

		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

func gameIDParam(w http.ResponseWriter, ps httprouter.Params) (string, bool) {
	gameID := ps.ByName("gameid")
	if !gameIDPattern.MatchString(gameID) {
		http.Error(w, "invalid game id", http.StatusNotFound)
		return "", false
	}
	return gameID, true
}

func serveGamePage(cfg *Config, errs chan<- error) httprouter.Handle {
	page, err := assets.ReadFile("assets/frames/index.html")
	if err != nil {
		panic("missing embedded game page: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, ok := gameIDParam(w, ps)
		if !ok {
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)
		rememberGame(cfg, w, gameID)

		if _, err := w.Write(page); err != nil {
			errs <- err
		}
	}
}

func serveGameState(cfg *Config, gm *GameManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, ok := gameIDParam(w, ps)
		if !ok {
			return
		}

		state, err := gm.gameState(gameID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(state); err != nil {
			errs <- err
		}
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID, ok := gameIDParam(w, ps)
		if !ok {
			return
		}

		hub, err := gm.getHub(gameID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade failed for %s: %v", realIP(r), err)
			return
		}
		conn.SetReadLimit(4096)

		client := &Client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan any, 16),
		}

		if !hub.join(client) {
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.leave(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "select", "drop", "set_name", "reset":
			if !h.submit(command{client: c, msg: msg}) {
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := gameIDParam(w, ps); !ok {
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

var imagePattern = regexp.MustCompile(`^img-[0-9]+\.(webp|png|jpe?g)$`)

// serveImages serves frame stills from --images. A missing still is a 404;
// the page draws a placeholder instead.
func serveImages(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		name := ps.ByName("file")
		if !imagePattern.MatchString(name) {
			http.NotFound(w, r)
			return
		}

		path := filepath.Join(cfg.images, name)
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}

		cacheHeaders(w)
		securityHeaders(cfg, w)
		http.ServeFile(w, r, path)
	}
}

// registerFrameGame sets up routes so that:
//   - $path                  → resumes the remembered game, or a new one
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/state    → JSON state of that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
//   - /images/:file          → frame stills
func registerFrameGame(cfg *Config, path string, gm *GameManager, mux *httprouter.Router, errs chan<- error) {
	path = cfg.prefix + path

	mux.GET(path, redirectGame(cfg, path, gm))

	mux.GET(path+"/:gameid", serveGamePage(cfg, errs))

	mux.GET(path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(path+"/:gameid/state", serveGameState(cfg, gm, errs))

	mux.GET(path+"/:gameid/qr", qrHandler(cfg, errs))

	mux.GET(cfg.prefix+"/images/:file", serveImages(cfg))
}
