/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Seednode/framematch/games/frames"
	"github.com/fatih/color"
)

const playHelp = `Commands:
  name <text>         set your name
  title <n>, t <n>    pick title number n
  frame <n>, f <n>    pick frame number n
  match <t> <f>, m    pick a title and a frame at once
  list, ls            show what is left to match
  status              show score and progress
  reset               start over (asks for confirmation)
  help                show this text
  quit, exit          leave; progress is kept
`

// terminal renders a session as numbered lists. Positions are fixed when
// the terminal starts so numbers stay valid while items are matched.
type terminal struct {
	session *frames.Session
	images  string
	out     io.Writer

	titles []frames.Item
	stills []frames.Item

	good *color.Color
	bad  *color.Color
	dim  *color.Color
}

func newTerminal(s *frames.Session, images string, out io.Writer, shuffle func([]frames.Item)) *terminal {
	t := &terminal{
		session: s,
		images:  images,
		out:     out,
		titles:  s.Catalog().Items(),
		stills:  s.Catalog().Items(),
		good:    color.New(color.FgGreen, color.Bold),
		bad:     color.New(color.FgRed, color.Bold),
		dim:     color.New(color.Faint),
	}

	if shuffle != nil {
		shuffle(t.titles)
		shuffle(t.stills)
	}

	s.Subscribe(t.onEvent)

	return t
}

func (t *terminal) onEvent(e frames.Event) {
	switch ev := e.(type) {
	case frames.MatchResult:
		if ev.Correct {
			t.good.Fprintf(t.out, "Correct! +%d", ev.Points)
			if ev.Streak >= 5 {
				fmt.Fprintf(t.out, " (streak %d)", ev.Streak)
			}
			fmt.Fprintln(t.out)
		} else {
			t.bad.Fprintf(t.out, "Wrong match! %d\n", ev.Points)
		}
	case frames.SessionComplete:
		t.good.Fprintf(t.out, "All %d matched! Final score: %d\n", t.session.Catalog().Len(), ev.FinalScore)
	}
}

func (t *terminal) printStatus() {
	fmt.Fprintf(t.out, "%s | score %d | streak %d | %d%% matched\n",
		t.session.UserName(), t.session.Score(), t.session.Streak(), t.session.Progress())
}

func (t *terminal) printList() {
	title, frame := t.session.Selected()

	fmt.Fprintln(t.out, "Titles:")
	for i, it := range t.titles {
		if t.session.IsMatched(it.ID) {
			continue
		}
		marker := " "
		if it.ID == title {
			marker = "*"
		}
		fmt.Fprintf(t.out, " %s%3d  %s\n", marker, i+1, it.Title)
	}

	fmt.Fprintln(t.out, "Frames:")
	for i, it := range t.stills {
		if t.session.IsMatched(it.ID) {
			t.dim.Fprintf(t.out, "  %3d  %s\n", i+1, it.Title)
			continue
		}
		marker := " "
		if it.ID == frame {
			marker = "*"
		}
		fmt.Fprintf(t.out, " %s%3d  %s\n", marker, i+1, filepath.Join(t.images, fmt.Sprintf("img-%d.webp", it.ID)))
	}
}

// lookup maps a 1-based position to an item id.
func lookup(items []frames.Item, arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(items) {
		return 0, false
	}
	return items[n-1].ID, true
}

func (t *terminal) pick(side frames.Side, arg string) {
	items := t.titles
	if side == frames.FrameSide {
		items = t.stills
	}

	id, ok := lookup(items, arg)
	if !ok {
		fmt.Fprintf(t.out, "No %s number %q.\n", side, arg)
		return
	}

	if !t.session.Select(side, id) {
		fmt.Fprintf(t.out, "That %s is already matched.\n", side)
	}
}

// run reads commands until quit or end of input.
func (t *terminal) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)

	if t.session.UserName() == "" {
		fmt.Fprintln(t.out, "Welcome! Enter your name with: name <your name>")
	} else {
		fmt.Fprintf(t.out, "Welcome back, %s!\n", t.session.UserName())
		t.printStatus()
	}

	confirming := false

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		cmd, args := strings.ToLower(fields[0]), fields[1:]

		if confirming {
			confirming = false
			if cmd == "yes" || cmd == "y" {
				t.session.Reset()
				fmt.Fprintln(t.out, "Game reset. Enter your name with: name <your name>")
			} else {
				fmt.Fprintln(t.out, "Reset cancelled.")
			}
			continue
		}

		if t.session.UserName() == "" && cmd != "name" && cmd != "help" && cmd != "quit" && cmd != "exit" {
			fmt.Fprintln(t.out, "Enter your name first: name <your name>")
			continue
		}

		switch cmd {
		case "name":
			if !t.session.SetUserName(strings.Join(args, " ")) {
				fmt.Fprintln(t.out, "Your name cannot be empty.")
				continue
			}
			fmt.Fprintf(t.out, "Hello, %s!\n", t.session.UserName())
			t.printList()

		case "title", "t", "frame", "f":
			if len(args) != 1 {
				fmt.Fprintf(t.out, "Usage: %s <n>\n", cmd)
				continue
			}
			side := frames.TitleSide
			if cmd == "frame" || cmd == "f" {
				side = frames.FrameSide
			}
			t.pick(side, args[0])

		case "match", "m":
			if len(args) != 2 {
				fmt.Fprintf(t.out, "Usage: %s <title> <frame>\n", cmd)
				continue
			}
			titleID, ok1 := lookup(t.titles, args[0])
			frameID, ok2 := lookup(t.stills, args[1])
			if !ok1 || !ok2 {
				fmt.Fprintln(t.out, "Unknown title or frame number.")
				continue
			}
			if !t.session.Drop(titleID, frameID) {
				fmt.Fprintln(t.out, "That title or frame is already matched.")
			}

		case "list", "ls":
			t.printList()

		case "status":
			t.printStatus()

		case "reset":
			fmt.Fprintln(t.out, "Restart the game and lose all progress? Type yes to confirm.")
			confirming = true

		case "help", "?":
			fmt.Fprint(t.out, playHelp)

		case "quit", "exit":
			return nil

		default:
			fmt.Fprintf(t.out, "Unknown command %q. Type help for a list.\n", cmd)
		}
	}

	return scanner.Err()
}

func playLocal(cfg *Config, in io.Reader, out io.Writer) error {
	catalog, err := cfg.loadCatalog()
	if err != nil {
		return err
	}

	backend, err := cfg.openBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	store, err := backend.Slot(frames.DefaultSlot)
	if err != nil {
		return err
	}

	session := frames.New(catalog,
		frames.WithStore(store),
		frames.WithErrorHandler(func(err error) {
			errorf("PLAY: Saving game: %v", err)
		}),
	)

	logf(cfg, "PLAY: Loaded %s from %s store (%d/%d matched)", frames.DefaultSlot, cfg.store, len(session.Matched()), catalog.Len())

	shuffle := func(items []frames.Item) {
		rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	}

	return newTerminal(session, cfg.images, out, shuffle).run(in)
}
