package commands

import (
	"fmt"
	"sync"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/mattn/go-runewidth"
	termbox "github.com/nsf/termbox-go"
	log "github.com/sirupsen/logrus"
)

const (
	defaultColor = termbox.ColorDefault
	bgColor      = termbox.ColorDefault
	snakeColor   = termbox.ColorGreen
	headColor    = termbox.ColorYellow
	barrierColor = termbox.ColorWhite
	foodColor    = termbox.ColorRed
	specialColor = termbox.ColorMagenta

	boardLeft = 2
	boardTop  = 2
)

// termRenderer draws frames with termbox and keeps the last cue as a HUD
// line below the board. It implements both rules.Renderer and
// rules.CueSink.
type termRenderer struct {
	sync.Mutex
	size   int
	title  string
	cue    rules.Cue
	status string
	last   *rules.Frame
}

func newTermRenderer(title string, size int) *termRenderer {
	return &termRenderer{title: title, size: size}
}

func (r *termRenderer) Render(f *rules.Frame) {
	r.Lock()
	defer r.Unlock()
	r.last = f
	if err := r.draw(); err != nil {
		log.WithError(err).Warn("unable to render frame")
	}
}

func (r *termRenderer) Cue(c rules.Cue) {
	r.Lock()
	defer r.Unlock()
	r.cue = c
}

// setStatus replaces the status line and redraws the last frame.
func (r *termRenderer) setStatus(status string) {
	r.Lock()
	defer r.Unlock()
	r.status = status
	if r.last != nil {
		if err := r.draw(); err != nil {
			log.WithError(err).Warn("unable to render frame")
		}
	}
}

func (r *termRenderer) draw() error {
	f := r.last
	if err := termbox.Clear(defaultColor, defaultColor); err != nil {
		return err
	}

	tbprint(boardLeft, boardTop-1, defaultColor, defaultColor,
		fmt.Sprintf("%s - Turn %d - Score %d", r.title, f.Turn, f.Score))
	renderBoard(r.size, boardTop, boardLeft)

	for _, b := range f.Barriers {
		setBoardCell(b, ' ', barrierColor, barrierColor)
	}
	setBoardCell(f.Food, '●', foodColor, bgColor)
	if f.Special != nil {
		setBoardCell(*f.Special, '★', specialColor, bgColor)
	}
	for i, b := range f.Body {
		color := snakeColor
		if i == 0 {
			color = headColor
		}
		setBoardCell(b, ' ', color, color)
	}

	hud := boardTop + r.size + 2
	line := fmt.Sprintf("length %d", len(f.Body))
	if f.Level > 0 {
		line = fmt.Sprintf("%s - level %d", line, f.Level)
	}
	if r.cue != "" {
		line = fmt.Sprintf("%s - %s", line, r.cue)
	}
	if f.Death != "" {
		line = fmt.Sprintf("%s - %s", line, f.Death)
	}
	tbprint(boardLeft, hud, defaultColor, defaultColor, line)
	if r.status != "" {
		tbprint(boardLeft, hud+1, defaultColor, defaultColor, r.status)
	}
	return termbox.Flush()
}

func setBoardCell(c board.Cell, ch rune, fg, bg termbox.Attribute) {
	termbox.SetCell(boardLeft+c.X, boardTop+c.Y+1, ch, fg, bg)
}

func renderBoard(size, top, left int) {
	bottom := top + size + 1
	for i := top + 1; i < bottom; i++ {
		termbox.SetCell(left-1, i, '│', defaultColor, bgColor)
		termbox.SetCell(left+size, i, '│', defaultColor, bgColor)
	}

	termbox.SetCell(left-1, top, '┌', defaultColor, bgColor)
	termbox.SetCell(left-1, bottom, '└', defaultColor, bgColor)
	termbox.SetCell(left+size, top, '┐', defaultColor, bgColor)
	termbox.SetCell(left+size, bottom, '┘', defaultColor, bgColor)

	fill(left, top, size, 1, termbox.Cell{Ch: '─'})
	fill(left, bottom, size, 1, termbox.Cell{Ch: '─'})
}

func fill(x, y, w, h int, cell termbox.Cell) {
	for ly := 0; ly < h; ly++ {
		for lx := 0; lx < w; lx++ {
			termbox.SetCell(x+lx, y+ly, cell.Ch, cell.Fg, cell.Bg)
		}
	}
}

func tbprint(x, y int, fg, bg termbox.Attribute, msg string) {
	for _, c := range msg {
		termbox.SetCell(x, y, c, fg, bg)
		x += runewidth.RuneWidth(c)
	}
}

func setupEventQueue() <-chan termbox.Event {
	eventQueue := make(chan termbox.Event)
	go func(ev chan<- termbox.Event) {
		for {
			ev <- termbox.PollEvent()
		}
	}(eventQueue)
	return eventQueue
}
