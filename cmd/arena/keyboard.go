package main

import (
	"bufio"
	"io"
	"sync"
	"time"

	"arena/game"
)

// Terminals report key presses, not releases, so a key counts as held
// while its autorepeat keeps arriving within holdWindow.
const holdWindow = 300 * time.Millisecond

type intent int

const (
	intentUp intent = iota
	intentDown
	intentLeft
	intentRight
	intentFire
	intentRestart
	intentQuit
	intentCount
)

// Keyboard is the input source for a raw-mode terminal.
type Keyboard struct {
	mu      sync.Mutex
	pressed [intentCount]time.Time
	now     func() time.Time
	quit    chan struct{}
	once    sync.Once
}

func NewKeyboard() *Keyboard {
	return &Keyboard{now: time.Now, quit: make(chan struct{})}
}

// Quit is closed when the player asks to leave (q or ctrl-c).
func (k *Keyboard) Quit() <-chan struct{} { return k.quit }

// Read consumes key bytes until r fails. Arrow keys arrive as ESC [ A..D.
func (k *Keyboard) Read(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if b == 0x1b {
			if next, err := br.ReadByte(); err == nil && next == '[' {
				if code, err := br.ReadByte(); err == nil {
					k.arrow(code)
				}
			}
			continue
		}
		k.key(b)
	}
}

func (k *Keyboard) arrow(code byte) {
	switch code {
	case 'A':
		k.press(intentUp)
	case 'B':
		k.press(intentDown)
	case 'C':
		k.press(intentRight)
	case 'D':
		k.press(intentLeft)
	}
}

func (k *Keyboard) key(b byte) {
	switch b {
	case 'w', 'W':
		k.press(intentUp)
	case 's', 'S':
		k.press(intentDown)
	case 'a', 'A':
		k.press(intentLeft)
	case 'd', 'D':
		k.press(intentRight)
	case ' ':
		k.press(intentFire)
	case 'r', 'R':
		k.press(intentRestart)
	case 'q', 'Q', 0x03:
		k.once.Do(func() { close(k.quit) })
	}
}

func (k *Keyboard) press(i intent) {
	k.mu.Lock()
	k.pressed[i] = k.now()
	k.mu.Unlock()
}

func (k *Keyboard) held(i intent, now time.Time) bool {
	t := k.pressed[i]
	return !t.IsZero() && now.Sub(t) <= holdWindow
}

// Controls implements session.InputSource. A terminal has no pointer, so
// Aim is always nil.
func (k *Keyboard) Controls() game.Controls {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	return game.Controls{
		Up:      k.held(intentUp, now),
		Down:    k.held(intentDown, now),
		Left:    k.held(intentLeft, now),
		Right:   k.held(intentRight, now),
		Fire:    k.held(intentFire, now),
		Restart: k.held(intentRestart, now),
	}
}
