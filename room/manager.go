package room

import (
	"crypto/rand"
	"log"
	"math/big"
	"sort"
	"sync"
)

// RoomInfo is returned by the API for the room list.
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
}

// Manager holds multiple rooms by code. Rooms are created on first
// subscribe or via CreateRoom, and removed when the last subscriber leaves.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	Logger *log.Logger
}

func NewManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

func (m *Manager) newRoom(code string) *Room {
	r := New()
	r.Code = code
	r.Logger = m.Logger
	r.OnEmpty = func(c string) {
		m.removeRoom(c, r)
	}
	m.rooms[code] = r
	go r.Run()
	return r
}

// GetOrCreateRoom returns the room for the given code, creating it if needed.
func (m *Manager) GetOrCreateRoom(code string) *Room {
	if code == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[code]; ok {
		return r
	}
	return m.newRoom(code)
}

func (m *Manager) removeRoom(code string, r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rooms[code]; ok && cur == r {
		delete(m.rooms, code)
	}
	r.Stop()
}

// CreateRoom generates a unique code, creates the room, and returns the code.
func (m *Manager) CreateRoom() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		code := GenerateCode(CodeLength)
		if _, exists := m.rooms[code]; exists {
			continue
		}
		m.newRoom(code)
		return code
	}
}

// ListRooms returns all active rooms with code and subscriber count.
func (m *Manager) ListRooms() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for code, r := range m.rooms {
		out = append(out, RoomInfo{Code: code, Players: r.NumPlayers()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Close stops every room.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, r := range m.rooms {
		r.Stop()
		delete(m.rooms, code)
	}
}

const (
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength = 6
)

// GenerateCode returns a random room code from an unambiguous alphabet.
func GenerateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
