package room

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"arena/network"
)

// Server exposes the relay over HTTP:
//
//	GET  /relay?room=CODE&id=ID  websocket, every frame is fanned out to the room
//	GET  /rooms                  active rooms as JSON
//	POST /rooms                  reserve a fresh room code
type Server struct {
	Manager *Manager
	Logger  *log.Logger
}

func NewServer(m *Manager) *Server {
	return &Server{Manager: m}
}

func (s *Server) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/relay", s.serveRelay)
	mux.HandleFunc("/rooms", s.serveRooms)
	return mux
}

func (s *Server) serveRooms(w http.ResponseWriter, r *http.Request) {
	var body any
	switch r.Method {
	case http.MethodGet:
		body = s.Manager.ListRooms()
	case http.MethodPost:
		body = RoomInfo{Code: s.Manager.CreateRoom()}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger().Println("rooms:", err)
	}
}

func (s *Server) serveRelay(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	id := r.URL.Query().Get("id")
	if code == "" || id == "" {
		http.Error(w, "room and id are required", http.StatusBadRequest)
		return
	}

	conn, err := network.Upgrade(w, r)
	if err != nil {
		s.logger().Println("upgrade:", err)
		return
	}
	peer := network.NewPeer(id, conn)
	peer.Logger = s.Logger

	// A room can empty out and stop between lookup and join; retry once
	// so the newcomer gets a fresh room.
	var rm *Room
	for attempt := 0; attempt < 2; attempt++ {
		rm = s.Manager.GetOrCreateRoom(code)
		err = rm.Join(id, peer)
		if !errors.Is(err, ErrRoomClosed) {
			break
		}
	}
	if err != nil {
		s.logger().Printf("relay %s: %s rejected: %v", code, id, err)
		_ = peer.Close()
		return
	}

	peer.OnFrame = func(b []byte) {
		rm.Post(Publish{From: id, Frame: b})
	}
	peer.OnClose = func() {
		rm.Post(Unsubscribe{ID: id})
	}
	peer.Start()
}
