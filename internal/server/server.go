// Package server implements the optional `-server` mode (SPEC_FULL §3):
// a websocket endpoint that accepts Rite container bytes and streams back
// rendered source, one job per message, grounded on internal/network's
// WebSocketServer/WebSocketConn shape but trimmed to this single job
// protocol instead of generic client messaging.
package server

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ritedecomp/internal/lifter"
	"ritedecomp/internal/riteio"
)

// Job is one decompile request/response pair exchanged over the socket.
type Job struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Server holds the HTTP/websocket plumbing for one listening instance.
type Server struct {
	Addr     string
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[string]*websocket.Conn
	http     *http.Server
}

// New constructs a Server bound to addr (e.g. ":8765"). Call ListenAndServe
// to start accepting connections.
func New(addr string) *Server {
	return &Server{
		Addr:    addr,
		clients: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ListenAndServe blocks serving websocket upgrade requests at "/decompile"
// until the process is killed or the listener errors.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/decompile", s.handleConn)
	s.http = &http.Server{Addr: s.Addr, Handler: mux}
	log.Printf("ritedecomp server listening on %s/decompile", s.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: upgrade failed: %v", err)
		return
	}
	clientID := uuid.NewString()

	s.mu.Lock()
	s.clients[clientID] = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, clientID)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		job := s.decompileJob(data)
		out, err := json.Marshal(job)
		if err != nil {
			log.Printf("server: marshal job %s: %v", job.ID, err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}

// decompileJob runs one file's bytes through riteio+lifter and packages the
// outcome as a Job, tagging it with a fresh request ID the way the teacher
// tags each accepted client connection.
func (s *Server) decompileJob(data []byte) Job {
	id := uuid.NewString()
	root, _, err := riteio.Read(bytes.NewReader(data))
	if err != nil {
		return Job{ID: id, Error: err.Error()}
	}
	src, err := lifter.Decompile("job:"+id, root, false)
	if err != nil {
		return Job{ID: id, Error: err.Error()}
	}
	log.Printf("server: job %s decompiled (%d bytes in)", id, len(data))
	return Job{ID: id, Source: src}
}

// Close stops the HTTP server and drops all tracked client connections.
func (s *Server) Close() error {
	s.mu.Lock()
	for id, c := range s.clients {
		c.Close()
		delete(s.clients, id)
	}
	s.mu.Unlock()
	if s.http == nil {
		return nil
	}
	return s.http.Close()
}
