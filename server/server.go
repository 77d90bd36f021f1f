// Package server streams scenario runs to websocket clients.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"freettes/calculator"
	"freettes/model"
	"freettes/store"
)

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	sim      *calculator.Simulator

	History *store.History   // optional, records every run
	Files   *store.FileStore // optional, profile files and restart state
}

func NewServer(addr string, upgrader websocket.Upgrader, sim *calculator.Simulator) *Server {
	return &Server{
		addr:     addr,
		upgrader: upgrader,
		sim:      sim,
	}
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(s.sim)
	hub.conn = conn
	hub.history = s.History
	hub.files = s.Files
	hub.log = hub.log.WithField("remote", conn.RemoteAddr().String())
	hub.log.Info("client connected")

	go hub.handleRequest(ctx)
	go hub.handleResponse(ctx)
	for {
		var msg model.Msg
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				hub.log.WithError(err).Warn("read failed")
			}
			hub.log.Info("client disconnected")
			return
		}
		hub.msg <- msg
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	return mux
}

// Serve listens until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
