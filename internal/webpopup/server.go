// Package webpopup serves the popup as a local web page. Each open page talks
// to its own controller over a websocket.
package webpopup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/plode/nmpopup/internal/popup"
	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"
)

const bindHost = "127.0.0.1"

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	HostName        string
	Opener          popup.Opener
	ReplaceExisting bool
	// AutoConnect connects every new page as soon as it loads.
	AutoConnect bool
}

// Server is the web popup's HTTP handler and session registry.
type Server struct {
	opts     Options
	hub      *Hub
	page     []byte
	upgrader websocket.Upgrader
}

func NewServer(opts Options) (*Server, error) {
	if opts.Opener == nil {
		return nil, errors.New("webpopup: opener is required")
	}
	page, err := renderPage(pageData{HostName: opts.HostName})
	if err != nil {
		return nil, fmt.Errorf("failed to render popup page: %w", err)
	}
	return &Server{
		opts: opts,
		hub:  newHub(),
		page: page,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     loopbackOrigin,
		},
	}, nil
}

// Hub returns the server's session registry.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routes of the popup server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /ws", s.handleSocket)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return loopbackOnly(mux)
}

// loopbackOnly rejects requests whose Host is not a loopback name, so a page
// that rebinds its own DNS name to 127.0.0.1 cannot reach the popup.
func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLoopbackHost(r.Host) {
			pterm.Debug.Printf("Rejected request for host %q from %s\n", r.Host, r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loopbackOrigin accepts websocket upgrades from loopback pages and from
// clients that send no Origin at all.
func loopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return isLoopbackHost(u.Host)
}

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	switch strings.ToLower(host) {
	case "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(s.page)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		pterm.Debug.Printf("Websocket upgrade failed: %v\n", err)
		return
	}

	sess := newSession(conn, s.opts)
	if !s.hub.register(sess) {
		_ = conn.Close()
		return
	}
	defer s.hub.unregister(sess)

	pterm.Debug.Printf("Session %s opened from %s\n", sess.id, r.RemoteAddr)
	sess.run(context.WithoutCancel(r.Context()), s.opts.AutoConnect)
	pterm.Debug.Printf("Session %s closed\n", sess.id)
}

// Close ends every session and waits for their channels to be released.
func (s *Server) Close() {
	s.hub.CloseAll()
	s.hub.Wait()
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		if err != nil {
			return fmt.Errorf("failed to shut down popup server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// ListenLocal listens on the loopback interface. Port 0 picks a free port.
func ListenLocal(port int) (net.Listener, string, error) {
	if port < 0 || port > 65535 {
		return nil, "", fmt.Errorf("invalid --port %d (must be 0..65535)", port)
	}

	addr := net.JoinHostPort(bindHost, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if strings.Contains(err.Error(), "address already in use") {
			return nil, "", fmt.Errorf("port %d is already in use", port)
		}
		return nil, "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port
	return listener, fmt.Sprintf("http://%s:%d", bindHost, actualPort), nil
}
