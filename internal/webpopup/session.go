package webpopup

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/plode/nmpopup/internal/popup"
	"github.com/pterm/pterm"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
	// maxClientMessage bounds a single frame from the page.
	maxClientMessage = 1 << 20
)

// clientMessage is a user action sent by the page.
type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// serverMessage is pushed to the page on every log or state change.
type serverMessage struct {
	Type    string         `json:"type"`
	Session string         `json:"session,omitempty"`
	Host    string         `json:"host,omitempty"`
	Entry   *popup.Entry   `json:"entry,omitempty"`
	State   *popup.UIState `json:"state,omitempty"`
}

// Session is one open page. It owns a loop and a controller, so two tabs never
// share a channel.
type Session struct {
	id   string
	conn *websocket.Conn
	loop *popup.Loop
	ctrl *popup.Controller

	send       chan []byte
	writerDone chan struct{}
}

func newSession(conn *websocket.Conn, opts Options) *Session {
	s := &Session{
		id:         uuid.NewString(),
		conn:       conn,
		loop:       popup.NewLoop(sendBuffer),
		send:       make(chan []byte, sendBuffer),
		writerDone: make(chan struct{}),
	}
	s.ctrl = popup.NewController(popup.Options{
		HostName:        opts.HostName,
		Opener:          opts.Opener,
		Dispatcher:      s.loop,
		Observer:        s,
		ReplaceExisting: opts.ReplaceExisting,
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// run serves the session until the page goes away or the socket is closed.
func (s *Session) run(ctx context.Context, autoConnect bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.write()
	go func() { _ = s.loop.Run(ctx) }()

	s.push(serverMessage{Type: "hello", Session: s.id, Host: s.ctrl.HostName()})
	s.loop.Dispatch(s.ctrl.UpdateUIState)
	if autoConnect {
		s.loop.Dispatch(func() { s.ctrl.Connect(ctx) })
	}

	s.read(ctx)
	s.teardown()
}

func (s *Session) read(ctx context.Context) {
	s.conn.SetReadLimit(maxClientMessage)
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				pterm.Debug.Printf("Session %s read failed: %v\n", s.id, err)
			}
			return
		}

		switch msg.Type {
		case "connect":
			s.loop.Dispatch(func() { s.ctrl.Connect(ctx) })
		case "send":
			text := msg.Text
			s.loop.Dispatch(func() { _ = s.ctrl.SendMessage(text) })
		case "disconnect":
			s.loop.Dispatch(s.ctrl.Disconnect)
		default:
			pterm.Debug.Printf("Session %s sent unknown message type %q\n", s.id, msg.Type)
		}
	}
}

// teardown closes every channel on the loop, then stops the loop and the
// writer. Only the loop pushes after the hello, so closing send is safe once
// it has stopped.
func (s *Session) teardown() {
	closed := make(chan struct{})
	s.loop.Dispatch(func() {
		s.ctrl.Close()
		close(closed)
	})
	select {
	case <-closed:
	case <-s.loop.Done():
	}
	s.loop.Stop()

	close(s.send)
	<-s.writerDone
}

func (s *Session) write() {
	defer close(s.writerDone)
	defer s.conn.Close()

	for data := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			pterm.Debug.Printf("Session %s write failed: %v\n", s.id, err)
			// Closing the socket ends the read loop; keep draining until
			// teardown closes send.
			_ = s.conn.Close()
			for range s.send {
			}
			return
		}
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// close ends the session from the server side.
func (s *Session) close() {
	_ = s.conn.Close()
}

func (s *Session) push(msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		pterm.Debug.Printf("Session %s failed to encode %s message: %v\n", s.id, msg.Type, err)
		return
	}
	s.send <- data
}

// EntryAppended implements popup.Observer.
func (s *Session) EntryAppended(e popup.Entry) {
	s.push(serverMessage{Type: "entry", Entry: &e})
}

// StateChanged implements popup.Observer.
func (s *Session) StateChanged(state popup.UIState) {
	s.push(serverMessage{Type: "state", State: &state})
}
