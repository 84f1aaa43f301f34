package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const DefaultSocketPath = "/tmp/doula.sock"

type ControlMessage struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args,omitempty"`
}

type Reply struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler answers one control message. A returned error is sent back as
// a failed Reply.
type Handler func(ControlMessage) (any, error)

type Server struct {
	path    string
	ln      net.Listener
	handler Handler

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// Listen binds the unix socket at path, replacing a stale one, and serves
// connections in the background until Close.
func Listen(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{
		path:    path,
		ln:      ln,
		handler: handler,
		closed:  make(chan struct{}),
	}

	s.wg.Add(1)
	go s.serve()

	log.Debug("IPC server listening", "socket", path)
	return s, nil
}

func (s *Server) Path() string { return s.path }

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("IPC accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad IPC message", "err", err)
		json.NewEncoder(conn).Encode(Reply{Error: "bad message: " + err.Error()})
		return
	}

	log.Debug("IPC command", "cmd", msg.Cmd, "args", msg.Args)

	reply := Reply{OK: true}
	data, err := s.handler(msg)
	if err != nil {
		reply = Reply{Error: err.Error()}
	} else if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			reply = Reply{Error: err.Error()}
		} else {
			reply.Data = raw
		}
	}

	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("Failed to send IPC reply", "err", err)
	}
}

func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.ln.Close()
		s.wg.Wait()
		os.Remove(s.path)
	})
	return err
}

// Send delivers one command to the daemon at path and waits for its reply.
func Send(path string, msg ControlMessage) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}

	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if !reply.OK {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}

func SendCommand(path, cmd string, args ...string) (Reply, error) {
	return Send(path, ControlMessage{Cmd: cmd, Args: args})
}
