package eventstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"github.com/izyuumi/koe/internal/events"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Server streams events from source to every connected subscriber.
type Server struct {
	source events.Subscriber
	logger *slog.Logger
}

// NewServer builds a server over source.
func NewServer(source events.Subscriber, logger *slog.Logger) *Server {
	return &Server{source: source, logger: logger}
}

// Listen removes a stale socket file at path and listens on it.
func Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create event socket dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale event socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen event socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod event socket: %w", err)
	}
	return listener, nil
}

// Serve blocks until ctx is cancelled or the listener fails. Cancellation stops
// the gRPC server and ends every subscriber stream.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	gs := grpc.NewServer()
	gs.RegisterService(&serviceDesc, s)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			gs.Stop()
		case <-stopped:
		}
	}()

	err := gs.Serve(listener)
	if ctx.Err() != nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve event stream: %w", err)
	}
	return nil
}

func (s *Server) subscribe(_ *emptypb.Empty, stream grpc.ServerStream) error {
	q := newQueue(queueSize)
	unsubscribe := s.source.Subscribe(q.push)
	defer unsubscribe()

	s.logDebug("event subscriber connected")
	defer func() {
		s.logDebug("event subscriber disconnected", "dropped", q.droppedCount())
	}()

	ctx := stream.Context()
	for {
		ev, ok := q.pop(ctx)
		if !ok {
			return nil
		}
		msg, err := ToStruct(ev)
		if err != nil {
			s.logDebug("event encode failed", "kind", string(ev.Kind), "error", err.Error())
			continue
		}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}
}

func (s *Server) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
