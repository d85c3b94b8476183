package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/torsten-rupp/barindex/internal/index"
	"github.com/torsten-rupp/barindex/internal/types"
)

const defaultRequestTimeout = 30 * time.Second

// Server dispatches the six INDEX_* operations against an *index.Index,
// following the connection-handling shape of the teacher's
// internal/rpc/server.go handleConnection (newline-delimited JSON over a
// long-lived connection, one request at a time per connection).
type Server struct {
	idx            *index.Index
	logger         *slog.Logger
	requestTimeout time.Duration

	wg sync.WaitGroup
}

// ServerOption configures NewServer.
type ServerOption func(*Server)

// WithLogger overrides the server's slog.Logger.
func WithLogger(l *slog.Logger) ServerOption { return func(s *Server) { s.logger = l } }

// WithRequestTimeout overrides the read/write deadline applied to each
// request/response round trip.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// NewServer wraps idx for RPC dispatch.
func NewServer(idx *index.Index, opts ...ServerOption) *Server {
	s := &Server{idx: idx, logger: slog.Default(), requestTimeout: defaultRequestTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenUnix opens the Unix domain socket endpoint.
func ListenUnix(socketPath string) (net.Listener, error) { return listenRPC(socketPath) }

// ListenTCP opens the optional TCP endpoint.
func ListenTCP(addr string) (net.Listener, error) { return listenTCP(addr) }

// Serve accepts connections on l until ctx is cancelled or Accept fails.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return err
			}
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.requestTimeout)); err != nil {
			return
		}
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(writer, Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}

		if err := conn.SetWriteDeadline(time.Now().Add(s.requestTimeout)); err != nil {
			return
		}
		s.writeResponse(writer, s.dispatch(ctx, &req))

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (s *Server) writeResponse(w *bufio.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{Success: false, Error: "failed to marshal response"})
	}
	_, _ = w.Write(data)
	_, _ = w.Write([]byte{'\n'})
	_ = w.Flush()
}

// dispatch rewrites req into the corresponding local index.Index
// operation (§6): a worker handling a remote entity always treats its
// deletedFlag as true from the caller's side, so no operation here reads
// or restores that flag.
func (s *Server) dispatch(ctx context.Context, req *Request) Response {
	switch req.Operation {
	case OpNewEntity:
		return s.handleNewEntity(ctx, req)
	case OpUpdateEntity:
		return s.handleUpdateEntity(ctx, req)
	case OpEntityUnlock:
		return s.handleEntityIDOp(ctx, req, s.idx.UnlockEntity)
	case OpEntityUpdateInfos:
		return s.handleEntityIDOp(ctx, req, s.idx.UpdateEntityAggregates)
	case OpEntityDelete:
		return s.handleEntityIDOp(ctx, req, s.idx.DeleteEntity)
	case OpEntityPrune:
		return s.handleEntityIDOp(ctx, req, s.idx.PruneEntity)
	default:
		return Response{Success: false, Error: fmt.Sprintf("unknown operation %q", req.Operation)}
	}
}

func errorResponse(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

func (s *Server) handleNewEntity(ctx context.Context, req *Request) Response {
	var args NewEntityArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	entityID, err := s.idx.NewEntity(ctx, args.JobUUID, args.ScheduleUUID, args.HostName, args.UserName,
		types.EntityType(args.ArchiveType), args.CreatedDateTime, args.Locked)
	if err != nil {
		return errorResponse(err)
	}
	data, err := json.Marshal(NewEntityResult{EntityID: entityID})
	if err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, Data: data}
}

func (s *Server) handleUpdateEntity(ctx context.Context, req *Request) Response {
	var args UpdateEntityArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	u := index.EntityUpdate{HostName: args.HostName, UserName: args.UserName}
	if args.Type != nil {
		t := types.EntityType(*args.Type)
		u.Type = &t
	}
	if err := s.idx.UpdateEntity(ctx, args.EntityID, u); err != nil {
		return errorResponse(err)
	}
	return Response{Success: true}
}

// handleEntityIDOp dispatches any of the four INDEX_* operations whose
// argument shape is just an entity id and whose local counterpart
// returns only an error.
func (s *Server) handleEntityIDOp(ctx context.Context, req *Request, op func(context.Context, int64) error) Response {
	var args EntityIDArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return errorResponse(err)
	}
	if err := op(ctx, args.EntityID); err != nil {
		return errorResponse(err)
	}
	return Response{Success: true}
}
