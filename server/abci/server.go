package abci

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/datachainlab/db3/app"
	"github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

const DefaultReadBufferSize = 1 << 20

// Server accepts connections from the consensus engine and serves the ABCI
// socket protocol. Requests from all connections reach the application one
// at a time.
type Server struct {
	addr        string
	app         types.Application
	readBufSize int
	logger      log.Logger

	appMtx sync.Mutex

	mtx      sync.Mutex
	listener net.Listener
	conns    map[int]net.Conn
	nextID   int
	wg       sync.WaitGroup
}

// NewServer returns a server for addr, given as "tcp://host:port" or
// "unix://path". A bare host:port means tcp.
func NewServer(addr string, application types.Application, readBufSize int, logger log.Logger) *Server {
	if readBufSize <= 0 {
		readBufSize = DefaultReadBufferSize
	}
	return &Server{
		addr:        addr,
		app:         application,
		readBufSize: readBufSize,
		logger:      logger.With("module", "abci-server"),
		conns:       make(map[int]net.Conn),
	}
}

// Listen binds the server address without accepting connections yet
func (s *Server) Listen() (net.Listener, error) {
	proto, addr := protocolAndAddress(s.addr)
	return net.Listen(proto, addr)
}

// Serve accepts connections on lis until Stop is called
func (s *Server) Serve(lis net.Listener) error {
	s.mtx.Lock()
	if s.listener != nil {
		s.mtx.Unlock()
		return fmt.Errorf("abci server already serving on %v", s.listener.Addr())
	}
	s.listener = lis
	s.mtx.Unlock()

	s.logger.Info("serving ABCI", "addr", lis.Addr())
	for {
		conn, err := lis.Accept()
		if err != nil {
			if s.stopped() {
				return nil
			}
			return err
		}
		s.mtx.Lock()
		id := s.nextID
		s.nextID++
		s.conns[id] = conn
		s.mtx.Unlock()

		s.logger.Info("accepted connection", "remote", conn.RemoteAddr(), "id", id)
		s.wg.Add(1)
		go s.handle(id, conn)
	}
}

// Stop closes the listener and every open connection, then waits for their
// handlers to return
func (s *Server) Stop() error {
	s.mtx.Lock()
	lis := s.listener
	s.listener = nil
	conns := s.conns
	s.conns = make(map[int]net.Conn)
	s.mtx.Unlock()

	var err error
	if lis != nil {
		err = lis.Close()
	}
	for _, conn := range conns {
		conn.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) stopped() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.listener == nil
}

func (s *Server) handle(id int, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mtx.Lock()
		delete(s.conns, id)
		s.mtx.Unlock()
		conn.Close()
	}()

	r := bufio.NewReaderSize(conn, s.readBufSize)
	w := bufio.NewWriter(conn)
	for {
		req := &types.Request{}
		if err := types.ReadMessage(r, req); err != nil {
			if err == io.EOF || s.stopped() {
				s.logger.Info("connection closed", "id", id)
			} else {
				s.logger.Error("failed to read request", "id", id, "err", err)
			}
			return
		}
		res := s.dispatch(req)
		if err := types.WriteMessage(res, w); err != nil {
			s.logger.Error("failed to write response", "id", id, "err", err)
			return
		}
		if _, ok := req.Value.(*types.Request_Flush); ok {
			if err := w.Flush(); err != nil {
				s.logger.Error("failed to flush", "id", id, "err", err)
				return
			}
		}
	}
}

func (s *Server) dispatch(req *types.Request) *types.Response {
	s.appMtx.Lock()
	defer s.appMtx.Unlock()

	switch r := req.Value.(type) {
	case *types.Request_Echo:
		return types.ToResponseEcho(r.Echo.Message)
	case *types.Request_Flush:
		return types.ToResponseFlush()
	case *types.Request_Info:
		return types.ToResponseInfo(s.app.Info(*r.Info))
	case *types.Request_SetOption:
		return types.ToResponseSetOption(s.app.SetOption(*r.SetOption))
	case *types.Request_InitChain:
		return types.ToResponseInitChain(s.app.InitChain(*r.InitChain))
	case *types.Request_Query:
		return types.ToResponseQuery(s.app.Query(*r.Query))
	case *types.Request_CheckTx:
		return types.ToResponseCheckTx(s.app.CheckTx(*r.CheckTx))
	case *types.Request_BeginBlock:
		return types.ToResponseBeginBlock(s.app.BeginBlock(*r.BeginBlock))
	case *types.Request_DeliverTx:
		return types.ToResponseDeliverTx(s.app.DeliverTx(*r.DeliverTx))
	case *types.Request_EndBlock:
		return types.ToResponseEndBlock(s.app.EndBlock(*r.EndBlock))
	case *types.Request_Commit:
		return types.ToResponseCommit(s.app.Commit())
	default:
		err := sdkerrors.Wrapf(app.ErrInvalidRequest, "unknown request %T", req.Value)
		s.logger.Error("rejected consensus request", "err", err)
		return types.ToResponseException(err.Error())
	}
}

func protocolAndAddress(addr string) (string, string) {
	parts := strings.SplitN(addr, "://", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "tcp", addr
}
