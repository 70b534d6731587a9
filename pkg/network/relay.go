package network

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RelayServer accepts terminal connections on TCP and hands each one to the
// registry.
type RelayServer struct {
	Port int

	registry  *Registry
	listener  net.Listener
	log       zerolog.Logger
	startTime time.Time

	wg sync.WaitGroup
	mu sync.Mutex
}

// NewRelayServer creates a new relay server. Port 0 picks a free port.
func NewRelayServer(port int, registry *Registry, log zerolog.Logger) *RelayServer {
	return &RelayServer{
		Port:      port,
		registry:  registry,
		log:       log,
		startTime: time.Now(),
	}
}

// Registry returns the registry connections are served by
func (rs *RelayServer) Registry() *Registry {
	return rs.registry
}

// Start starts listening and accepting in the background
func (rs *RelayServer) Start() error {
	addr := fmt.Sprintf(":%d", rs.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	rs.mu.Lock()
	rs.listener = listener
	rs.mu.Unlock()

	rs.log.Info().Str("addr", listener.Addr().String()).Msg("relay listening")

	rs.wg.Add(1)
	go rs.acceptLoop(listener)

	return nil
}

// Addr returns the bound listener address, or nil before Start
func (rs *RelayServer) Addr() net.Addr {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.listener == nil {
		return nil
	}
	return rs.listener.Addr()
}

// Uptime returns the time since the server was created
func (rs *RelayServer) Uptime() time.Duration {
	return time.Since(rs.startTime)
}

// Stop closes the listener, then every session
func (rs *RelayServer) Stop() error {
	rs.mu.Lock()
	listener := rs.listener
	rs.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	rs.wg.Wait()
	rs.registry.Close()
	return err
}

func (rs *RelayServer) acceptLoop(listener net.Listener) {
	defer rs.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			rs.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		go rs.registry.Serve(conn)
	}
}
