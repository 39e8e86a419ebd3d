package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nilopro/teleauth/internal/access"
	"github.com/nilopro/teleauth/internal/audit"
	"github.com/nilopro/teleauth/internal/config"
	"github.com/nilopro/teleauth/internal/expiry"
	"github.com/nilopro/teleauth/internal/metrics"
	"github.com/nilopro/teleauth/internal/types"
	"github.com/rs/zerolog"
)

// Daemon manages the Unix socket server and request handling.
type Daemon struct {
	cfg       *config.Config
	logger    zerolog.Logger
	listener  net.Listener
	handler   *Handler
	startedAt time.Time
	running   bool
	conns     map[net.Conn]struct{}
	mu        sync.RWMutex

	// Components
	svc           *access.Service
	watcher       *expiry.Watcher
	metricsServer *http.Server
	auditLogger   *audit.Logger

	// Shutdown coordination
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewDaemon creates a new daemon with the provided configuration.
// It opens the audit log and the configured store. Extra options are passed
// to the access service.
func NewDaemon(cfg *config.Config, logger zerolog.Logger, opts ...access.Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	auditLogger, err := audit.New(cfg.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit logger: %w", err)
	}

	opts = append([]access.Option{
		access.WithAuditLogger(auditLogger),
		access.WithLogger(logger.With().Str("component", "access").Logger()),
	}, opts...)

	svc, err := access.Open(cfg, opts...)
	if err != nil {
		_ = auditLogger.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &Daemon{
		cfg:         cfg,
		logger:      logger,
		handler:     NewHandler(svc, auditLogger, cfg),
		svc:         svc,
		auditLogger: auditLogger,
		conns:       make(map[net.Conn]struct{}),
		done:        make(chan struct{}),
	}, nil
}

// Service returns the access service the daemon serves.
func (d *Daemon) Service() *access.Service {
	return d.svc
}

// Start starts the daemon and begins listening on the Unix socket.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return types.ErrDaemonAlreadyRunning
	}

	// Remove existing socket file if present
	if err := os.Remove(d.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		d.mu.Unlock()
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", d.cfg.SocketPath)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Owner only
	if err := os.Chmod(d.cfg.SocketPath, 0600); err != nil {
		listener.Close()
		d.mu.Unlock()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	if d.cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", d.cfg.MetricsAddr)
		if err != nil {
			listener.Close()
			d.mu.Unlock()
			return fmt.Errorf("failed to listen on metrics address: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		d.metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		d.wg.Add(1)
		go d.serveMetrics(ln)
	}

	d.listener = listener
	d.startedAt = d.svc.Now()
	d.running = true
	d.mu.Unlock()

	d.logger.Info().Str("socket", d.cfg.SocketPath).Msg("daemon started")
	entry := audit.NewEntry(types.ActionDaemonStart, true).
		At(d.startedAt).
		WithDetails(fmt.Sprintf("listening on %s", d.cfg.SocketPath)).
		Build()
	_ = d.auditLogger.Log(entry)

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.watcher = expiry.New(d.svc, d.cfg.ExpiryCheckInterval, d.auditLogger,
		d.logger.With().Str("component", "expiry").Logger())
	go d.watcher.Start(ctx)

	d.wg.Add(1)
	go d.acceptLoop()

	return nil
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return types.ErrDaemonNotRunning
	}
	d.running = false
	d.mu.Unlock()

	if d.listener != nil {
		d.listener.Close()
	}
	d.closeConns()
	if d.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = d.metricsServer.Shutdown(ctx)
		cancel()
	}

	// Signal shutdown and wait for all connections to finish
	close(d.done)
	d.wg.Wait()

	d.cancel()
	d.watcher.Stop()

	var errs []error
	if err := d.svc.Close(); err != nil {
		d.logger.Error().Err(err).Msg("failed to close store")
		errs = append(errs, err)
		entry := audit.NewEntry(types.ActionDaemonStop, false).
			WithDetails(fmt.Sprintf("failed to close store: %v", err)).
			Build()
		_ = d.auditLogger.Log(entry)
	} else {
		entry := audit.NewEntry(types.ActionDaemonStop, true).
			WithDetails("daemon stopped gracefully").
			Build()
		_ = d.auditLogger.Log(entry)
	}

	if err := d.auditLogger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close audit logger: %w", err))
	}

	d.logger.Info().Msg("daemon stopped")
	return errors.Join(errs...)
}

func (d *Daemon) serveMetrics(ln net.Listener) {
	defer d.wg.Done()

	d.logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	if err := d.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		d.logger.Error().Err(err).Msg("metrics server failed")
	}
}

// acceptLoop accepts incoming connections and spawns handlers.
func (d *Daemon) acceptLoop() {
	defer d.wg.Done()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.done:
				return
			default:
				d.logger.Warn().Err(err).Msg("accept failed")
				continue
			}
		}

		d.wg.Add(1)
		go d.handleConnection(conn)
	}
}

// trackConn registers conn so Stop can close it. It reports false, and
// closes conn, once the daemon is stopping.
func (d *Daemon) trackConn(conn net.Conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		conn.Close()
		return false
	}
	d.conns[conn] = struct{}{}
	return true
}

func (d *Daemon) untrackConn(conn net.Conn) {
	d.mu.Lock()
	delete(d.conns, conn)
	d.mu.Unlock()
	conn.Close()
}

// closeConns unblocks every connection waiting on a read.
func (d *Daemon) closeConns() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for conn := range d.conns {
		conn.Close()
	}
}

// decodeRequest parses one request line. Numbers are kept as json.Number so
// 64-bit user ids survive the round trip through unmarshalParams.
func decodeRequest(line []byte) (*types.RPCRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var req types.RPCRequest
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// handleConnection processes requests from a single connection.
// Each line is expected to be a JSON-RPC request.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer d.wg.Done()
	if !d.trackConn(conn) {
		return
	}
	defer d.untrackConn(conn)

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		select {
		case <-d.done:
			return
		default:
		}

		req, err := decodeRequest(scanner.Bytes())
		if err != nil {
			resp := &types.RPCResponse{
				JSONRPC: "2.0",
				Error: &types.RPCError{
					Code:    types.RPCParseError,
					Message: fmt.Sprintf("parse error: %v", err),
				},
				ID: nil,
			}
			_ = encoder.Encode(resp)
			continue
		}

		resp := d.handler.HandleRequest(req)
		d.logger.Debug().
			Str("method", req.Method).
			Bool("ok", resp.Error == nil).
			Msg("request handled")

		// Inject startedAt into status responses
		if req.Method == MethodStatus && resp.Result != nil {
			if status, ok := resp.Result.(*types.DaemonStatus); ok {
				d.mu.RLock()
				status.StartedAt = d.startedAt
				status.Running = d.running
				d.mu.RUnlock()
			}
		}

		if err := encoder.Encode(resp); err != nil {
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		d.logger.Warn().Err(err).Msg("connection error")
	}
}

// IsRunning returns true if the daemon is currently running.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Status returns the current daemon status.
func (d *Daemon) Status() *types.DaemonStatus {
	status, err := d.handler.handleStatus()
	if err != nil {
		status = &types.DaemonStatus{
			StoreKind: string(d.cfg.Store),
			StorePath: d.cfg.StorePath(),
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	status.Running = d.running
	status.StartedAt = d.startedAt
	return status
}
