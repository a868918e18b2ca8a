package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rescp17/lanBench/pkg/discovery"
	"github.com/rescp17/lanBench/pkg/protocol"
	"github.com/rescp17/lanBench/pkg/transfer"
)

// Server accepts bulk connections and segmented requests and announces its
// ports through a discovery adapter. Every connection or request gets its own
// short-lived worker; workers share nothing but the counters.
type Server struct {
	cfg       Config
	transfer  *transfer.Config
	announcer discovery.Adapter

	tcp *net.TCPListener
	udp *net.UDPConn

	counters counters
	started  time.Time
	workers  sync.WaitGroup
}

func New(cfg *Config, transferCfg *transfer.Config, announcer discovery.Adapter) *Server {
	return &Server{
		cfg:       *cfg,
		transfer:  transferCfg,
		announcer: announcer,
	}
}

// Listen binds the bulk and segmented service sockets. A failure here is
// fatal for the server and nothing is left open.
func (s *Server) Listen() error {
	ip := net.ParseIP(s.cfg.BindAddr)

	tcp, err := net.ListenTCP("tcp", &net.TCPAddr{IP: ip, Port: s.cfg.TCPPort})
	if err != nil {
		return fmt.Errorf("listen for bulk connections: %w", err)
	}
	udp, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: s.cfg.UDPPort})
	if err != nil {
		tcp.Close()
		return fmt.Errorf("listen for segmented requests: %w", err)
	}
	s.tcp, s.udp = tcp, udp
	s.started = time.Now()
	slog.Info("Server listening", "tcp", tcp.Addr().String(), "udp", udp.LocalAddr().String())
	return nil
}

func (s *Server) TCPAddr() *net.TCPAddr { return s.tcp.Addr().(*net.TCPAddr) }
func (s *Server) UDPAddr() *net.UDPAddr { return s.udp.LocalAddr().(*net.UDPAddr) }

// Stats returns a snapshot of the server counters.
func (s *Server) Stats() Stats {
	return s.counters.snapshot(s.started)
}

// Run binds and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the announcer and both accept loops until ctx is done, then
// closes the listeners and waits for in-flight workers up to DrainTimeout.
// Listen must have succeeded first.
func (s *Server) Serve(ctx context.Context) error {
	if s.tcp == nil || s.udp == nil {
		return errors.New("server is not listening")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		s.tcp.Close()
		s.udp.Close()
		return nil
	})

	g.Go(func() error {
		return s.announce(ctx)
	})

	g.Go(func() error {
		return s.acceptBulk(ctx)
	})

	g.Go(func() error {
		return s.receiveRequests(ctx)
	})

	err := g.Wait()
	s.drain()
	slog.Info("Server stopped", "bulk_served", s.counters.bulkServed.Load(), "segmented_served", s.counters.segmentedServed.Load())
	return err
}

func (s *Server) announce(ctx context.Context) error {
	if s.announcer == nil {
		return nil
	}
	service := discovery.ServiceInfo{
		Name:    s.serviceName(),
		UDPPort: uint16(s.UDPAddr().Port),
		TCPPort: uint16(s.TCPAddr().Port),
	}
	if err := s.announcer.Announce(ctx, service); err != nil {
		return fmt.Errorf("announcing service: %w", err)
	}
	return nil
}

func (s *Server) serviceName() string {
	if s.cfg.Name != "" {
		return s.cfg.Name
	}
	return "lanbench-" + strconv.Itoa(s.TCPAddr().Port)
}

func (s *Server) acceptBulk(ctx context.Context) error {
	for {
		conn, err := s.tcp.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Warn("Failed to accept bulk connection", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		s.spawn(func() { s.serveBulk(conn) })
	}
}

func (s *Server) receiveRequests(ctx context.Context) error {
	buf := make([]byte, 2048)
	for {
		n, from, err := s.udp.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Warn("Failed to receive segmented request", "error", err)
			continue
		}

		msg, err := protocol.Decode(buf[:n])
		if err != nil {
			s.counters.framesRejected.Add(1)
			slog.Debug("Dropping datagram", "from", from.String(), "error", err)
			continue
		}
		req, ok := msg.(protocol.SegmentRequest)
		if !ok {
			s.counters.framesRejected.Add(1)
			slog.Debug("Dropping datagram", "from", from.String(), "kind", msg.Kind().String())
			continue
		}
		s.spawn(func() { s.serveSegmented(from, req.Size) })
	}
}

func (s *Server) spawn(work func()) {
	s.workers.Add(1)
	s.counters.activeWorkers.Add(1)
	go func() {
		defer s.workers.Done()
		defer s.counters.activeWorkers.Add(-1)
		work()
	}()
}

func (s *Server) serveBulk(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	n, err := transfer.ServeBulk(conn, s.transfer)
	s.counters.bytesSent.Add(n)
	if err != nil {
		s.counters.bulkFailed.Add(1)
		if transfer.Classify(err) == transfer.ErrorCategoryConnectionClosed {
			slog.Info("Bulk client went away", "remote", remote, "sent", n, "error", err)
		} else {
			slog.Warn("Bulk request aborted", "remote", remote, "sent", n, "error", err, "category", transfer.Classify(err).String())
		}
		return
	}
	s.counters.bulkServed.Add(1)
	slog.Info("Served bulk request", "remote", remote, "bytes", n)
}

func (s *Server) serveSegmented(to *net.UDPAddr, size uint64) {
	n, err := transfer.ServeSegmented(to, size, s.transfer)
	s.counters.bytesSent.Add(n)
	if err != nil {
		s.counters.segmentedFailed.Add(1)
		slog.Warn("Segmented request aborted", "remote", to.String(), "sent", n, "error", err, "category", transfer.Classify(err).String())
		return
	}
	s.counters.segmentedServed.Add(1)
	slog.Info("Served segmented request", "remote", to.String(), "bytes", n,
		"segments", transfer.SegmentCount(size, s.transfer.PayloadCapacity()))
}

// drain waits for in-flight workers. Workers are never interrupted; after
// DrainTimeout the server stops waiting and leaves them to finish alone.
func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	if s.cfg.DrainTimeout <= 0 {
		<-done
		return
	}
	timer := time.NewTimer(s.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		slog.Warn("Drain timeout reached, abandoning workers", "active", s.counters.activeWorkers.Load())
	}
}
