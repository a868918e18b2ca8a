package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rescp17/lanBench/pkg/protocol"
)

// BroadcastAdapter discovers servers through periodic link-local
// broadcasts on a well-known port.
type BroadcastAdapter struct {
	cfg Config
}

func NewBroadcastAdapter(cfg *Config) *BroadcastAdapter {
	return &BroadcastAdapter{cfg: *cfg}
}

// Announce opens a broadcast socket and advertises the service ports every
// interval until ctx is done. Failing to open the socket is returned at once.
func (b *BroadcastAdapter) Announce(ctx context.Context, service ServiceInfo) error {
	dst := &net.UDPAddr{IP: net.ParseIP(b.cfg.BroadcastAddr), Port: b.cfg.Port}
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return fmt.Errorf("open broadcast socket: %w", err)
	}
	adv := protocol.Advertisement{UDPPort: service.UDPPort, TCPPort: service.TCPPort}
	return Broadcast(ctx, conn, dst, adv, b.cfg.Interval)
}

// Discover binds the discovery port and waits for the first advertisement.
// The port is bound shared, so other clients on the same host can discover
// at the same time.
func (b *BroadcastAdapter) Discover(ctx context.Context) (Endpoint, error) {
	lc := net.ListenConfig{Control: reusePort}
	conn, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", b.cfg.Port))
	if err != nil {
		return Endpoint{}, fmt.Errorf("bind discovery port %d: %w", b.cfg.Port, err)
	}
	return Listen(ctx, conn)
}

// Broadcast sends adv to dst immediately and then on every tick until ctx is
// done. Each tick is independent; a failed send is logged and the next tick
// tries again. conn is closed before Broadcast returns.
func Broadcast(ctx context.Context, conn net.PacketConn, dst net.Addr, adv protocol.Advertisement, interval time.Duration) error {
	defer conn.Close()

	msg := protocol.Encode(adv)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		if _, err := conn.WriteTo(msg, dst); err != nil {
			slog.Warn("Failed to broadcast advertisement", "dst", dst.String(), "error", err)
		} else {
			slog.Debug("Broadcasted advertisement", "udp_port", adv.UDPPort, "tcp_port", adv.TCPPort)
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}

	slog.Info("Broadcast stopped")
	return nil
}

// Listen reads datagrams from conn until a valid Advertisement arrives and
// returns the sender's address with the advertised ports. Anything else is
// logged and skipped. conn is closed before Listen returns; cancelling ctx
// closes it early.
func Listen(ctx context.Context, conn net.PacketConn) (Endpoint, error) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	slog.Info("Listening for advertisements", "addr", conn.LocalAddr().String())

	buf := make([]byte, 2048)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Endpoint{}, ctxErr
			}
			return Endpoint{}, fmt.Errorf("receiving advertisement: %w", err)
		}

		msg, err := protocol.Decode(buf[:n])
		if err != nil {
			slog.Debug("Ignoring datagram on discovery port", "from", from.String(), "error", err)
			continue
		}
		adv, ok := msg.(protocol.Advertisement)
		if !ok {
			slog.Debug("Ignoring message on discovery port", "from", from.String(), "kind", msg.Kind().String())
			continue
		}
		udpFrom, ok := from.(*net.UDPAddr)
		if !ok {
			continue
		}

		endpoint := Endpoint{Addr: udpFrom.IP, UDPPort: adv.UDPPort, TCPPort: adv.TCPPort}
		slog.Info("Received advertisement", "server", endpoint.String())
		return endpoint, nil
	}
}
