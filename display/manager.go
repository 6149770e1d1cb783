package display

import (
	"context"
	"fmt"
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/reyesvm/renderer/internal/rlog"
)

// Request is one renderer-side Display declaration: what the scene
// asked for, before a connection exists.
type Request struct {
	Name     string
	Type     string
	Mode     string
	Required bool
	Offered  []SampleFormat
	Params   []UserParam
}

// Manager owns the listening socket and every display connection for
// one frame, fanning bucket output out to each open client and
// enforcing the "abandon" cancellation rule across all of them at once.
type Manager struct {
	listener net.Listener
	clients  []*Client
	images   map[string]*Image
	log      rlog.Context
}

// Listen opens the display-driver port. Port 0 lets the OS pick a free
// port, read back via Manager.Port.
func Listen(port int, log rlog.Context) (*Manager, error) {
	l, err := net.Listen("tcp4", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, errors.Wrap(err, "display: opening listener")
	}
	return &Manager{listener: l, images: map[string]*Image{}, log: log}, nil
}

// Port returns the TCP port the manager is listening on.
func (m *Manager) Port() int {
	return m.listener.Addr().(*net.TCPAddr).Port
}

// Close shuts down the listening socket. Open client connections are
// unaffected; call CloseAll to tear those down too.
func (m *Manager) Close() error { return m.listener.Close() }

// Accept blocks for one inbound connection and wraps it as a Client
// for req, without running the negotiation handshake yet.
func (m *Manager) Accept(req Request) (*Client, error) {
	conn, err := m.listener.Accept()
	if err != nil {
		return nil, errors.Wrap(err, "display: accepting connection")
	}
	c := NewClient(req.Name, req.Type, req.Required, conn, m.log)
	m.clients = append(m.clients, c)
	return c, nil
}

// NegotiateAll runs Negotiate concurrently across every accepted
// client (one goroutine per display, per spec.md §5's "dedicated
// sockets" model) inside an errgroup bound to ctx; a required
// display's fatal-frame failure cancels every other negotiation in
// flight and is returned. Non-required failures are swallowed inside
// Client.Negotiate's own error path and simply drop that client from
// the active set (detected here by Open never having been reached).
func (m *Manager) NegotiateAll(ctx context.Context, byName map[string]Request, filename string, worldToCamera, worldToScreen [16]float32, open Open) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range m.clients {
		c := c
		req := byName[c.Name]
		g.Go(func() error {
			return c.Negotiate(ctx, req.Offered, filename, worldToCamera, worldToScreen, open)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, c := range m.clients {
		req := byName[c.Name]
		for _, p := range req.Params {
			if c.state != stateOpen {
				continue
			}
			if err := c.SendUserParam(p); err != nil {
				if fail := c.fail(err); fail != nil {
					return fail
				}
			}
		}
	}
	return nil
}

// active returns the clients that completed negotiation and are still
// open, i.e. the set bucket output should actually reach.
func (m *Manager) active() []*Client {
	var out []*Client
	for _, c := range m.clients {
		if c.state == stateOpen {
			out = append(out, c)
		}
	}
	return out
}

// SendBucket composites rgba (a rendered bucket's samples in RGBA
// order) into every open client's Image and transmits it on the wire
// in that client's negotiated format, concurrently.
func (m *Manager) SendBucket(ctx context.Context, xmin, ymin, xmaxPlus1, ymaxPlus1 int, rgba []float32) error {
	g, _ := errgroup.WithContext(ctx)
	for _, c := range m.active() {
		c := c
		g.Go(func() error {
			img := m.images[c.Name]
			img.CompositeBucket(xmin, ymin, xmaxPlus1, ymaxPlus1, rgba)
			samples, bps := EncodeSamples(rgba, c.Format())
			err := c.SendData(Data{
				XMin: int32(xmin), XMaxPlus1: int32(xmaxPlus1),
				YMin: int32(ymin), YMaxPlus1: int32(ymaxPlus1),
				BytesPerSample: int32(bps), Bytes: samples,
			})
			if err != nil {
				if fail := c.fail(err); fail != nil {
					return fail
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// RegisterImage allocates the accumulation buffer a client's future
// SendBucket calls will composite into; call once per client right
// after a successful Negotiate.
func (m *Manager) RegisterImage(name string, xres, yres, channels int) {
	m.images[name] = NewImage(xres, yres, channels)
}

// Image returns the accumulated image for a named display, for TIFF
// output once the frame closes.
func (m *Manager) Image(name string) *Image { return m.images[name] }

// CloseAll sends Close and awaits CloseAcknowledge on every active
// client concurrently, returning the first error (a socket failure
// mid-close does not prevent closing the rest).
func (m *Manager) CloseAll(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for _, c := range m.active() {
		c := c
		g.Go(func() error { return c.Close(ctx) })
	}
	return g.Wait()
}

// AbandonAll sends Abandon to every active client and drops the
// connections, the dispatcher-wide cancellation rule from spec.md §5.
func (m *Manager) AbandonAll() {
	for _, c := range m.active() {
		if err := c.Abandon(); err != nil {
			m.log.Warning().Err(err).Logf("display: error abandoning %s", c.Name)
		}
	}
}

// Port0 is the renderer's conventional display-driver port, the digits
// "AQSIS" maps to on a phone keypad. Nothing in this repository passes
// it to Listen; cmd/render's -port flag defaults to 0 (a free port).
const Port0 = 27747
