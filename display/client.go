package display

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/reyesvm/renderer/internal/rerr"
	"github.com/reyesvm/renderer/internal/rlog"
)

// clientState tracks where one display connection is in the
// handshake/render/teardown lifecycle.
type clientState int

const (
	stateConnecting clientState = iota
	stateNegotiating
	stateOpen
	stateClosing
	stateClosed
)

// Client drives one display connection through the protocol's
// connection lifecycle: accept, negotiate format, send scene setup,
// stream buckets, close.
type Client struct {
	Name     string // Declared display name, used for Filename
	Type     string // Driver type string sent as DisplayType
	Required bool   // a refused connection aborts the frame if true

	conn  net.Conn
	state clientState
	log   rlog.Context

	chosen SampleFormat
}

// NewClient wraps an already-accepted connection. The renderer side
// dials or accepts; Client only drives the message sequence.
func NewClient(name, typ string, required bool, conn net.Conn, log rlog.Context) *Client {
	return &Client{Name: name, Type: typ, Required: required, conn: conn, state: stateConnecting, log: log.Tag("display", name)}
}

// Negotiate runs the handshake: FormatQuery, block for a matching
// FormatResponse, then DisplayType, Filename, Nl, NP, Open.
func (c *Client) Negotiate(ctx context.Context, offered []SampleFormat, filename string, worldToCamera, worldToScreen [16]float32, open Open) error {
	if c.state != stateConnecting {
		return errors.Errorf("display: Negotiate called in state %d", c.state)
	}
	c.state = stateNegotiating

	if err := c.send(MsgFormatQuery, FormatQuery{Formats: offered}.encode()); err != nil {
		return c.fail(err)
	}
	h, body, err := c.recv()
	if err != nil {
		return c.fail(err)
	}
	if h.ID != MsgFormatResponse {
		return c.fail(errors.Errorf("display: expected FormatResponse, got %s", h.ID))
	}
	resp, err := decodeFormatResponse(body)
	if err != nil {
		return c.fail(err)
	}
	if !formatOffered(resp.Chosen, offered) {
		return c.fail(errors.Errorf("display: client chose unoffered format %d", resp.Chosen))
	}
	c.chosen = resp.Chosen

	if err := c.send(MsgDisplayType, DisplayType{Type: c.Type}.encode()); err != nil {
		return c.fail(err)
	}
	if err := c.send(MsgFilename, Filename{Name: filename}.encode()); err != nil {
		return c.fail(err)
	}
	if err := c.send(MsgNl, Nl{M: worldToCamera}.encode()); err != nil {
		return c.fail(err)
	}
	if err := c.send(MsgNP, NP{M: worldToScreen}.encode()); err != nil {
		return c.fail(err)
	}
	if err := c.send(MsgOpen, open.encode()); err != nil {
		return c.fail(err)
	}
	c.state = stateOpen
	return nil
}

// Format returns the sample format negotiated by Negotiate.
func (c *Client) Format() SampleFormat { return c.chosen }

// SendUserParam forwards one declared display parameter, valid any
// time after Negotiate and before Close.
func (c *Client) SendUserParam(p UserParam) error {
	if c.state != stateOpen {
		return errors.Errorf("display: SendUserParam called in state %d", c.state)
	}
	return c.send(MsgUserParam, p.encode())
}

// SendData transmits one rendered bucket.
func (c *Client) SendData(d Data) error {
	if c.state != stateOpen {
		return errors.Errorf("display: SendData called in state %d", c.state)
	}
	return c.send(MsgData, d.encode())
}

// Close sends Close, blocks for CloseAcknowledge, and closes the
// socket. A socket error here still closes the connection locally.
func (c *Client) Close(ctx context.Context) error {
	if c.state != stateOpen {
		return nil
	}
	c.state = stateClosing
	defer func() {
		c.conn.Close()
		c.state = stateClosed
	}()

	if err := c.send(MsgClose, nil); err != nil {
		return err
	}
	h, _, err := c.recv()
	if err != nil {
		return err
	}
	if h.ID != MsgCloseAcknowledge {
		return errors.Errorf("display: expected CloseAcknowledge, got %s", h.ID)
	}
	return nil
}

// Abandon sends the Abandon message and drops the connection without
// waiting for any reply, used when the frame-wide abandon flag fires.
func (c *Client) Abandon() error {
	if c.state != stateOpen {
		return nil
	}
	err := c.send(MsgAbandon, nil)
	c.conn.Close()
	c.state = stateClosed
	return err
}

func (c *Client) send(id MessageID, body []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	if err := writeHeader(c.conn, id, len(body)); err != nil {
		return errors.Wrapf(err, "display: sending %s header", id)
	}
	if len(body) > 0 {
		if _, err := writeFull(c.conn, body); err != nil {
			return errors.Wrapf(err, "display: sending %s body", id)
		}
	}
	return nil
}

func (c *Client) recv() (header, []byte, error) {
	c.conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	h, err := readHeader(c.conn)
	if err != nil {
		return header{}, nil, errors.Wrap(err, "display: reading message header")
	}
	body, err := readBody(c.conn, h)
	if err != nil {
		return header{}, nil, err
	}
	return h, body, nil
}

// fail logs the failure (at error severity for a required display,
// warning otherwise) and, for a required display, wraps err
// as a fatal-per-frame error per the "connection refused for a required
// display aborts the frame" rule; a non-required display's failure is
// logged and swallowed so the frame continues without it.
func (c *Client) fail(err error) error {
	c.conn.Close()
	c.state = stateClosed
	if c.Required {
		c.log.Error().Err(err).Logf("display: required display failed, aborting frame")
		return rerr.FatalFrame("display %q: %v", c.Name, err)
	}
	c.log.Warning().Err(err).Logf("display: non-required display failed, continuing without it")
	return nil
}

func formatOffered(chosen SampleFormat, offered []SampleFormat) bool {
	for _, f := range offered {
		if f == chosen {
			return true
		}
	}
	return false
}
