package display

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// RunLoopbackDriver dials a Manager's own listening address and plays
// the display-driver side of the protocol for a single connection: it
// picks the first offered sample format, drains every Data message
// until Close, then acknowledges. It lets the renderer act as its own
// "file" display client without an external dspy-style process —
// Manager.SendBucket already composites each bucket into its own
// Image independently of what the far end does with the wire bytes,
// so this loop only has to keep the handshake and Data stream moving
// so Manager.active() counts the connection as open.
func RunLoopbackDriver(addr string) error {
	conn, err := net.Dial("tcp4", addr)
	if err != nil {
		return errors.Wrap(err, "display: dialing loopback driver")
	}
	defer conn.Close()
	return driveLoopback(conn)
}

func driveLoopback(conn net.Conn) error {
	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		h, err := readHeader(conn)
		if err != nil {
			return errors.Wrap(err, "display: loopback driver reading header")
		}
		body, err := readBody(conn, h)
		if err != nil {
			return errors.Wrap(err, "display: loopback driver reading body")
		}
		switch h.ID {
		case MsgFormatQuery:
			formats, err := decodeFormatQuery(body)
			if err != nil {
				return err
			}
			if len(formats) == 0 {
				return errors.New("display: FormatQuery offered no formats")
			}
			if err := writeFrame(conn, MsgFormatResponse, FormatResponse{Chosen: formats[0]}.encode()); err != nil {
				return err
			}
		case MsgDisplayType, MsgFilename, MsgNl, MsgNP, MsgOpen, MsgUserParam, MsgData:
			// Contents unused: Manager.SendBucket already composited this
			// bucket into its own Image before it reached the wire.
		case MsgClose:
			return writeFrame(conn, MsgCloseAcknowledge, nil)
		case MsgAbandon:
			return nil
		default:
			return errors.Errorf("display: loopback driver got unexpected message %s", h.ID)
		}
	}
}

func writeFrame(conn net.Conn, id MessageID, body []byte) error {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	if err := writeHeader(conn, id, len(body)); err != nil {
		return errors.Wrapf(err, "display: sending %s header", id)
	}
	if len(body) > 0 {
		if _, err := writeFull(conn, body); err != nil {
			return errors.Wrapf(err, "display: sending %s body", id)
		}
	}
	return nil
}
