// Package display implements the display-driver wire protocol: a
// length-prefixed binary framing over a TCP connection to a display
// client process, bucket compositing into the client's image buffer,
// and TIFF output when the frame closes.
package display

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

// MessageID identifies a wire message's type and direction.
type MessageID uint32

const (
	MsgString           MessageID = 0
	MsgFormatQuery      MessageID = 1
	MsgData             MessageID = 2
	MsgOpen             MessageID = 3
	MsgClose            MessageID = 4
	MsgFilename         MessageID = 5
	MsgNl               MessageID = 6
	MsgNP               MessageID = 7
	MsgDisplayType      MessageID = 8
	MsgAbandon          MessageID = 9
	MsgUserParam        MessageID = 10
	MsgFormatResponse   MessageID = 0x8001
	MsgCloseAcknowledge MessageID = 0x8002
)

func (id MessageID) String() string {
	switch id {
	case MsgString:
		return "String"
	case MsgFormatQuery:
		return "FormatQuery"
	case MsgData:
		return "Data"
	case MsgOpen:
		return "Open"
	case MsgClose:
		return "Close"
	case MsgFilename:
		return "Filename"
	case MsgNl:
		return "Nl"
	case MsgNP:
		return "NP"
	case MsgDisplayType:
		return "DisplayType"
	case MsgAbandon:
		return "Abandon"
	case MsgUserParam:
		return "UserParam"
	case MsgFormatResponse:
		return "FormatResponse"
	case MsgCloseAcknowledge:
		return "CloseAcknowledge"
	default:
		return fmt.Sprintf("MessageID(0x%x)", uint32(id))
	}
}

// SampleFormat identifies the wire encoding of one Data sample.
type SampleFormat int32

const (
	FormatFloat32 SampleFormat = iota
	FormatSigned32
	FormatUnsigned32
	FormatSigned16
	FormatUnsigned16
	FormatSigned8
	FormatUnsigned8
)

// byteOrder is the framing's fixed wire endianness. The protocol table
// calls for "native byte order"; every display client this renderer
// talks to runs little-endian (x86/ARM), matching the policy the
// teacher's own device-capture framing (gapii/client/header.go) hardcodes
// rather than negotiating.
var byteOrder = binary.LittleEndian

// header is the 8 bytes that precede every message body: a 4-byte
// MessageID and a 4-byte total length (header + body).
type header struct {
	ID     MessageID
	Length uint32
}

const headerSize = 8

func writeHeader(w io.Writer, id MessageID, bodyLen int) error {
	var buf [headerSize]byte
	byteOrder.PutUint32(buf[0:4], uint32(id))
	byteOrder.PutUint32(buf[4:8], uint32(headerSize+bodyLen))
	_, err := writeFull(w, buf[:])
	return err
}

// readHeader blocks until a full 8-byte header arrives, looping
// partial reads the way the protocol's "partial reads from recv are
// looped" rule requires.
func readHeader(r io.Reader) (header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return header{}, err
	}
	return header{
		ID:     MessageID(byteOrder.Uint32(buf[0:4])),
		Length: byteOrder.Uint32(buf[4:8]),
	}, nil
}

// writeFull loops conn.Write until every byte of p is sent or an error
// occurs, the send-side counterpart of readHeader's ReadFull looping.
func writeFull(w io.Writer, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := w.Write(p[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func readBody(r io.Reader, h header) ([]byte, error) {
	if h.Length < headerSize {
		return nil, errors.Errorf("display: message %s declares length %d shorter than header", h.ID, h.Length)
	}
	body := make([]byte, h.Length-headerSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrapf(err, "display: reading %s body", h.ID)
	}
	return body, nil
}

// putString writes a 4-byte length prefix followed by the raw bytes of
// s, the variable-length tail-field convention every string/array
// field in the protocol table shares.
func putString(buf *bytes.Buffer, s string) {
	var lenBuf [4]byte
	byteOrder.PutUint32(lenBuf[:], uint32(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func getString(r *bytes.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := byteOrder.Uint32(lenBuf[:])
	s := make([]byte, n)
	if _, err := io.ReadFull(r, s); err != nil {
		return "", err
	}
	return string(s), nil
}

func putUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	buf.Write(b[:])
}

func getUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b[:]), nil
}

func putInt32(buf *bytes.Buffer, v int32) { putUint32(buf, uint32(v)) }

func getInt32(r *bytes.Reader) (int32, error) {
	v, err := getUint32(r)
	return int32(v), err
}

func putFloat32(buf *bytes.Buffer, v float32) {
	putUint32(buf, math.Float32bits(v))
}

func getFloat32(r *bytes.Reader) (float32, error) {
	v, err := getUint32(r)
	return math.Float32frombits(v), err
}
