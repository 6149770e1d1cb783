package display

import (
	"bytes"

	"github.com/pkg/errors"
)

// FormatQuery is sent after accepting a connection, asking the client
// to pick one of the offered sample formats.
type FormatQuery struct {
	Formats []SampleFormat
}

func (m FormatQuery) encode() []byte {
	var buf bytes.Buffer
	putUint32(&buf, uint32(len(m.Formats)))
	for _, f := range m.Formats {
		putInt32(&buf, int32(f))
	}
	return buf.Bytes()
}

func decodeFormatQuery(body []byte) ([]SampleFormat, error) {
	r := bytes.NewReader(body)
	n, err := getUint32(r)
	if err != nil {
		return nil, errors.Wrap(err, "display: decoding FormatQuery")
	}
	out := make([]SampleFormat, n)
	for i := range out {
		v, err := getInt32(r)
		if err != nil {
			return nil, errors.Wrap(err, "display: decoding FormatQuery")
		}
		out[i] = SampleFormat(v)
	}
	return out, nil
}

// FormatResponse is the client's reply to FormatQuery.
type FormatResponse struct {
	Chosen SampleFormat
}

func (m FormatResponse) encode() []byte {
	var buf bytes.Buffer
	putInt32(&buf, int32(m.Chosen))
	return buf.Bytes()
}

func decodeFormatResponse(body []byte) (FormatResponse, error) {
	r := bytes.NewReader(body)
	v, err := getInt32(r)
	if err != nil {
		return FormatResponse{}, errors.Wrap(err, "display: decoding FormatResponse")
	}
	return FormatResponse{Chosen: SampleFormat(v)}, nil
}

// Open announces the image dimensions, channel count and crop window
// before any buckets arrive.
type Open struct {
	XRes, YRes         int32
	Channels           int32
	CropXMin, CropXMax int32
	CropYMin, CropYMax int32
}

func (m Open) encode() []byte {
	var buf bytes.Buffer
	putInt32(&buf, m.XRes)
	putInt32(&buf, m.YRes)
	putInt32(&buf, m.Channels)
	putInt32(&buf, 0) // reserved field in the protocol table
	putInt32(&buf, m.CropXMin)
	putInt32(&buf, m.CropXMax)
	putInt32(&buf, m.CropYMin)
	putInt32(&buf, m.CropYMax)
	return buf.Bytes()
}

// Data carries one rendered bucket's pixels in the negotiated sample
// format, RGBA channel order.
type Data struct {
	XMin, XMaxPlus1 int32
	YMin, YMaxPlus1 int32
	BytesPerSample  int32
	Bytes           []byte
}

func (m Data) encode() []byte {
	var buf bytes.Buffer
	putInt32(&buf, m.XMin)
	putInt32(&buf, m.XMaxPlus1)
	putInt32(&buf, m.YMin)
	putInt32(&buf, m.YMaxPlus1)
	putInt32(&buf, m.BytesPerSample)
	putUint32(&buf, uint32(len(m.Bytes)))
	buf.Write(m.Bytes)
	return buf.Bytes()
}

func decodeData(body []byte) (Data, error) {
	r := bytes.NewReader(body)
	var m Data
	var err error
	if m.XMin, err = getInt32(r); err != nil {
		return Data{}, err
	}
	if m.XMaxPlus1, err = getInt32(r); err != nil {
		return Data{}, err
	}
	if m.YMin, err = getInt32(r); err != nil {
		return Data{}, err
	}
	if m.YMaxPlus1, err = getInt32(r); err != nil {
		return Data{}, err
	}
	if m.BytesPerSample, err = getInt32(r); err != nil {
		return Data{}, err
	}
	n, err := getUint32(r)
	if err != nil {
		return Data{}, err
	}
	m.Bytes = make([]byte, n)
	if _, err := r.Read(m.Bytes); err != nil {
		return Data{}, err
	}
	return m, nil
}

// Filename names the output TIFF the client should write on Close.
type Filename struct{ Name string }

func (m Filename) encode() []byte {
	var buf bytes.Buffer
	putString(&buf, m.Name)
	return buf.Bytes()
}

// Nl carries the world-to-camera matrix, row-major.
type Nl struct{ M [16]float32 }

func (m Nl) encode() []byte {
	var buf bytes.Buffer
	for _, f := range m.M {
		putFloat32(&buf, f)
	}
	return buf.Bytes()
}

// NP carries the world-to-screen matrix, row-major.
type NP struct{ M [16]float32 }

func (m NP) encode() []byte {
	var buf bytes.Buffer
	for _, f := range m.M {
		putFloat32(&buf, f)
	}
	return buf.Bytes()
}

// DisplayType names the driver type string ("file", "framebuffer", ...).
type DisplayType struct{ Type string }

func (m DisplayType) encode() []byte {
	var buf bytes.Buffer
	putString(&buf, m.Type)
	return buf.Bytes()
}

// UserParamType classifies a UserParam message's payload.
type UserParamType int32

const (
	UserParamFloat UserParamType = iota
	UserParamInt
	UserParamString
)

// UserParam forwards an arbitrary declared display parameter (e.g.
// "compression", "quantize") after Open, matching the source's
// best-effort parameter-passthrough behavior.
type UserParam struct {
	Type UserParamType
	Name string
	Data []byte
	// Count is the number of Type-sized elements packed in Data
	// (e.g. 3 for a "quantize" triple).
	Count int32
}

func (m UserParam) encode() []byte {
	var buf bytes.Buffer
	putInt32(&buf, int32(m.Type))
	putUint32(&buf, uint32(len(m.Name)))
	putUint32(&buf, uint32(len(m.Data)))
	putInt32(&buf, m.Count)
	buf.WriteString(m.Name)
	buf.Write(m.Data)
	return buf.Bytes()
}
