package display

import (
	"context"
	"net"
	"testing"

	"github.com/reyesvm/renderer/internal/rlog"
)

func TestLoopbackDriverCompletesNegotiateAndClose(t *testing.T) {
	rendererConn, driverConn := net.Pipe()
	defer rendererConn.Close()

	done := make(chan error, 1)
	go func() { done <- driveLoopback(driverConn) }()

	c := NewClient("beauty", "file", true, rendererConn, rlog.Background())
	open := Open{XRes: 4, YRes: 4, Channels: 3, CropXMax: 4, CropYMax: 4}
	offered := []SampleFormat{FormatFloat32, FormatUnsigned8}
	if err := c.Negotiate(context.Background(), offered, "out.tif", [16]float32{}, [16]float32{}, open); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if c.Format() != FormatFloat32 {
		t.Fatalf("Format() = %v, want the first offered format FormatFloat32", c.Format())
	}
	if err := c.SendData(Data{XMin: 0, XMaxPlus1: 1, YMin: 0, YMaxPlus1: 1, BytesPerSample: 4, Bytes: make([]byte, 16)}); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("driveLoopback: %v", err)
	}
}
