package pdfdoc

import (
	"bytes"
	"image/jpeg"
	"testing"
)

func TestEncodeRawPixelsGray(t *testing.T) {
	const w, h = 4, 3
	data := make([]byte, w*h)
	for i := range data {
		data[i] = byte(i * 20)
	}

	out := encodeRawPixels(data, w, h, "DeviceGray")
	if out == nil {
		t.Fatal("encodeRawPixels returned nil for valid gray data")
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a decodable JPEG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		t.Errorf("decoded size = %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
}

func TestEncodeRawPixelsRGB(t *testing.T) {
	const w, h = 2, 2
	data := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 128, 128, 128,
	}

	out := encodeRawPixels(data, w, h, "DeviceRGB")
	if out == nil {
		t.Fatal("encodeRawPixels returned nil for valid RGB data")
	}
	if !bytes.HasPrefix(out, jpegMagic) {
		t.Error("output does not start with JPEG magic")
	}
}

func TestEncodeRawPixelsInvalid(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		w, h       int
		colorSpace string
	}{
		{"zero width", make([]byte, 12), 0, 4, "DeviceRGB"},
		{"zero height", make([]byte, 12), 4, 0, "DeviceRGB"},
		{"short buffer", make([]byte, 5), 4, 4, "DeviceRGB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if out := encodeRawPixels(tt.data, tt.w, tt.h, tt.colorSpace); out != nil {
				t.Error("expected nil for invalid input")
			}
		})
	}
}

func TestEncodeRawPixelsWithPredictor(t *testing.T) {
	// 2x2 gray image with PNG None filter: each row is filter byte + pixels.
	data := []byte{
		0, 10, 20,
		0, 30, 40,
	}

	out := encodeRawPixels(data, 2, 2, "DeviceGray")
	if out == nil {
		t.Fatal("encodeRawPixels returned nil for predictor-encoded data")
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("output is not a decodable JPEG: %v", err)
	}
}

func TestUnfilterRows(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		rowBytes int
		height   int
		channels int
		want     []byte
	}{
		{
			name:     "none filter",
			data:     []byte{0, 1, 2, 0, 3, 4},
			rowBytes: 2, height: 2, channels: 1,
			want: []byte{1, 2, 3, 4},
		},
		{
			name:     "sub filter accumulates left neighbor",
			data:     []byte{1, 10, 5, 5},
			rowBytes: 3, height: 1, channels: 1,
			want: []byte{10, 15, 20},
		},
		{
			name:     "up filter adds previous row",
			data:     []byte{0, 10, 20, 2, 1, 2},
			rowBytes: 2, height: 2, channels: 1,
			want: []byte{10, 20, 11, 22},
		},
		{
			name:     "unknown filter rejected",
			data:     []byte{9, 1, 2},
			rowBytes: 2, height: 1, channels: 1,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := unfilterRows(tt.data, tt.rowBytes, tt.height, tt.channels)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("unfilterRows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaeth(t *testing.T) {
	tests := []struct {
		a, b, c byte
		want    byte
	}{
		{0, 0, 0, 0},
		{10, 20, 10, 20}, // p = 20, closest to b
		{20, 10, 10, 20}, // p = 20, closest to a
		{100, 100, 100, 100},
	}

	for _, tt := range tests {
		if got := paeth(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("paeth(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}
