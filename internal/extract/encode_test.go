package extract

import (
	"bytes"
	"encoding/binary"
	"image/jpeg"
	"testing"

	"manifold/internal/record"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := []int32{1, -1, 2, -2}
	body := EncodeWAV(samples, 48000, 2)

	if len(body) != wavHeaderSize+len(samples)*4 {
		t.Fatalf("unexpected body length %d", len(body))
	}
	if string(body[0:4]) != "RIFF" || string(body[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint16(body[20:22]); got != 1 {
		t.Fatalf("audio format = %d, want PCM", got)
	}
	if got := binary.LittleEndian.Uint16(body[22:24]); got != 2 {
		t.Fatalf("channels = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(body[24:28]); got != 48000 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint16(body[34:36]); got != 32 {
		t.Fatalf("bits per sample = %d", got)
	}
	if got := binary.LittleEndian.Uint32(body[40:44]); got != uint32(len(samples)*4) {
		t.Fatalf("data length = %d", got)
	}
	if got := int32(binary.LittleEndian.Uint32(body[wavHeaderSize+4:])); got != -1 {
		t.Fatalf("second sample = %d, want -1", got)
	}
}

func TestEncodeJPEGGray(t *testing.T) {
	frame := &record.Image{
		Pixels:   make([]byte, 8*6),
		Width:    8,
		Height:   6,
		Channels: 1,
	}
	body, err := EncodeJPEG(frame, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Fatalf("unexpected geometry %v", img.Bounds())
	}
}

func TestEncodeJPEGDownscale(t *testing.T) {
	frame := &record.Image{
		Pixels:   make([]byte, 8*8*3),
		Width:    8,
		Height:   8,
		Channels: 3,
	}
	body, err := EncodeJPEG(frame, []int{4, 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 2 {
		t.Fatalf("downscale not applied: %v", img.Bounds())
	}
}

func TestEncodeJPEGRejectsOddChannelCount(t *testing.T) {
	frame := &record.Image{Pixels: make([]byte, 4), Width: 2, Height: 1, Channels: 2}
	if _, err := EncodeJPEG(frame, nil); err == nil {
		t.Fatal("expected error for 2-channel frame")
	}
}
