package extract

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"manifold/internal/record"
)

const jpegQuality = 90

// EncodeJPEG renders a decoded frame as a JPEG body, applying the
// optional [width, height] downscale first.
func EncodeJPEG(frame *record.Image, downscale []int) ([]byte, error) {
	src, err := frameImage(frame)
	if err != nil {
		return nil, err
	}
	if len(downscale) == 2 {
		src = resizeNearest(src, downscale[0], downscale[1])
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func frameImage(frame *record.Image) (image.Image, error) {
	switch frame.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, frame.Width, frame.Height))
		copy(img.Pix, frame.Pixels)
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
		for i := 0; i < frame.Width*frame.Height; i++ {
			img.Pix[i*4+0] = frame.Pixels[i*3+0]
			img.Pix[i*4+1] = frame.Pixels[i*3+1]
			img.Pix[i*4+2] = frame.Pixels[i*3+2]
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", frame.Channels)
	}
}

func resizeNearest(src image.Image, width, height int) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + x*bounds.Dx()/width
			dst.Set(x, y, color.RGBAModel.Convert(src.At(sx, sy)))
		}
	}
	return dst
}

// savedGeometry reports the dimensions the frame is persisted at.
func savedGeometry(frame *record.Image, downscale []int) (int, int) {
	if len(downscale) == 2 {
		return downscale[0], downscale[1]
	}
	return frame.Width, frame.Height
}

// wavHeaderSize is the byte length of the RIFF/fmt/data preamble.
const wavHeaderSize = 44

// EncodeWAV frames interleaved 32-bit PCM samples into a WAV container.
func EncodeWAV(samples []int32, sampleRate, channels int) []byte {
	dataLen := len(samples) * 4
	buf := make([]byte, wavHeaderSize+dataLen)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*channels*4))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*4))
	binary.LittleEndian.PutUint16(buf[34:36], 32)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(buf[wavHeaderSize+i*4:], uint32(sample))
	}
	return buf
}
