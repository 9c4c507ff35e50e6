package imageprocessing

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image/color"
	"io"
)

// PalettedEncoder writes palette-indexed PNGs (color type 3) for one color
// table. The bit depth is the smallest of 1, 2, 4 and 8 that can address the
// palette.
type PalettedEncoder struct {
	palette  color.Palette
	bitDepth int
}

// NewPalettedEncoder registers palette as the PNG color table.
func NewPalettedEncoder(palette color.Palette) (*PalettedEncoder, error) {
	if len(palette) == 0 || len(palette) > maxPaletteColors {
		return nil, fmt.Errorf("palette must have 1-256 colors, got %d", len(palette))
	}
	return &PalettedEncoder{palette: palette, bitDepth: bitDepthFor(len(palette))}, nil
}

func bitDepthFor(colors int) int {
	switch {
	case colors <= 2:
		return 1
	case colors <= 4:
		return 2
	case colors <= 16:
		return 4
	default:
		return 8
	}
}

// BitDepth returns the bits used per pixel.
func (e *PalettedEncoder) BitDepth() int { return e.bitDepth }

// Encode writes img as PNG to w.
func (e *PalettedEncoder) Encode(w io.Writer, img *IndexedImage) error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}
	if len(img.Indices) != img.Width*img.Height {
		return fmt.Errorf("index buffer has %d entries, want %d", len(img.Indices), img.Width*img.Height)
	}

	var buf bytes.Buffer

	// PNG signature
	buf.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})

	writeChunk(&buf, "IHDR", func(data *bytes.Buffer) {
		binary.Write(data, binary.BigEndian, uint32(img.Width))
		binary.Write(data, binary.BigEndian, uint32(img.Height))
		data.WriteByte(uint8(e.bitDepth))
		data.WriteByte(3) // Color type: indexed
		data.WriteByte(0) // Compression method
		data.WriteByte(0) // Filter method
		data.WriteByte(0) // Interlace method
	})

	// PLTE holds RGB, tRNS the alpha of each entry up to the last
	// non-opaque one.
	lastTranslucent := -1
	writeChunk(&buf, "PLTE", func(data *bytes.Buffer) {
		for i, c := range e.palette {
			n := color.NRGBAModel.Convert(c).(color.NRGBA)
			data.Write([]byte{n.R, n.G, n.B})
			if n.A != 255 {
				lastTranslucent = i
			}
		}
	})
	if lastTranslucent >= 0 {
		writeChunk(&buf, "tRNS", func(data *bytes.Buffer) {
			for _, c := range e.palette[:lastTranslucent+1] {
				data.WriteByte(color.NRGBAModel.Convert(c).(color.NRGBA).A)
			}
		})
	}

	imageData, err := e.packIndices(img)
	if err != nil {
		return fmt.Errorf("failed to pack image data: %w", err)
	}
	compressedData, err := zlibCompress(imageData)
	if err != nil {
		return fmt.Errorf("failed to compress image data: %w", err)
	}
	writeChunk(&buf, "IDAT", func(data *bytes.Buffer) {
		data.Write(compressedData)
	})

	writeChunk(&buf, "IEND", func(data *bytes.Buffer) {})

	_, err = w.Write(buf.Bytes())
	return err
}

// packIndices packs palette indices according to the bit depth, each row
// prefixed with filter type None.
func (e *PalettedEncoder) packIndices(img *IndexedImage) ([]byte, error) {
	pixelsPerByte := 8 / e.bitDepth
	bytesPerRow := (img.Width + pixelsPerByte - 1) / pixelsPerByte
	data := make([]byte, img.Height*(bytesPerRow+1))

	for y := 0; y < img.Height; y++ {
		rowStart := y * (bytesPerRow + 1)
		data[rowStart] = 0
		for x := 0; x < img.Width; x++ {
			idx := img.Indices[y*img.Width+x]
			if int(idx) >= len(e.palette) {
				return nil, fmt.Errorf("index %d outside palette of %d colors", idx, len(e.palette))
			}
			byteIndex := rowStart + 1 + x/pixelsPerByte
			bitOffset := (pixelsPerByte - 1 - (x % pixelsPerByte)) * e.bitDepth
			data[byteIndex] |= idx << bitOffset
		}
	}
	return data, nil
}

// writeChunk writes a PNG chunk with proper CRC
func writeChunk(buf *bytes.Buffer, chunkType string, dataWriter func(*bytes.Buffer)) {
	var chunkData bytes.Buffer
	dataWriter(&chunkData)

	data := chunkData.Bytes()

	binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.WriteString(chunkType)
	buf.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(chunkType))
	crc.Write(data)
	binary.Write(buf, binary.BigEndian, crc.Sum32())
}

// zlibCompress compresses data using proper zlib compression
func zlibCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zlib writer: %w", err)
	}

	return buf.Bytes(), nil
}
