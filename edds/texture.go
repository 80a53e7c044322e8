package edds

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"

	"github.com/woozymasta/bcn"

	"github.com/woozymasta/rasterblock/internal/block"
)

// WriteOptions configures how a texture is written.
type WriteOptions struct {
	// Format is the pixel format. FormatUnknown means BGRA8.
	Format bcn.Format
	// MaxMipMaps limits the mip chain. 0 means the full chain.
	MaxMipMaps int
	// Compress stores mip bodies as LZ4 chunk streams instead of COPY.
	Compress bool
	// EncodeOptions are passed to the BCn encoder.
	EncodeOptions *bcn.EncodeOptions
}

// ReadConfig reads the texture size without decoding pixels.
func ReadConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()

	header, _, err := readHeaders(f)
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		Width:      int(header.Width),
		Height:     int(header.Height),
		ColorModel: color.NRGBAModel,
	}, nil
}

// Read decodes the largest mipmap of the texture at path.
func Read(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()

	return readTexture(f)
}

func readTexture(r io.ReadSeeker) (*image.NRGBA, error) {
	header, dx10, err := readHeaders(r)
	if err != nil {
		return nil, err
	}

	format := detectFormat(header, dx10)
	if format == bcn.FormatUnknown {
		return nil, ErrUnknownFormat
	}
	width, height := int(header.Width), int(header.Height)

	mips := 1
	if header.Caps&bcn.DDSCapsMipmap != 0 && header.MipMapCount > 0 {
		mips = int(header.MipMapCount)
	}

	payload, err := readLargestMip(r, format, width, height, mips)
	if err != nil {
		payload, err = readLegacyPayload(r, dx10 != nil, format, width, height)
		if err != nil {
			return nil, err
		}
	}

	img, err := bcn.DecodeImageWithOptions(payload, width, height, format, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}

	return toNRGBA(img), nil
}

// readLargestMip reads the block table and decodes the level 0 body, which
// is stored last.
func readLargestMip(r io.ReadSeeker, format bcn.Format, width, height, mips int) ([]byte, error) {
	table, err := block.ReadTable(r, mips)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockTable, err)
	}

	for _, h := range table[:len(table)-1] {
		if _, err := r.Seek(int64(h.Size), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("%w: skip %s: %v", ErrBlockBody, h.Magic, err)
		}
	}

	b, err := block.ReadBody(r, table[len(table)-1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockBody, err)
	}
	payload, err := block.Decode(b, payloadSize(format, width, height))
	if err != nil {
		return nil, fmt.Errorf("%w: level 0: %v", ErrBlockBody, err)
	}

	return payload, nil
}

// readLegacyPayload handles older files holding a single payload right after
// the headers instead of a block table. The payload is tried as an LZ4 chunk
// stream first and accepted raw when its size already matches.
func readLegacyPayload(r io.ReadSeeker, hasDX10 bool, format bcn.Format, width, height int) ([]byte, error) {
	start := int64(4 + bcn.DDSHeaderSize)
	if hasDX10 {
		start += 20
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLegacyPayload, err)
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLegacyPayload, err)
	}

	want := payloadSize(format, width, height)
	payload, err := block.Decode(&block.Block{Magic: block.MagicLZ4, Data: rest}, want)
	if err == nil {
		return payload, nil
	}
	if len(rest) == want {
		return rest, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrLegacyPayload, err)
}

func readHeaders(r io.Reader) (*bcn.DDSHeader, *bcn.DDSHeaderDX10, error) {
	header, err := bcn.ReadDDSHeader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDDSHeaderRead, err)
	}

	dx10, err := bcn.ReadDDSHeaderDX10(r, header)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDDSDX10Read, err)
	}

	return header, dx10, nil
}

// WriteWithOptions encodes img with its mip chain and writes the texture to path.
func WriteWithOptions(img image.Image, path string, opts *WriteOptions) error {
	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	if o.Format == bcn.FormatUnknown {
		o.Format = bcn.FormatBGRA8
	}

	bounds := img.Bounds()
	count := mipCount(bounds.Dx(), bounds.Dy())
	if o.MaxMipMaps > 0 {
		count = min(count, o.MaxMipMaps)
	}

	mips := bcn.GenerateMipmaps(img, false)
	if len(mips) > count {
		mips = mips[:count]
	}

	payloads := make([][]byte, len(mips))
	for i, mip := range mips {
		data, _, _, err := bcn.EncodeImageWithOptions(mip, o.Format, o.EncodeOptions)
		if err != nil {
			return fmt.Errorf("%w: level %d: %v", ErrEncodeMipmap, i, err)
		}
		payloads[i] = data
	}

	return WriteMipmaps(path, o.Format, bounds.Dx(), bounds.Dy(), payloads, o.Compress)
}

// WriteMipmaps writes pre-encoded mip payloads, largest first. Bodies are
// stored smallest first, preceded by their table.
func WriteMipmaps(path string, format bcn.Format, width, height int, payloads [][]byte, compress bool) error {
	if len(payloads) == 0 {
		return ErrEmptyMipmaps
	}

	w32, err := block.U32(width)
	if err != nil {
		return err
	}
	h32, err := block.U32(height)
	if err != nil {
		return err
	}
	header, err := makeDDSHeader(w32, h32, uint32(len(payloads)), format) // #nosec G115 -- at most 11 levels
	if err != nil {
		return err
	}

	codec := block.None
	if compress {
		codec = block.LZ4
	}
	blocks := make([]*block.Block, len(payloads))
	for i, p := range payloads {
		want := payloadSize(format, mipDimension(width, i), mipDimension(height, i))
		if len(p) != want {
			return fmt.Errorf("%w: level %d: expected %d, got %d", ErrMipmapSizeMismatch, i, want, len(p))
		}
		if blocks[i], err = block.Encode(codec, p); err != nil {
			return fmt.Errorf("%w: level %d: %v", ErrBlockBody, i, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}
	if err := writeContainer(f, header, blocks); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}

	return nil
}

func writeContainer(w io.Writer, header *bcn.DDSHeader, blocks []*block.Block) error {
	if err := bcn.WriteDDSMagic(w); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteDDSHeader, err)
	}
	if err := bcn.WriteDDSHeader(w, header); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteDDSHeader, err)
	}

	for i := len(blocks) - 1; i >= 0; i-- {
		if err := block.WriteHeader(w, blocks[i].Header()); err != nil {
			return fmt.Errorf("%w: level %d: %v", ErrBlockTable, i, err)
		}
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		if err := block.WriteBody(w, blocks[i]); err != nil {
			return fmt.Errorf("%w: level %d: %v", ErrBlockBody, i, err)
		}
	}

	return nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	return out
}
