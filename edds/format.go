package edds

import (
	"fmt"
	"strings"

	"github.com/woozymasta/bcn"
)

// fourCCFormats maps DDS FourCC codes to formats.
var fourCCFormats = map[string]bcn.Format{
	"DXT1": bcn.FormatDXT1,
	"DXT2": bcn.FormatDXT3,
	"DXT3": bcn.FormatDXT3,
	"DXT4": bcn.FormatDXT5,
	"DXT5": bcn.FormatDXT5,
	"ATI1": bcn.FormatBC4,
	"BC4U": bcn.FormatBC4,
	"BC4S": bcn.FormatBC4,
	"ATI2": bcn.FormatBC5,
	"BC5U": bcn.FormatBC5,
	"BC5S": bcn.FormatBC5,
}

// dxgiFormats maps DXGI_FORMAT values of the DX10 extension to formats.
var dxgiFormats = map[uint32]bcn.Format{
	28: bcn.FormatRGBA8,
	71: bcn.FormatDXT1,
	74: bcn.FormatDXT3,
	77: bcn.FormatDXT5,
	80: bcn.FormatBC4,
	83: bcn.FormatBC5,
	87: bcn.FormatBGRA8,
}

// compressedFourCC is the FourCC written for each block-compressed format.
var compressedFourCC = map[bcn.Format]string{
	bcn.FormatDXT1: "DXT1",
	bcn.FormatDXT3: "DXT3",
	bcn.FormatDXT5: "DXT5",
	bcn.FormatBC4:  "ATI1",
	bcn.FormatBC5:  "ATI2",
}

// rgbaMasks are the R, G, B, A masks of the uncompressed 32-bit formats.
var rgbaMasks = map[bcn.Format][4]uint32{
	bcn.FormatRGBA8: {0x000000ff, 0x0000ff00, 0x00ff0000, 0xff000000},
	bcn.FormatBGRA8: {0x00ff0000, 0x0000ff00, 0x000000ff, 0xff000000},
}

// writableFormats are the formats accepted by the FORMAT creation option.
var writableFormats = map[string]bcn.Format{
	"BGRA8": bcn.FormatBGRA8,
	"RGBA8": bcn.FormatRGBA8,
	"DXT1":  bcn.FormatDXT1,
	"DXT5":  bcn.FormatDXT5,
}

// ParseFormat parses a FORMAT creation option value.
func ParseFormat(name string) (bcn.Format, error) {
	f, ok := writableFormats[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return bcn.FormatUnknown, fmt.Errorf("%w: %q", ErrInvalidFormat, name)
	}

	return f, nil
}

// detectFormat resolves the pixel format of a texture header.
func detectFormat(header *bcn.DDSHeader, dx10 *bcn.DDSHeaderDX10) bcn.Format {
	if dx10 != nil {
		if f, ok := dxgiFormats[dx10.DXGIFormat]; ok {
			return f
		}
		return bcn.FormatUnknown
	}

	pf := header.PixelFormat
	if pf.Flags&bcn.DDSPFFourCC != 0 {
		if f, ok := fourCCFormats[fourCCString(pf.FourCC)]; ok {
			return f
		}
		return bcn.FormatUnknown
	}

	if pf.Flags&bcn.DDSPFRGB != 0 && pf.Flags&bcn.DDSPFAlphaPixels != 0 && pf.RGBBitCount == 32 {
		got := [4]uint32{pf.RBitMask, pf.GBitMask, pf.BBitMask, pf.ABitMask}
		for f, masks := range rgbaMasks {
			if got == masks {
				return f
			}
		}
	}

	if pf.Flags&bcn.DDSPFLuminance != 0 && pf.RGBBitCount == 8 {
		return bcn.FormatRGBA8
	}

	return bcn.FormatUnknown
}

func fourCCString(v uint32) string {
	return string([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func makeFourCC(code string) uint32 {
	return uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
}

// payloadSize is the encoded size of a width x height mip in format, or -1.
func payloadSize(format bcn.Format, width, height int) int {
	blocks := ((width + 3) / 4) * ((height + 3) / 4)
	switch format {
	case bcn.FormatDXT1, bcn.FormatBC4:
		return blocks * 8
	case bcn.FormatDXT3, bcn.FormatDXT5, bcn.FormatBC5:
		return blocks * 16
	case bcn.FormatRGBA8, bcn.FormatBGRA8:
		return width * height * 4
	default:
		return -1
	}
}

// engineReserved marks the header as written for the Enfusion engine ("ENF1").
func engineReserved() [11]uint32 {
	var r [11]uint32
	r[1] = makeFourCC("ENF1")
	return r
}

func makeDDSHeader(width, height, mipMapCount uint32, format bcn.Format) (*bcn.DDSHeader, error) {
	hdr := &bcn.DDSHeader{
		Size:        bcn.DDSHeaderSize,
		Flags:       uint32(bcn.DDSFlagCaps | bcn.DDSFlagHeight | bcn.DDSFlagWidth | bcn.DDSFlagPixelFormat),
		Height:      height,
		Width:       width,
		Depth:       1,
		MipMapCount: mipMapCount,
		Reserved1:   engineReserved(),
		Caps:        uint32(bcn.DDSCapsTexture),
	}
	if mipMapCount > 1 {
		hdr.Flags |= bcn.DDSFlagMipmapCount
		hdr.Caps |= bcn.DDSCapsComplex | bcn.DDSCapsMipmap
	}
	hdr.PixelFormat.Size = bcn.DDSPixelFormatSize

	if code, ok := compressedFourCC[format]; ok {
		hdr.Flags |= bcn.DDSFlagLinearSize
		hdr.PixelFormat.Flags = bcn.DDSPFFourCC
		hdr.PixelFormat.FourCC = makeFourCC(code)
		return hdr, nil
	}

	masks, ok := rgbaMasks[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
	hdr.Flags |= bcn.DDSFlagPitch
	hdr.PixelFormat.Flags = bcn.DDSPFRGB | bcn.DDSPFAlphaPixels
	hdr.PixelFormat.RGBBitCount = 32
	hdr.PixelFormat.RBitMask = masks[0]
	hdr.PixelFormat.GBitMask = masks[1]
	hdr.PixelFormat.BBitMask = masks[2]
	hdr.PixelFormat.ABitMask = masks[3]
	hdr.PitchOrLinearSize = width * 4

	return hdr, nil
}

// mipCount is the length of the full mip chain for a texture, capped at 11.
func mipCount(width, height int) int {
	count := 1
	for width > 1 || height > 1 {
		count++
		width = max(width/2, 1)
		height = max(height/2, 1)
	}

	return min(count, 11)
}

// mipDimension is the size of base at mip level, at least 1.
func mipDimension(base, level int) int {
	return max(base>>level, 1)
}
