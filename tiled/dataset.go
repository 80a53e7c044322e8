package tiled

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/woozymasta/rasterblock"
	"github.com/woozymasta/rasterblock/internal/block"
)

// Dataset is an open TILED file. It is not safe for concurrent use.
//
// Writes update decoded copies of the touched blocks. Flush encodes the dirty
// blocks of a band into space the on-disk header does not reference, writes
// a new index the same way, syncs, and only then rewrites the header, so a
// crash during Flush leaves the previous state readable.
type Dataset struct {
	f     *os.File
	path  string
	mode  rasterblock.AccessMode
	hdr   *header
	index []entry
	// dirty holds decoded blocks written since the last flush, by index slot.
	dirty map[int][]byte
	// end is the file size once pending writes land; new space is taken from there.
	end int64
	// free is space no durable header references and may be overwritten.
	free []extent
	// released is space the current header stopped referencing. It joins
	// free after the next sync makes that header durable.
	released []extent
	closed   bool
}

// extent is a byte range of the file.
type extent struct {
	off, size int64
}

var _ rasterblock.Dataset = (*Dataset)(nil)

// Width implements rasterblock.Dataset.
func (ds *Dataset) Width() int { return ds.hdr.Width }

// Height implements rasterblock.Dataset.
func (ds *Dataset) Height() int { return ds.hdr.Height }

// BandCount implements rasterblock.Dataset.
func (ds *Dataset) BandCount() int { return ds.hdr.Bands }

// DataType implements rasterblock.Dataset.
func (ds *Dataset) DataType() rasterblock.DataType { return ds.hdr.DataType }

// BlockSize returns the block width and height.
func (ds *Dataset) BlockSize() (int, int) { return ds.hdr.BlockWidth, ds.hdr.BlockHeight }

// Codec returns the codec used for new block bodies.
func (ds *Dataset) Codec() block.Codec { return ds.hdr.Codec }

// slot returns the index position of block (bx, by) of band.
func (ds *Dataset) slot(band, bx, by int) int {
	return ((band-1)*ds.hdr.blocksY()+by)*ds.hdr.blocksX() + bx
}

// ReadTile implements rasterblock.Dataset. Blocks never written read as zero.
func (ds *Dataset) ReadTile(band, x, y, w, h int, buf any) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if _, err := rasterblock.CheckTile(ds, band, x, y, w, h, buf); err != nil {
		return err
	}

	return ds.eachBlock(band, x, y, w, h, func(raw []byte, span blockSpan) error {
		for row := range span.h {
			src := (span.by+row)*ds.hdr.BlockWidth + span.bx
			dst := (span.ty+row)*w + span.tx
			if err := rasterblock.DecodeRow(buf, dst, raw, ds.hdr.DataType, src, span.w); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// WriteTile implements rasterblock.Dataset. Partially covered blocks are
// read, modified and kept dirty until Flush.
func (ds *Dataset) WriteTile(band, x, y, w, h int, buf any) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if ds.mode != rasterblock.Update {
		return rasterblock.ErrReadOnly
	}
	if _, err := rasterblock.CheckTile(ds, band, x, y, w, h, buf); err != nil {
		return err
	}

	return ds.eachBlock(band, x, y, w, h, func(raw []byte, span blockSpan) error {
		for row := range span.h {
			dst := (span.by+row)*ds.hdr.BlockWidth + span.bx
			src := (span.ty+row)*w + span.tx
			if err := rasterblock.EncodeRow(raw, ds.hdr.DataType, dst, buf, src, span.w); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// blockSpan is the overlap of a tile with one block: w*h pixels starting at
// (bx, by) inside the block and at (tx, ty) inside the tile.
type blockSpan struct {
	bx, by int
	tx, ty int
	w, h   int
}

// eachBlock calls fn with the decoded data of every block the tile touches.
// With write set the blocks are marked dirty.
func (ds *Dataset) eachBlock(band, x, y, w, h int, fn func(raw []byte, span blockSpan) error, write bool) error {
	bw, bh := ds.hdr.BlockWidth, ds.hdr.BlockHeight
	for by := y / bh; by*bh < y+h; by++ {
		for bx := x / bw; bx*bw < x+w; bx++ {
			slot := ds.slot(band, bx, by)
			raw, err := ds.blockData(slot, write)
			if err != nil {
				return fmt.Errorf("band %d block (%d,%d): %w", band, bx, by, err)
			}

			x0, y0 := max(x, bx*bw), max(y, by*bh)
			x1, y1 := min(x+w, (bx+1)*bw), min(y+h, (by+1)*bh)
			err = fn(raw, blockSpan{
				bx: x0 - bx*bw, by: y0 - by*bh,
				tx: x0 - x, ty: y0 - y,
				w: x1 - x0, h: y1 - y0,
			})
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// blockData returns the decoded block at slot. For writes the block is
// loaded into the dirty set.
func (ds *Dataset) blockData(slot int, write bool) ([]byte, error) {
	if raw, ok := ds.dirty[slot]; ok {
		return raw, nil
	}

	raw, err := ds.readBlock(slot)
	if err != nil {
		return nil, err
	}
	if write {
		ds.dirty[slot] = raw
	}

	return raw, nil
}

func (ds *Dataset) readBlock(slot int) ([]byte, error) {
	e := ds.index[slot]
	if e.missing() {
		return make([]byte, ds.hdr.blockBytes()), nil
	}

	b, err := block.ReadBody(io.NewSectionReader(ds.f, e.Offset, int64(e.Size)), block.Header{Magic: e.Magic, Size: e.Size})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockRead, err)
	}
	raw, err := block.Decode(b, ds.hdr.blockBytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockRead, err)
	}

	return raw, nil
}

// Flush implements rasterblock.Dataset. Dirty blocks of band are encoded
// and stored, then the new index is synced and the header switched to it.
func (ds *Dataset) Flush(band int) error {
	if ds.closed {
		return rasterblock.ErrClosed
	}
	if band < 1 || band > ds.hdr.Bands {
		return fmt.Errorf("%w: %d of %d", rasterblock.ErrBandRange, band, ds.hdr.Bands)
	}

	perBand := ds.hdr.blocksX() * ds.hdr.blocksY()
	return ds.flushSlots((band-1)*perBand, band*perBand)
}

// flushSlots stores the dirty blocks with lo <= slot < hi.
func (ds *Dataset) flushSlots(lo, hi int) error {
	if ds.mode != rasterblock.Update {
		return nil
	}

	slots := make([]int, 0, len(ds.dirty))
	for slot := range ds.dirty {
		if slot >= lo && slot < hi {
			slots = append(slots, slot)
		}
	}
	if len(slots) == 0 {
		return nil
	}
	slices.Sort(slots)

	var stale []extent
	for _, slot := range slots {
		old := ds.index[slot]
		if err := ds.storeBlock(slot, ds.dirty[slot]); err != nil {
			return err
		}
		delete(ds.dirty, slot)
		if !old.missing() {
			stale = append(stale, extent{off: old.Offset, size: int64(old.Size)})
		}
	}

	return ds.commit(stale)
}

// alloc returns the offset of size bytes nothing durable refers to.
func (ds *Dataset) alloc(size int64) int64 {
	for i, e := range ds.free {
		if e.size < size {
			continue
		}
		if e.size == size {
			ds.free = slices.Delete(ds.free, i, i+1)
		} else {
			ds.free[i] = extent{off: e.off + size, size: e.size - size}
		}
		return e.off
	}

	off := ds.end
	ds.end += size
	return off
}

func (ds *Dataset) storeBlock(slot int, raw []byte) error {
	b, err := block.Encode(ds.hdr.Codec, raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlockWrite, err)
	}

	h := b.Header()
	off := ds.alloc(int64(h.Size))
	if _, err := ds.f.WriteAt(b.Data, off); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrBlockWrite, ds.path, err)
	}
	ds.index[slot] = entry{Magic: h.Magic, Size: h.Size, Offset: off}

	return nil
}

// commit writes the index, syncs and points the header at the new index.
// stale lists the bodies the new index no longer references.
func (ds *Dataset) commit(stale []extent) error {
	idx, err := marshalIndex(ds.index)
	if err != nil {
		return err
	}
	off := ds.alloc(int64(len(idx)))
	if _, err := ds.f.WriteAt(idx, off); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIndexWrite, ds.path, err)
	}
	if err := ds.f.Sync(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrSync, ds.path, err)
	}

	// the sync above made the previous header durable
	ds.free = append(ds.free, ds.released...)
	ds.released = stale
	if ds.hdr.IndexLength > 0 {
		ds.released = append(ds.released, extent{off: ds.hdr.IndexOffset, size: ds.hdr.IndexLength})
	}

	ds.hdr.IndexOffset = off
	ds.hdr.IndexLength = int64(len(idx))
	hdr, err := ds.hdr.marshal()
	if err != nil {
		return err
	}
	if _, err := ds.f.WriteAt(hdr, 0); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrHeaderWrite, ds.path, err)
	}

	return nil
}

// Close flushes every band of a dataset opened for update and closes the file.
func (ds *Dataset) Close() error {
	if ds.closed {
		return nil
	}
	ds.closed = true

	var err error
	if ds.mode == rasterblock.Update {
		err = ds.flushSlots(0, len(ds.index))
		if err == nil {
			if serr := ds.f.Sync(); serr != nil {
				err = fmt.Errorf("%w: %q: %v", ErrSync, ds.path, serr)
			}
		}
	}
	if cerr := ds.f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: %q: %v", ErrCloseFile, ds.path, cerr)
	}

	return err
}
