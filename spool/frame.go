package spool

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"

	"github.com/anchor/marquise/internal/errorsx"
)

// frame layout: 4 byte little-endian payload length, 4 byte crc-32c covering
// the length field and the payload, then the payload itself. the checksum
// covering the length lets a reader distinguish a torn tail from damage.
const frameHeaderBytes = 8

// MaxRecordBytes bounds a single record payload. lengths beyond the bound on
// read indicate a damaged header rather than a legitimately huge record.
const MaxRecordBytes = 64 << 20

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const (
	// ErrTornRecord reports an incomplete trailing frame, expected after a
	// writer crash mid append. every record before it remains readable.
	ErrTornRecord = errorsx.String("spool: torn record at end of segment")
	// ErrCorruptRecord reports a frame whose checksum does not match, the
	// remainder of the segment cannot be trusted.
	ErrCorruptRecord = errorsx.String("spool: corrupt record")
	// ErrRecordTooLarge reports a payload exceeding MaxRecordBytes.
	ErrRecordTooLarge = errorsx.String("spool: record exceeds maximum size")
)

// AppendFrame appends the framed payload to dst and returns the extended slice.
func AppendFrame(dst []byte, payload []byte) []byte {
	var header [frameHeaderBytes]byte

	binary.LittleEndian.PutUint32(header[0:4], uint32(len(payload)))
	crc := crc32.Checksum(header[0:4], castagnoli)
	crc = crc32.Update(crc, castagnoli, payload)
	binary.LittleEndian.PutUint32(header[4:8], crc)

	dst = append(dst, header[:]...)
	return append(dst, payload...)
}

// NewCursor reads framed records sequentially from the source.
func NewCursor(src io.Reader) *Cursor {
	return &Cursor{src: bufio.NewReader(src)}
}

type Cursor struct {
	src  *bufio.Reader
	done error
}

// Next returns the payload of the next complete record. io.EOF marks a clean
// end of the segment, ErrTornRecord an incomplete trailing frame, and
// ErrCorruptRecord damage that requires quarantining the remainder.
func (t *Cursor) Next() (payload []byte, err error) {
	if t.done != nil {
		return nil, t.done
	}

	defer func() {
		if err != nil {
			t.done = err
		}
	}()

	var header [frameHeaderBytes]byte

	if _, err = io.ReadFull(t.src, header[:]); errors.Is(err, io.EOF) {
		return nil, io.EOF
	} else if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, ErrTornRecord
	} else if err != nil {
		return nil, errorsx.Wrap(err, "unable to read frame header")
	}

	length := binary.LittleEndian.Uint32(header[0:4])
	if length > MaxRecordBytes {
		return nil, ErrCorruptRecord
	}

	payload = make([]byte, length)
	if _, err = io.ReadFull(t.src, payload); errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, ErrTornRecord
	} else if err != nil {
		return nil, errorsx.Wrap(err, "unable to read frame payload")
	}

	crc := crc32.Checksum(header[0:4], castagnoli)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != binary.LittleEndian.Uint32(header[4:8]) {
		return nil, ErrCorruptRecord
	}

	return payload, nil
}
