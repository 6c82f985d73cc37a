package marquise

import (
	"encoding/binary"
	"sort"

	"github.com/anchor/marquise/internal/errorsx"
)

// record type tags for the points stream, which carries both simple and
// extended datapoints.
const (
	recordSimple   byte = 0x01
	recordExtended byte = 0x02
)

// SimplePoint is a fixed width numeric sample.
type SimplePoint struct {
	Address   uint64
	Timestamp uint64 // nanoseconds since epoch
	Value     uint64
}

// ExtendedPoint is a sample whose value is an arbitrary byte string.
type ExtendedPoint struct {
	Address   uint64
	Timestamp uint64
	Value     []byte
}

// SourceRecord carries the descriptive tags of an address. updates replace
// the whole record, they are never merged.
type SourceRecord struct {
	Address uint64
	Fields  map[string]string
}

// EncodeSimple appends the wire form of a simple datapoint to dst.
func EncodeSimple(dst []byte, p SimplePoint) []byte {
	dst = append(dst, recordSimple)
	dst = binary.LittleEndian.AppendUint64(dst, p.Address)
	dst = binary.LittleEndian.AppendUint64(dst, p.Timestamp)
	return binary.LittleEndian.AppendUint64(dst, p.Value)
}

// DecodeSimple decodes a simple datapoint payload.
func DecodeSimple(payload []byte) (p SimplePoint, err error) {
	if len(payload) != 25 || payload[0] != recordSimple {
		return p, errorsx.Wrapf(ErrMalformedRecord, "expected a simple datapoint of 25 bytes, got %d", len(payload))
	}

	p.Address = binary.LittleEndian.Uint64(payload[1:9])
	p.Timestamp = binary.LittleEndian.Uint64(payload[9:17])
	p.Value = binary.LittleEndian.Uint64(payload[17:25])

	return p, nil
}

// EncodeExtended appends the wire form of an extended datapoint to dst. the
// value carries an explicit length so arbitrary bytes round trip exactly.
func EncodeExtended(dst []byte, p ExtendedPoint) []byte {
	dst = append(dst, recordExtended)
	dst = binary.LittleEndian.AppendUint64(dst, p.Address)
	dst = binary.LittleEndian.AppendUint64(dst, p.Timestamp)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(p.Value)))
	return append(dst, p.Value...)
}

// DecodeExtended decodes an extended datapoint payload.
func DecodeExtended(payload []byte) (p ExtendedPoint, err error) {
	if len(payload) < 21 || payload[0] != recordExtended {
		return p, errorsx.Wrap(ErrMalformedRecord, "expected an extended datapoint")
	}

	p.Address = binary.LittleEndian.Uint64(payload[1:9])
	p.Timestamp = binary.LittleEndian.Uint64(payload[9:17])

	length := binary.LittleEndian.Uint32(payload[17:21])
	if uint32(len(payload)-21) != length {
		return p, errorsx.Wrapf(ErrMalformedRecord, "extended value length mismatch, declared %d actual %d", length, len(payload)-21)
	}

	p.Value = append([]byte(nil), payload[21:]...)

	return p, nil
}

// EncodeSource appends the wire form of a source metadata record to dst.
// fields are serialized in sorted key order so equal records encode equally.
func EncodeSource(dst []byte, r SourceRecord) []byte {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dst = binary.LittleEndian.AppendUint64(dst, r.Address)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(keys)))

	for _, k := range keys {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(k)))
		dst = append(dst, k...)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Fields[k])))
		dst = append(dst, r.Fields[k]...)
	}

	return dst
}

// DecodeSource decodes a source metadata record payload.
func DecodeSource(payload []byte) (r SourceRecord, err error) {
	if len(payload) < 12 {
		return r, errorsx.Wrap(ErrMalformedRecord, "expected a source record")
	}

	r.Address = binary.LittleEndian.Uint64(payload[0:8])
	count := binary.LittleEndian.Uint32(payload[8:12])
	r.Fields = make(map[string]string, count)

	rest := payload[12:]
	for i := uint32(0); i < count; i++ {
		var k, v string

		if k, rest, err = decodeString(rest); err != nil {
			return r, err
		}

		if v, rest, err = decodeString(rest); err != nil {
			return r, err
		}

		r.Fields[k] = v
	}

	if len(rest) != 0 {
		return r, errorsx.Wrapf(ErrMalformedRecord, "source record has %d trailing bytes", len(rest))
	}

	return r, nil
}

func decodeString(payload []byte) (s string, rest []byte, err error) {
	if len(payload) < 4 {
		return "", nil, errorsx.Wrap(ErrMalformedRecord, "source record truncated")
	}

	length := binary.LittleEndian.Uint32(payload[0:4])
	if uint32(len(payload)-4) < length {
		return "", nil, errorsx.Wrap(ErrMalformedRecord, "source record truncated")
	}

	return string(payload[4 : 4+length]), payload[4+length:], nil
}
