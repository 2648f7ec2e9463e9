package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/errors"
)

// maxListDepth bounds the nesting of list Values accepted by DecodeValue
const maxListDepth = 32

// AppendValue appends the encoding of a Value to buf. Every encoding begins with
// the Value's Kind, followed by a kind-specific body.
func AppendValue(buf []byte, v sifacc.Value) ([]byte, error) {
	buf = append(buf, byte(v.Kind()))
	switch v.Kind() {
	case sifacc.KindInt64:
		i, _ := v.AsInt64()
		buf = binary.BigEndian.AppendUint64(buf, uint64(i))
	case sifacc.KindFloat64:
		f, _ := v.AsFloat64()
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(f))
	case sifacc.KindString:
		s, _ := v.AsString()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
	case sifacc.KindList:
		l, _ := v.AsList()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(l)))
		var err error
		for _, e := range l {
			if buf, err = AppendValue(buf, e); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("cannot encode value of kind %s", v.Kind())
	}
	return buf, nil
}

// EncodeValue serializes a Value
func EncodeValue(v sifacc.Value) ([]byte, error) {
	return AppendValue(nil, v)
}

// DecodeValue deserializes a Value, failing if buf contains anything beyond a single Value
func DecodeValue(buf []byte) (sifacc.Value, error) {
	v, n, err := decodeValue(buf, 0)
	if err != nil {
		return sifacc.Value{}, err
	}
	if n != len(buf) {
		return sifacc.Value{}, errors.ProtocolError{Reason: fmt.Sprintf("%d trailing bytes after value", len(buf)-n)}
	}
	return v, nil
}

// decodeValue decodes the Value at the front of buf, returning it and the number of bytes consumed
func decodeValue(buf []byte, depth int) (sifacc.Value, int, error) {
	if len(buf) < 1 {
		return sifacc.Value{}, 0, errors.ProtocolError{Reason: "missing value kind"}
	}
	kind := sifacc.Kind(buf[0])
	body := buf[1:]
	switch kind {
	case sifacc.KindInt64:
		if len(body) < 8 {
			return sifacc.Value{}, 0, truncated(kind)
		}
		return sifacc.Int64(int64(binary.BigEndian.Uint64(body))), 9, nil
	case sifacc.KindFloat64:
		if len(body) < 8 {
			return sifacc.Value{}, 0, truncated(kind)
		}
		return sifacc.Float64(math.Float64frombits(binary.BigEndian.Uint64(body))), 9, nil
	case sifacc.KindString:
		if len(body) < 4 {
			return sifacc.Value{}, 0, truncated(kind)
		}
		l := binary.BigEndian.Uint32(body)
		if uint64(len(body)-4) < uint64(l) {
			return sifacc.Value{}, 0, truncated(kind)
		}
		return sifacc.String(string(body[4 : 4+l])), 5 + int(l), nil
	case sifacc.KindList:
		if depth >= maxListDepth {
			return sifacc.Value{}, 0, errors.ProtocolError{Reason: "list values are nested too deeply"}
		}
		if len(body) < 4 {
			return sifacc.Value{}, 0, truncated(kind)
		}
		count := binary.BigEndian.Uint32(body)
		// every element occupies at least one byte
		if uint64(len(body)-4) < uint64(count) {
			return sifacc.Value{}, 0, truncated(kind)
		}
		offset := 5
		elems := make([]sifacc.Value, 0, count)
		for i := uint32(0); i < count; i++ {
			e, n, err := decodeValue(buf[offset:], depth+1)
			if err != nil {
				return sifacc.Value{}, 0, err
			}
			elems = append(elems, e)
			offset += n
		}
		return sifacc.List(elems...), offset, nil
	default:
		return sifacc.Value{}, 0, errors.ProtocolError{Reason: fmt.Sprintf("unknown value kind %d", kind)}
	}
}

func truncated(kind sifacc.Kind) error {
	return errors.ProtocolError{Reason: fmt.Sprintf("truncated %s value", kind)}
}
