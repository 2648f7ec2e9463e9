package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-sif/sifacc"
	"github.com/go-sif/sifacc/errors"
)

const (
	// AckByte is written by the driver once every entry of a batch has been merged
	AckByte byte = 0x01
	// EndOfStream is sent in place of a batch count by a sender which is closing its connection
	EndOfStream int32 = -1
	// DefaultMaxEntrySize bounds the length of a single framed entry
	DefaultMaxEntrySize = 64 << 20
)

// ErrEndOfStream is returned by ReadBatch when the sender announced that it is closing
var ErrEndOfStream = fmt.Errorf("update stream ended by sender")

// EncodeEntry serializes a single (id, value) entry, without its length prefix
func EncodeEntry(u sifacc.Update) ([]byte, error) {
	buf := binary.BigEndian.AppendUint32(make([]byte, 0, 16), uint32(u.ID))
	return AppendValue(buf, u.Value)
}

// DecodeEntry deserializes a single (id, value) entry, without its length prefix
func DecodeEntry(buf []byte) (sifacc.Update, error) {
	if len(buf) < 4 {
		return sifacc.Update{}, errors.ProtocolError{Reason: "entry is too short to contain an accumulator id"}
	}
	id := int32(binary.BigEndian.Uint32(buf))
	v, err := DecodeValue(buf[4:])
	if err != nil {
		return sifacc.Update{}, err
	}
	return sifacc.Update{ID: id, Value: v}, nil
}

// WriteBatch writes a framed batch: a count, followed by a length-prefixed entry for each Update
func WriteBatch(w io.Writer, batch []sifacc.Update) error {
	if len(batch) > math.MaxInt32 {
		return errors.ProtocolError{Reason: fmt.Sprintf("batch of %d updates is too large", len(batch))}
	}
	buf := binary.BigEndian.AppendUint32(nil, uint32(len(batch)))
	for _, u := range batch {
		entry, err := EncodeEntry(u)
		if err != nil {
			return err
		}
		if len(entry) > math.MaxInt32 {
			return errors.ProtocolError{Reason: fmt.Sprintf("entry for accumulator %d is too large", u.ID)}
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(entry)))
		buf = append(buf, entry...)
	}
	_, err := w.Write(buf)
	return err
}

// WriteEndOfStream announces that no more batches will be written
func WriteEndOfStream(w io.Writer) error {
	return writeInt32(w, EndOfStream)
}

// ReadBatch reads a framed batch. io.EOF is returned unwrapped only if the stream ended
// cleanly before the batch began; ErrEndOfStream is returned if the sender announced
// its departure.
func ReadBatch(r io.Reader, maxEntrySize int) ([]sifacc.Update, error) {
	count, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if count == EndOfStream {
		return nil, ErrEndOfStream
	}
	if count < 0 {
		return nil, errors.ProtocolError{Reason: fmt.Sprintf("negative update count %d", count)}
	}
	batch := make([]sifacc.Update, 0, min(int(count), 1024))
	for i := int32(0); i < count; i++ {
		length, err := readInt32(r)
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		if length < 0 || int(length) > maxEntrySize {
			return nil, errors.ProtocolError{Reason: fmt.Sprintf("invalid entry length %d", length)}
		}
		entry := make([]byte, length)
		if _, err = io.ReadFull(r, entry); err != nil {
			return nil, unexpectedEOF(err)
		}
		u, err := DecodeEntry(entry)
		if err != nil {
			return nil, err
		}
		batch = append(batch, u)
	}
	return batch, nil
}

// WriteAck acknowledges a merged batch
func WriteAck(w io.Writer) error {
	_, err := w.Write([]byte{AckByte})
	return err
}

// ReadAck waits for a batch acknowledgement
func ReadAck(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	if b[0] != AckByte {
		return errors.ProtocolError{Reason: fmt.Sprintf("unexpected acknowledgement byte 0x%02x", b[0])}
	}
	return nil
}

func readInt32(r io.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func writeInt32(w io.Writer, v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := w.Write(b[:])
	return err
}

// unexpectedEOF converts a clean EOF in the middle of a batch into io.ErrUnexpectedEOF
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
