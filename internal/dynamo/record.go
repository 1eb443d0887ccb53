package dynamo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// WriteRecord writes data as a fixed-size little-endian record.
func WriteRecord(w io.Writer, data any) error {
	return binary.Write(w, binary.LittleEndian, data)
}

// ReadRecord reads a fixed-size record into data. The whole record is
// buffered first so data is only written once every byte is present; a
// truncated stream returns a *RecordError wrapping ErrShortRead.
func ReadRecord(r io.Reader, name string, data any) error {
	size := binary.Size(data)
	if size < 0 {
		return Bounds(name+" record", data)
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return &RecordError{Record: name, Want: size, Got: n, Wrapped: ErrShortRead}
		}
		return err
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, data)
}
