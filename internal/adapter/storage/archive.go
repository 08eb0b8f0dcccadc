package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/rl1809/guild-bag/internal/core/domain"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// WriteArchive writes s as a state document, zstd-compressed when compress is set.
func WriteArchive(w io.Writer, s domain.State, compress bool) error {
	data, err := encodeState(s)
	if err != nil {
		return err
	}
	if !compress {
		_, err = w.Write(data)
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("zstd write: %w", err)
	}
	return enc.Close()
}

// ReadArchive reads a document written by WriteArchive. Compression is
// detected from the zstd frame magic.
func ReadArchive(r io.Reader) (domain.State, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return domain.State{}, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return domain.State{}, fmt.Errorf("read archive: %w", err)
	}
	return decodeState(data)
}
