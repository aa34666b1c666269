// Package encoding packs palette-indexed block volumes.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrTooLong = errors.New("encoding: rle expands past limit")

// EncodeRLE writes ids as base64 of (palette id, run length) uvarint pairs.
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	for i := 0; i < len(ids); {
		j := i + 1
		for j < len(ids) && ids[j] == ids[i] {
			j++
		}
		buf.Write(binary.AppendUvarint(nil, uint64(ids[i])))
		buf.Write(binary.AppendUvarint(nil, uint64(j-i)))
		i = j
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. It stops with ErrTooLong once the output would
// exceed limit ids, so a corrupt run length cannot exhaust memory.
func DecodeRLE(b64 string, limit int) ([]uint16, error) {
	if limit < 0 {
		return nil, ErrTooLong
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}
	out := make([]uint16, 0, min(limit, 4096))
	r := bytes.NewReader(raw)
	for r.Len() > 0 {
		id, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("encoding: id at byte %d: %w", len(raw)-r.Len(), err)
		}
		run, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("encoding: run at byte %d: %w", len(raw)-r.Len(), err)
		}
		if id > 0xFFFF {
			return nil, fmt.Errorf("encoding: palette id too large: %d", id)
		}
		if run == 0 || run > uint64(limit-len(out)) {
			return nil, ErrTooLong
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(id))
		}
	}
	return out, nil
}
