// Package messaging implements the browser native-messaging channel: each
// message is a little-endian uint32 length followed by that many bytes of JSON.
package messaging

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxInboundFrame is the largest message the host accepts from the browser.
	MaxInboundFrame = 4 << 20
	// MaxOutboundFrame is the largest message the browser accepts from a host.
	MaxOutboundFrame = 1 << 20
)

// ErrFrameTooLarge is returned for frames above the direction's limit.
var ErrFrameTooLarge = errors.New("frame too large")

// ReadFrame reads one frame. A clean EOF before the header is returned as
// io.EOF. Oversized frames are drained so the stream stays aligned.
func ReadFrame(r io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	if size > MaxInboundFrame {
		if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
			return nil, fmt.Errorf("drain oversized frame: %w", err)
		}
		return nil, fmt.Errorf("inbound frame of %d bytes: %w", size, ErrFrameTooLarge)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return payload, nil
}

// WriteFrame writes payload as one frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxOutboundFrame {
		return fmt.Errorf("outbound frame of %d bytes: %w", len(payload), ErrFrameTooLarge)
	}
	frame := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
