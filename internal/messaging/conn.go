package messaging

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// Conn is one native-messaging port. Receive is meant for a single reader;
// Send may be called from any goroutine.
type Conn struct {
	reader *bufio.Reader

	mu     sync.Mutex
	writer io.Writer
}

// NewConn wraps the host's stdin and stdout.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{reader: bufio.NewReader(r), writer: w}
}

// Receive reads the next request.
func (conn *Conn) Receive() (Request, error) {
	frame, err := ReadFrame(conn.reader)
	if err != nil {
		return Request{}, err
	}
	return ParseRequest(frame)
}

// Send encodes v as JSON and writes it as one frame.
func (conn *Conn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return WriteFrame(conn.writer, payload)
}
