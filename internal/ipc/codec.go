package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
)

// maxMessageBytes bounds one JSON line in either direction.
const maxMessageBytes = 64 << 10

var errMessageTooLarge = errors.New("message exceeds 64 KiB")

// writeMessage encodes v as one newline-terminated JSON object.
func writeMessage(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// readMessage reads one line from conn and decodes it into v. what names the
// message in errors ("request" or "response").
func readMessage(conn net.Conn, what string, v any) error {
	reader := bufio.NewReaderSize(io.LimitReader(conn, maxMessageBytes+1), 4096)
	line, err := reader.ReadBytes('\n')
	if len(line) > maxMessageBytes {
		return fmt.Errorf("read %s: %w", what, errMessageTooLarge)
	}
	if err != nil && !(errors.Is(err, io.EOF) && len(bytes.TrimSpace(line)) > 0) {
		return fmt.Errorf("read %s: %w", what, err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}
