package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Connection handles LSP message reading and writing
type Connection struct {
	reader *bufio.Reader
	writer io.Writer
	wmu    sync.Mutex
	logger *zap.Logger
}

// NewConnection creates a new LSP connection
func NewConnection(reader io.Reader, writer io.Writer, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{
		reader: bufio.NewReader(reader),
		writer: writer,
		logger: logger,
	}
}

// ReadMessage reads an LSP message from the connection
func (c *Connection) ReadMessage() (*Message, error) {
	headers := make(map[string]string)
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	contentLengthStr, exists := headers["Content-Length"]
	if !exists {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	contentLength, err := strconv.Atoi(contentLengthStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Content-Length: %w", err)
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(c.reader, content); err != nil {
		return nil, fmt.Errorf("failed to read message content: %w", err)
	}

	var message Message
	if err := json.Unmarshal(content, &message); err != nil {
		return nil, fmt.Errorf("failed to parse JSON message: %w", err)
	}

	c.logger.Debug("read message", zap.String("method", message.Method), zap.Any("id", message.ID))
	return &message, nil
}

// WriteMessage writes an LSP message to the connection. It is safe for
// concurrent use.
func (c *Connection) WriteMessage(message *Message) error {
	if message.JSONRPC == "" {
		message.JSONRPC = "2.0"
	}
	content, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.logger.Debug("write message", zap.String("method", message.Method), zap.Any("id", message.ID))
	if _, err := fmt.Fprintf(c.writer, "Content-Length: %d\r\n\r\n", len(content)); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	if _, err := c.writer.Write(content); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}
