package telnet

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"time"
)

// Telnet command bytes, RFC 854.
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // subnegotiation begin
	SE   byte = 240 // subnegotiation end
	NOP  byte = 241
	GA   byte = 249 // go ahead

	// Negotiable options.
	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// Conn layers Telnet protocol handling over a TCP connection: IAC
// sequences are stripped from input, output is line-oriented, and
// reads and writes carry their own deadlines. Writes are serialised;
// reads are single-reader.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps an open TCP connection. A zero timeout disables the
// corresponding deadline.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate opens the session by offering to suppress go-ahead.
func (c *Conn) Negotiate() error {
	return c.writeRaw([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next line of text input with IAC sequences and
// control characters (other than tab) filtered out. The trailing line
// ending is not included. Errors, io.EOF included, surface alongside
// whatever was read before them.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line bytes.Buffer
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return line.String(), err
		}

		if b == IAC {
			if err := c.consumeCommand(); err != nil {
				return line.String(), err
			}
			continue
		}

		if b == '\n' {
			break
		}
		if b == '\r' {
			// Bare \r ends the line too; a following \n belongs to it.
			next, err := c.reader.Peek(1)
			if err == nil && len(next) > 0 && next[0] == '\n' {
				_, _ = c.reader.ReadByte()
			}
			break
		}

		if b < 32 && b != '\t' {
			continue
		}
		line.WriteByte(b)
	}
	return line.String(), nil
}

// consumeCommand discards the rest of an IAC sequence whose lead byte
// was already read.
func (c *Conn) consumeCommand() error {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return err
	}

	switch cmd {
	case WILL, WONT, DO, DONT:
		// One option byte follows.
		_, err := c.reader.ReadByte()
		return err
	case SB:
		// Swallow the subnegotiation up to IAC SE.
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if b == IAC {
				next, err := c.reader.ReadByte()
				if err != nil {
					return err
				}
				if next == SE {
					break
				}
			}
		}
	case IAC:
		// Escaped 0xFF; not meaningful in text input.
	default:
		// NOP, GA and friends carry no payload.
	}
	return nil
}

// ReadPassword reads one line with client echo suppressed: IAC WILL
// Echo before the read, IAC WONT Echo after, and a blank line so the
// cursor moves past the hidden input. Echo is restored even when the
// read fails.
func (c *Conn) ReadPassword() (string, error) {
	if err := c.writeRaw([]byte{IAC, WILL, OptEcho}); err != nil {
		return "", err
	}

	line, err := c.ReadLine()

	_ = c.writeRaw([]byte{IAC, WONT, OptEcho})
	_ = c.writeRaw([]byte("\r\n"))
	return line, err
}

// WriteLine sends text followed by \r\n.
func (c *Conn) WriteLine(text string) error {
	return c.writeRaw(append([]byte(text), '\r', '\n'))
}

// Write sends raw bytes.
func (c *Conn) Write(data []byte) error {
	return c.writeRaw(data)
}

// WritePrompt sends text with no line ending, leaving the cursor on
// the prompt line.
func (c *Conn) WritePrompt(prompt string) error {
	return c.writeRaw([]byte(prompt))
}

// writeRaw is the single write path: one deadline, one locked write.
func (c *Conn) writeRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr reports the client's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// FilterIAC strips Telnet command sequences from a byte slice. Escaped
// 0xFF bytes survive as a single literal 0xFF.
func FilterIAC(input []byte) []byte {
	result := make([]byte, 0, len(input))
	i := 0
	for i < len(input) {
		if input[i] == IAC && i+1 < len(input) {
			cmd := input[i+1]
			switch cmd {
			case WILL, WONT, DO, DONT:
				i += 3
				continue
			case SB:
				j := i + 2
				for j < len(input)-1 {
					if input[j] == IAC && input[j+1] == SE {
						j += 2
						break
					}
					j++
				}
				i = j
				continue
			case IAC:
				result = append(result, IAC)
				i += 2
				continue
			default:
				i += 2
				continue
			}
		}
		result = append(result, input[i])
		i++
	}
	return result
}
