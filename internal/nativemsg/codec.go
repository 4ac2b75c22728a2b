package nativemsg

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Encoding selects how outbound text is turned into a JSON message.
type Encoding string

const (
	// EncodingQuote always sends the text as a JSON string.
	EncodingQuote Encoding = "quote"
	// EncodingJSON sends text that is already valid JSON as-is and quotes
	// anything else.
	EncodingJSON Encoding = "json"
)

// ParseEncoding converts a flag value to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(s)) {
	case "", EncodingQuote:
		return EncodingQuote, nil
	case EncodingJSON:
		return EncodingJSON, nil
	}
	return "", fmt.Errorf("unsupported encoding %q (use quote or json)", s)
}

// errFrameTooLarge is returned by ReadFrame for frames above the size limit.
var errFrameTooLarge = errors.New("message exceeds maximum size")

// WriteFrame writes one message: a 32-bit length in native byte order
// followed by the body.
func WriteFrame(w io.Writer, body []byte) error {
	if uint64(len(body)) > math.MaxUint32 {
		return errFrameTooLarge
	}
	buf := make([]byte, 4+len(body))
	binary.NativeEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[4:], body)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one message body. It returns io.EOF only when the stream
// ends cleanly on a frame boundary.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated frame header: %w", err)
		}
		return nil, err
	}

	size := binary.NativeEndian.Uint32(header[:])
	if maxSize > 0 && uint64(size) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d bytes", errFrameTooLarge, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("truncated frame body: %w", err)
	}
	return body, nil
}

// EncodeMessage converts outbound text to a JSON message body.
func EncodeMessage(text string, enc Encoding) ([]byte, error) {
	if enc == EncodingJSON && json.Valid([]byte(text)) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(text)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetEscapeHTML(false)
	if err := e.Encode(text); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeMessage converts an inbound JSON message body to display text. JSON
// strings are unquoted; any other value is returned as compact JSON.
func DecodeMessage(body []byte) (string, error) {
	if !json.Valid(body) {
		return "", errors.New("message is not valid JSON")
	}
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return "", err
	}
	return buf.String(), nil
}
