// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/areasearch/lib/codec"
)

// Envelope wraps one typed message.
type Envelope struct {
	Type Type             `cbor:"type"`
	Body codec.RawMessage `cbor:"body"`
}

// Decode unmarshals the body into v.
func (e Envelope) Decode(v any) error {
	if err := codec.Unmarshal(e.Body, v); err != nil {
		return fmt.Errorf("wire: decoding %s: %w", e.Type, err)
	}
	return nil
}

// NewEnvelope encodes body as a message of the given type.
func NewEnvelope(messageType Type, body any) (Envelope, error) {
	data, err := codec.Marshal(body)
	if err != nil {
		return Envelope{}, fmt.Errorf("wire: encoding %s: %w", messageType, err)
	}
	return Envelope{Type: messageType, Body: data}, nil
}

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("wire: connection closed")

// Conn is a framed message connection. Send is safe for concurrent
// use; Receive must be called from a single goroutine.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewConn wraps an established network connection.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes one message.
func (c *Conn) Send(messageType Type, body any) error {
	envelope, err := NewEnvelope(messageType, body)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	if err := codec.WriteFrame(c.conn, envelope); err != nil {
		if c.closed.Load() {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Receive reads the next message. Returns io.EOF when the peer closed
// the connection between messages.
func (c *Conn) Receive() (Envelope, error) {
	var envelope Envelope
	if err := codec.ReadFrame(c.reader, &envelope); err != nil {
		if errors.Is(err, io.EOF) {
			return Envelope{}, io.EOF
		}
		return Envelope{}, err
	}
	return envelope, nil
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close closes the underlying connection. Pending Receive calls return
// an error and a Send blocked on a peer that stopped reading returns
// ErrClosed. Close does not wait for an in-progress Send.
func (c *Conn) Close() error {
	c.closed.Store(true)
	return c.conn.Close()
}
