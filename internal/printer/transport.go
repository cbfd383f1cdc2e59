package printer

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrConnectionFailed = errors.New("printer: connection failed")
	ErrWriteFailed      = errors.New("printer: write failed")
	ErrSpoolerFailed    = errors.New("printer: spooler submission failed")
)

const (
	defaultTCPPort          = 9100
	defaultReadWriteTimeout = 10 * time.Second
)

// TCPTransport delivers payloads over raw TCP, the JetDirect-style port most
// network receipt and label printers listen on. Each Send is a full session:
// dial, write, close. Connections are never pooled; the queue already
// guarantees one job at a time, and a fresh dial per job means a printer
// power-cycle between jobs cannot strand a dead socket.
type TCPTransport struct {
	Port    int
	Timeout time.Duration
	log     *logrus.Logger
}

func NewTCPTransport(port int, timeout time.Duration, log *logrus.Logger) *TCPTransport {
	if port <= 0 {
		port = defaultTCPPort
	}
	if timeout <= 0 {
		timeout = defaultReadWriteTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TCPTransport{Port: port, Timeout: timeout, log: log}
}

// Send dials the printer and writes the payload. printerName is a host or a
// host:port pair; a bare host gets the transport's configured port.
func (t *TCPTransport) Send(printerName string, data []byte) error {
	address := printerName
	if !strings.Contains(address, ":") {
		address = fmt.Sprintf("%s:%d", address, t.Port)
	}

	conn, err := net.DialTimeout("tcp", address, t.Timeout)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnectionFailed, address, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(t.Timeout))

	written := 0
	for written < len(data) {
		n, err := conn.Write(data[written:])
		if err != nil {
			return fmt.Errorf("%w: %s after %d/%d bytes: %v",
				ErrWriteFailed, address, written, len(data), err)
		}
		written += n
	}

	t.log.WithFields(logrus.Fields{
		"printer": printerName,
		"address": address,
		"bytes":   len(data),
	}).Debug("payload written over tcp")

	return nil
}
