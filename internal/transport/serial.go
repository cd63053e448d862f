package transport

import (
	"bufio"
	"io"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialSource reads NMEA sentences from a GNSS receiver on a serial port.
type SerialSource struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
}

// OpenSerial opens the receiver's serial port with the 8N1 framing GNSS
// modules use.
func OpenSerial(portName string, baudRate uint) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, err
	}
	return &SerialSource{port: port, reader: bufio.NewReader(port)}, nil
}

func (s *SerialSource) ReadSentence() (string, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
	}
}

func (s *SerialSource) Close() error {
	return s.port.Close()
}
