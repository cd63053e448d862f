package transport

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2CSource reads NMEA text from a receiver attached over I2C (u-blox DDC /
// PMTK style). The device streams sentence bytes on read and pads with 0xFF
// when its transmit buffer is empty.
type I2CSource struct {
	bus     i2c.BusCloser
	dev     i2c.Dev
	pending []byte
}

// idlePoll is how long to back off when the receiver has nothing buffered.
const idlePoll = 20 * time.Millisecond

// OpenI2C initializes the periph host, opens the named I2C bus ("" picks the
// first available) and addresses the receiver.
func OpenI2C(busName string, addr uint16) (*I2CSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	return &I2CSource{bus: bus, dev: i2c.Dev{Bus: bus, Addr: addr}}, nil
}

func (s *I2CSource) ReadSentence() (string, error) {
	for {
		if line, ok := s.nextLine(); ok {
			return line, nil
		}

		var chunk [32]byte
		if err := s.dev.Tx(nil, chunk[:]); err != nil {
			return "", err
		}

		idle := true
		for _, b := range chunk {
			if b == 0xFF {
				continue
			}
			idle = false
			s.pending = append(s.pending, b)
		}
		if idle {
			time.Sleep(idlePoll)
		}
	}
}

// nextLine pops one complete newline-terminated sentence off the pending
// buffer, skipping blank lines.
func (s *I2CSource) nextLine() (string, bool) {
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			return "", false
		}
		line := strings.TrimSpace(string(s.pending[:i]))
		s.pending = append(s.pending[:0], s.pending[i+1:]...)
		if line != "" {
			return line, true
		}
	}
}

func (s *I2CSource) Close() error {
	return s.bus.Close()
}
