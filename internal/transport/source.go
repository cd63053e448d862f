// Package transport provides line-oriented sources of NMEA sentences for the
// GNSS decoder: a serial port, an I2C-attached receiver, and a recorded log
// file for offline replay. Framing, timeouts and device errors live here; the
// decoder only ever sees complete, newline-stripped sentences.
package transport

// Source yields complete, newline-stripped NMEA sentences.
type Source interface {
	// ReadSentence blocks until one complete sentence is available. It
	// returns io.EOF when the source is exhausted (file replay) and the
	// underlying device error otherwise.
	ReadSentence() (string, error)
	Close() error
}
