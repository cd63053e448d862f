package transport

import (
	nmea "github.com/adrianmo/go-nmea"
)

// ValidSentence reports whether a whole sentence passes strict NMEA
// validation, checksum included. Intended as an opt-in pre-filter for noisy
// links; the decoder downstream is deliberately lenient and never checks
// checksums itself.
func ValidSentence(line string) bool {
	_, err := nmea.Parse(line)
	return err == nil
}
