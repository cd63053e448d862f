package transport

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// FileSource replays NMEA sentences from a recorded log file.
type FileSource struct {
	f       *os.File
	scanner *bufio.Scanner
}

func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f, scanner: bufio.NewScanner(f)}, nil
}

func (s *FileSource) ReadSentence() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line != "" {
			return line, nil
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *FileSource) Close() error {
	return s.f.Close()
}
