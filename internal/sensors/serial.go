package sensors

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

var ErrMalformedLine = errors.New("sensors: malformed line")

var lineKinds = map[string]Kind{
	"DD":  DistanceDriven,
	"IR":  DistanceIR,
	"DIR": Direction,
}

// ParseLine decodes one line of the sensor wire protocol: a tag (DD, IR or
// DIR) followed by an integer value, separated by whitespace.
func ParseLine(line string) (Kind, int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	k, ok := lineKinds[strings.ToUpper(fields[0])]
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown tag %q", ErrMalformedLine, fields[0])
	}
	v, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return k, v, nil
}

// LineReader feeds a Board from a line-oriented sensor stream.
type LineReader struct {
	board *Board
	// OnError is called for every line that fails to parse or validate.
	// Reading continues afterwards.
	OnError func(line string, err error)
	// OnEvent is called for every accepted event.
	OnEvent func(k Kind, v int)
}

func NewLineReader(board *Board) *LineReader {
	return &LineReader{board: board}
}

// Consume reads r until EOF or until ctx is done.
func (lr *LineReader) Consume(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, err := ParseLine(line)
		if err == nil {
			err = lr.board.Publish(k, v)
		}
		if err != nil {
			if lr.OnError != nil {
				lr.OnError(line, err)
			}
			continue
		}
		if lr.OnEvent != nil {
			lr.OnEvent(k, v)
		}
	}
	return scanner.Err()
}

// OpenSerial opens a serial port for the sensor stream.
func OpenSerial(portName string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return port, nil
}

// ListPorts returns the serial ports present on the host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
