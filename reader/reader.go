// Package reader parses newline-delimited session logs into ordered
// transcript records.
package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/sonnes/sessionview/core"
)

// maxLineSize is the largest JSONL line accepted (16 MB). Tool results
// routinely exceed the 64 KB read buffer, so lines are assembled from
// several reads.
const maxLineSize = 16 << 20

// Result is the outcome of parsing one log. Records keep stream order;
// Errors lists the lines that failed validation and were left out.
type Result struct {
	Records []core.Record
	Errors  []core.LineError
}

// Parse reads JSONL from r. Each line is decoded independently: blank lines
// are skipped, and an invalid or oversized line is recorded in Result.Errors
// without stopping the read. Only a read failure of r itself is returned as
// an error.
func Parse(r io.Reader) (*Result, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	res := &Result{Records: []core.Record{}}
	var buf []byte
	for line := 1; ; line++ {
		var (
			tooLong bool
			err     error
		)
		buf, tooLong, err = readLine(br, buf[:0])
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read records: %w", err)
		}
		eof := err == io.EOF
		if eof && len(buf) == 0 && !tooLong {
			break
		}

		if tooLong {
			res.Errors = append(res.Errors, core.LineError{
				Line:    line,
				Message: fmt.Sprintf("line exceeds %d bytes", maxLineSize),
			})
		} else if raw := bytes.TrimSpace(buf); len(raw) > 0 {
			rec, err := decodeRecord(raw)
			if err != nil {
				res.Errors = append(res.Errors, core.LineError{Line: line, Message: err.Error()})
			} else {
				res.Records = append(res.Records, rec)
			}
		}
		if eof {
			break
		}
	}
	return res, nil
}

// readLine appends the next line of br to buf, without its newline. A line
// longer than maxLineSize is consumed up to its newline and reported as
// tooLong with an empty buf. err is io.EOF for the final line.
func readLine(br *bufio.Reader, buf []byte) ([]byte, bool, error) {
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if len(bytes.TrimSuffix(buf, newline)) > maxLineSize {
				tooLong, buf = true, buf[:0]
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return bytes.TrimSuffix(buf, newline), tooLong, err
	}
}

var newline = []byte{'\n'}

// ParseBytes is Parse over an in-memory log.
func ParseBytes(data []byte) (*Result, error) {
	return Parse(bytes.NewReader(data))
}
