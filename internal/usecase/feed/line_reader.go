package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	feedv1 "github.com/chuvpilo/pricer/internal/domain/feed/v1"
	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
	"github.com/chuvpilo/pricer/pkg/errors"
	"github.com/chuvpilo/pricer/pkg/logger"
)

// LineReader reads feed messages line by line from an io.Reader. It backs
// both the market-data-file source (finite, ends with io.EOF) and the
// interactive stdin source. Offsets are 1-based line numbers.
type LineReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	logger  logger.Interface
	offset  int64
}

// NewFileReader creates a reader replaying a market data file.
func NewFileReader(path string, log logger.Interface) (*LineReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewTracer("failed to open market data file").Wrap(err)
	}

	return &LineReader{
		scanner: bufio.NewScanner(f),
		closer:  f,
		logger:  log,
	}, nil
}

// NewStdinReader creates a reader consuming feed messages interactively
// from standard input.
func NewStdinReader(log logger.Interface) *LineReader {
	return &LineReader{
		scanner: bufio.NewScanner(os.Stdin),
		logger:  log,
	}
}

// NewLineReader creates a reader over an arbitrary line source.
func NewLineReader(r io.Reader, log logger.Interface) *LineReader {
	return &LineReader{
		scanner: bufio.NewScanner(r),
		logger:  log,
	}
}

// ReadMessage returns the next decoded order event. Blank lines are
// skipped; a decode failure is returned with its offset so the caller can
// skip the message and keep reading.
func (r *LineReader) ReadMessage(ctx context.Context) (*orderbookv1.Order, int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, r.offset, err
		}

		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				r.logError(err, "ReadMessage")
				return nil, r.offset, errors.NewTracer("feed source read failed").Wrap(err)
			}
			return nil, r.offset, io.EOF
		}

		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		r.offset++

		order, err := feedv1.Decode(line)
		if err != nil {
			return nil, r.offset, err
		}

		return order, r.offset, nil
	}
}

// SetOffset fast-forwards the reader so the next message returned is the
// line at offset. Rewinding a line source is not supported.
func (r *LineReader) SetOffset(offset int64) error {
	if offset <= r.offset {
		if offset == r.offset {
			return nil
		}
		return fmt.Errorf("cannot rewind line source from offset %d to %d", r.offset, offset)
	}

	for r.offset < offset-1 {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return errors.NewTracer("feed source read failed").Wrap(err)
			}
			return io.EOF
		}
		if strings.TrimSpace(r.scanner.Text()) == "" {
			continue
		}
		r.offset++
	}

	return nil
}

// Close closes the underlying source, if it is closable.
func (r *LineReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// logError is a helper method to log errors consistently
func (r *LineReader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}
