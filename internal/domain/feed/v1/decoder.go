package feedv1

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	orderbookv1 "github.com/chuvpilo/pricer/internal/domain/orderbook/v1"
)

// ErrBadParse is returned for any feed message that does not decode into an
// order event. The book never sees such messages; the host skips them.
var ErrBadParse = errors.New("malformed feed message")

const priceScale = 100 // minor units per display unit

// Decode turns one raw feed line into an order event.
//
// Add:    "28800562 A c B 44.10 100"  -> timestamp, id, side, price, size
// Reduce: "28800744 R b 100"          -> timestamp, id, size
//
// Prices arrive as decimal strings and are converted to integer minor units
// (x100, truncated) so all book arithmetic stays integral.
func Decode(msg string) (*orderbookv1.Order, error) {
	fields := strings.Fields(msg)

	if len(fields) != 4 && len(fields) != 6 {
		return nil, fmt.Errorf("%w: expected 4 or 6 fields, got %d", ErrBadParse, len(fields))
	}

	timestamp, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", ErrBadParse, fields[0])
	}

	switch fields[1] {
	case "A":
		if len(fields) != 6 {
			return nil, fmt.Errorf("%w: add message needs 6 fields, got %d", ErrBadParse, len(fields))
		}

		var side orderbookv1.Side
		switch fields[3] {
		case "B":
			side = orderbookv1.SideBuy
		case "S":
			side = orderbookv1.SideSell
		default:
			return nil, fmt.Errorf("%w: bad side %q", ErrBadParse, fields[3])
		}

		price, err := decodePrice(fields[4])
		if err != nil {
			return nil, err
		}

		size, err := strconv.ParseInt(fields[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad size %q", ErrBadParse, fields[5])
		}

		return orderbookv1.NewAddOrder(timestamp, fields[2], side, price, size), nil

	case "R":
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: reduce message needs 4 fields, got %d", ErrBadParse, len(fields))
		}

		size, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad size %q", ErrBadParse, fields[3])
		}

		return orderbookv1.NewReduceOrder(timestamp, fields[2], size), nil

	default:
		return nil, fmt.Errorf("%w: bad order type %q", ErrBadParse, fields[1])
	}
}

// decodePrice converts a decimal price string to minor units, truncating
// anything beyond two decimal places.
func decodePrice(s string) (int64, error) {
	whole, frac, _ := strings.Cut(s, ".")

	price, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || price < 0 {
		return 0, fmt.Errorf("%w: bad price %q", ErrBadParse, s)
	}
	price *= priceScale

	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad price %q", ErrBadParse, s)
		}
		price += cents
	}

	return price, nil
}
