package converge

import (
	"context"
	"errors"
)

// bisectCap bounds bisection even when the probe misbehaves; log2 of any
// realistic corpus stays well under it.
const bisectCap = 20

// Probe reports whether a set of files still reproduces a failure.
type Probe func(ctx context.Context, files []string) (bool, error)

// Bisect narrows a failing file set to a single file by binary search.
// The probe is assumed monotone: if a set fails, some member of it fails
// alone. Returns the isolated file and the number of probe calls made.
func Bisect(ctx context.Context, files []string, probe Probe) (string, int, error) {
	if len(files) == 0 {
		return "", 0, errors.New("bisect: empty file set")
	}
	calls := 0
	for len(files) > 1 {
		if calls >= bisectCap {
			return "", calls, errors.New("bisect: iteration cap exceeded")
		}
		if err := ctx.Err(); err != nil {
			return "", calls, err
		}
		mid := len(files) / 2
		lower := files[:mid]
		failing, err := probe(ctx, lower)
		calls++
		if err != nil {
			return "", calls, err
		}
		if failing {
			files = lower
		} else {
			files = files[mid:]
		}
	}
	return files[0], calls, nil
}
