package profiles

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const maxSeriesLine = 1 << 20

// ParseSeries reads newline-delimited rows of comma-separated fields. The
// first line is a header. Every later row whose second field parses as a
// finite number contributes that number; other rows are skipped. Quotes carry
// no meaning.
func ParseSeries(r io.Reader) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSeriesLine)

	values := make([]float64, 0)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		line := strings.TrimSuffix(scanner.Text(), "\r")
		fields := strings.SplitN(line, ",", 3)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return values, nil
}
