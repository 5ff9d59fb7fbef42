package fingerprint

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// minColumns is id, title, duration_s, segment_length_s, encoding_tag plus
// at least one segment column.
const minColumns = 6

// LoadCSV parses the tabular fingerprint source from r. Rows share the
// shape (id, title, duration_s, segment_length_s, encoding_tag, seg_0,
// seg_1, ...); multiple rows may share an id, one per encoding, and each
// becomes its own Record. The record's video_idx is its position in
// reading order.
//
// LoadCSV has no header row: every line is data, matching the original
// tabular export. A row with too few columns or a non-integer segment
// value fails with a *LoadError naming the offending row number.
func LoadCSV(r io.Reader, sourceName string) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records := make([]Record, 0, 1024)
	ids := make(map[string]struct{})

	rowNum := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Source: sourceName, Row: rowNum, Err: err}
		}
		rowNum++

		if len(row) < minColumns {
			return nil, &LoadError{
				Source: sourceName,
				Row:    rowNum,
				Err:    fmt.Errorf("%w: expected at least %d columns, got %d", ErrMalformedRow, minColumns, len(row)),
			}
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, &LoadError{Source: sourceName, Row: rowNum, Err: err}
		}

		ids[rec.Video.ID] = struct{}{}
		records = append(records, rec)
	}

	return &Store{records: records, ids: ids}, nil
}

func parseRow(row []string) (Record, error) {
	duration, err := strconv.ParseInt(strings.TrimSpace(row[2]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: duration_s %q: %v", ErrMalformedRow, row[2], err)
	}
	segLen, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: segment_length_s %q: %v", ErrMalformedRow, row[3], err)
	}

	segments := make([]int64, 0, len(row)-5)
	for i, field := range row[5:] {
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("%w: segment %d %q: %v", ErrMalformedRow, i, field, err)
		}
		segments = append(segments, v)
	}

	return Record{
		Video: Video{
			ID:              row[0],
			Title:           row[1],
			DurationSeconds: duration,
			SegmentLength:   segLen,
			EncodingTag:     row[4],
		},
		Segments: segments,
	}, nil
}
