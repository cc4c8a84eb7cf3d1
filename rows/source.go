package rows

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/teranos/modx/document"
	"github.com/teranos/modx/errors"
	"github.com/teranos/modx/modify"
	"gopkg.in/yaml.v3"
)

// SliceSource yields a fixed set of rows.
type SliceSource struct {
	rows []modify.Row
	pos  int
}

// NewSliceSource returns a source over rows.
func NewSliceSource(rows ...modify.Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// FetchRow implements modify.RowSource. The last row is returned together
// with Done.
func (s *SliceSource) FetchRow(ctx context.Context) (modify.FetchStatus, modify.Row, error) {
	if s.pos >= len(s.rows) {
		return modify.Done, nil, nil
	}
	row := s.rows[s.pos]
	s.pos++
	if s.pos == len(s.rows) {
		return modify.Done, row, nil
	}
	return modify.HasMore, row, nil
}

// FuncSource adapts a function to modify.RowSource.
type FuncSource func(ctx context.Context) (modify.FetchStatus, modify.Row, error)

func (f FuncSource) FetchRow(ctx context.Context) (modify.FetchStatus, modify.Row, error) {
	return f(ctx)
}

// Format selects how a DecoderSource reads its input.
type Format string

const (
	FormatJSONLines Format = "jsonl"
	FormatYAML      Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSONLines, FormatYAML:
		return Format(name), nil
	case "json":
		return FormatJSONLines, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", errors.NewInvalidRequestError("unsupported row format %q", name)
}

// DecoderSource reads rows from a JSON-lines or multi-document YAML stream.
// With roles set, each record is an object of role name to value; otherwise
// each record is the Document role.
type DecoderSource struct {
	next  func() (document.Value, error)
	roles bool
	count int
}

const maxLineSize = 16 << 20

// NewDecoderSource returns a source reading r in the given format.
func NewDecoderSource(r io.Reader, format Format, roles bool) (*DecoderSource, error) {
	src := &DecoderSource{roles: roles}
	switch format {
	case FormatJSONLines:
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		src.next = func() (document.Value, error) {
			for scanner.Scan() {
				line := bytes.TrimSpace(scanner.Bytes())
				if len(line) == 0 {
					continue
				}
				return document.Parse(line)
			}
			if err := scanner.Err(); err != nil {
				return document.None(), errors.Wrap(err, "failed to read rows")
			}
			return document.None(), io.EOF
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		src.next = func() (document.Value, error) {
			var raw interface{}
			if err := dec.Decode(&raw); err != nil {
				if err == io.EOF {
					return document.None(), io.EOF
				}
				return document.None(), errors.Wrap(err, "failed to parse YAML row")
			}
			return document.FromGo(raw)
		}
	default:
		return nil, errors.NewInvalidRequestError("unsupported row format %q", format)
	}
	return src, nil
}

// FetchRow implements modify.RowSource.
func (s *DecoderSource) FetchRow(ctx context.Context) (modify.FetchStatus, modify.Row, error) {
	if err := ctx.Err(); err != nil {
		return modify.Done, nil, err
	}
	v, err := s.next()
	if err == io.EOF {
		return modify.Done, nil, nil
	}
	if err != nil {
		return modify.Done, nil, errors.Wrapf(err, "row %d", s.count+1)
	}
	s.count++
	if !s.roles {
		return modify.HasMore, DocumentRow(v), nil
	}
	row, err := FromRoles(v)
	if err != nil {
		return modify.Done, nil, errors.Wrapf(err, "row %d", s.count)
	}
	return modify.HasMore, row, nil
}

// Count returns the number of rows read so far.
func (s *DecoderSource) Count() int { return s.count }
