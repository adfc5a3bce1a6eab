// Package index parses Debian "Sources" indexes into archive records.
//
// The parser is a two-state machine driven line by line. A paragraph opens
// with "Package:", may carry "Version:" and "Directory:" headers in any order,
// and lists its files in a continuation block below the header chosen by the
// Variant. A "Directory:" header only applies to data lines read after it.
// Data lines that do not name a tar archive are skipped; any line that breaks
// the grammar aborts the whole parse.
package index

import (
	"bufio"
	"encoding/hex"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

const (
	keyPackage   = "Package:"
	keyVersion   = "Version:"
	keyDirectory = "Directory:"

	// maxLineSize bounds a single index line. Real indexes stay far below it.
	maxLineSize = 4 * 1024 * 1024
)

// Options configures a parse.
type Options struct {
	// BaseURL is the mirror root that Directory values are relative to.
	BaseURL string
	// Variant defaults to VariantMD5 when zero.
	Variant Variant
}

type blockState int

const (
	outsideBlock blockState = iota
	inFileListBlock
)

func (s blockState) String() string {
	if s == inFileListBlock {
		return "InFileListBlock"
	}
	return "OutsideBlock"
}

// parseState is the paragraph context carried between lines.
type parseState struct {
	block     blockState
	pkg       string
	version   string
	directory string
}

type parser struct {
	opts    Options
	state   parseState
	lineNo  int
	records []model.ArchiveRecord
}

// Parse reads a sources index from r and returns its archive records in
// index order. On a malformed line it returns a *errors.MalformedIndexLineError
// and no records.
func Parse(r io.Reader, opts Options) ([]model.ArchiveRecord, error) {
	if opts.Variant.FileListKey == "" {
		opts.Variant = VariantMD5
	}
	if err := validateBaseURL(opts.BaseURL); err != nil {
		return nil, err
	}

	p := &parser{opts: opts}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		p.lineNo++
		if err := p.feed(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read index")
	}
	return p.records, nil
}

// ParseString is Parse over an in-memory index.
func ParseString(text string, opts Options) ([]model.ArchiveRecord, error) {
	return Parse(strings.NewReader(text), opts)
}

func validateBaseURL(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidBaseURL, "%q: %v", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(errors.ErrInvalidBaseURL, "%q must be an absolute URL", base)
	}
	return nil
}

func isContinuation(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// feed applies one line to the state machine.
func (p *parser) feed(line string) error {
	if isContinuation(line) {
		if p.state.block != inFileListBlock {
			return nil
		}
		return p.dataLine(line)
	}

	switch {
	case strings.HasPrefix(line, keyPackage):
		name, err := p.headerValue(line)
		if err != nil {
			return err
		}
		p.state = parseState{block: outsideBlock, pkg: name}
	case strings.HasPrefix(line, keyVersion):
		v, err := p.headerValue(line)
		if err != nil {
			return err
		}
		p.state.version = v
		p.state.block = outsideBlock
	case strings.HasPrefix(line, keyDirectory):
		dir, err := p.headerValue(line)
		if err != nil {
			return err
		}
		p.state.directory = dir
		p.state.block = outsideBlock
	case strings.HasPrefix(line, p.opts.Variant.FileListKey):
		p.state.block = inFileListBlock
	default:
		// Any other header or a blank line closes the file list.
		p.state.block = outsideBlock
	}
	return nil
}

func (p *parser) headerValue(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", p.malformed(line, "header has no value", nil)
	}
	return fields[1], nil
}

func (p *parser) dataLine(line string) error {
	fields := strings.Fields(line)

	var sumHex, sizeText, filename string
	if p.opts.Variant.HasChecksum() {
		if len(fields) != 3 {
			return p.malformed(line, "expected <checksum> <size> <filename>", nil)
		}
		sumHex, sizeText, filename = fields[0], fields[1], fields[2]
	} else {
		if len(fields) < 2 {
			return p.malformed(line, "expected at least <size> <filename>", nil)
		}
		sizeText, filename = fields[len(fields)-2], fields[len(fields)-1]
	}

	size, err := strconv.ParseInt(sizeText, 10, 64)
	if err != nil {
		return p.malformed(line, "invalid size", err)
	}
	if size < 0 {
		return p.malformed(line, "negative size", nil)
	}

	var sum []byte
	if p.opts.Variant.HasChecksum() {
		sum, err = hex.DecodeString(sumHex)
		if err != nil {
			return p.malformed(line, "invalid hex checksum", err)
		}
		want, _ := p.opts.Variant.Algorithm.Size()
		if len(sum) != want {
			return p.malformed(line, "checksum has wrong length for "+p.opts.Variant.Algorithm.String(), nil)
		}
	}

	if !model.IsArchive(filename) {
		return nil
	}

	rec, err := model.NewArchiveRecord(model.ArchiveRecord{
		URL:       JoinURL(p.opts.BaseURL, p.state.directory, filename),
		Package:   p.state.pkg,
		Version:   p.state.version,
		Filename:  filename,
		Size:      size,
		Checksum:  sum,
		Algorithm: p.opts.Variant.Algorithm,
	})
	if err != nil {
		return p.malformed(line, "invalid record", err)
	}
	p.records = append(p.records, rec)
	return nil
}

func (p *parser) malformed(line, reason string, err error) error {
	return errors.NewMalformedIndexLineError(p.lineNo, line, reason, err)
}
