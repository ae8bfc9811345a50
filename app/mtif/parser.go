package mtif

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/encoding/charmap"

	"github.com/lysyi3m/mt2wp/app/content"
)

const (
	recordTerminator = "--------"
	blockSeparator   = "-----"

	maxLineSize = 16 * 1024 * 1024
)

var dateLayouts = []string{
	"01/02/2006 03:04:05 PM",
	"01/02/2006 3:04:05 PM",
	"01/02/2006 15:04:05",
}

var commentKeys = map[string]bool{
	"AUTHOR": true,
	"EMAIL":  true,
	"URL":    true,
	"IP":     true,
	"DATE":   true,
}

var _ content.Source = (*Parser)(nil)

// Parser decodes a Movable Type export one record at a time.
type Parser struct {
	scanner  *bufio.Scanner
	closer   io.Closer
	location *time.Location
	record   int
	line     int
	done     bool
}

type line struct {
	number int
	text   string
}

func NewParser(r io.Reader, location *time.Location) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	if location == nil {
		location = time.Local
	}

	return &Parser{
		scanner:  scanner,
		location: location,
	}
}

// Open opens the export at path, decoding it from the given charset
// ("utf-8" when empty).
func Open(path, encoding string, location *time.Location) (*Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}

	var r io.Reader = f
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
	case "windows-1252", "cp1252":
		r = charmap.Windows1252.NewDecoder().Reader(f)
	case "iso-8859-1", "latin1":
		r = charmap.ISO8859_1.NewDecoder().Reader(f)
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported export encoding %q", encoding)
	}

	p := NewParser(r, location)
	p.closer = f
	return p, nil
}

func (p *Parser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// Next returns the next post, or io.EOF once the export is exhausted.
// Any decoding failure is returned as a *ParseError and ends the sequence.
func (p *Parser) Next() (*content.Post, error) {
	if p.done {
		return nil, io.EOF
	}

	lines, terminated, err := p.readRecord()
	if err != nil {
		p.done = true
		return nil, err
	}

	if !terminated {
		p.done = true
		if allBlank(lines) {
			return nil, io.EOF
		}
		p.record++
		return nil, p.errorf(lines, lines[len(lines)-1].number, ErrUnterminatedRecord)
	}

	p.record++
	post, err := p.decodeRecord(lines)
	if err != nil {
		p.done = true
		return nil, err
	}

	return post, nil
}

func (p *Parser) readRecord() ([]line, bool, error) {
	var lines []line

	for p.scanner.Scan() {
		p.line++
		text := strings.TrimRight(p.scanner.Text(), "\r")
		if p.line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}

		if text == recordTerminator {
			return lines, true, nil
		}
		lines = append(lines, line{number: p.line, text: text})
	}

	if err := p.scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read export: %w", err)
	}

	return lines, false, nil
}

func (p *Parser) decodeRecord(lines []line) (*content.Post, error) {
	blocks := splitBlocks(lines)

	post := &content.Post{Status: content.StatusPublished}
	if err := p.decodeMetadata(post, lines, blocks[0]); err != nil {
		return nil, err
	}

	for _, block := range blocks[1:] {
		block = trimBlank(block)
		if len(block) == 0 {
			continue
		}

		name, ok := sectionName(block[0].text)
		if !ok {
			return nil, p.errorf(lines, block[0].number, fmt.Errorf("%w: expected section header, got %q", ErrMalformedLine, block[0].text))
		}

		body := block[1:]
		switch name {
		case "BODY":
			post.Body = joinLines(body)
		case "EXTENDED BODY":
			post.ExtendedBody = joinLines(body)
		case "EXCERPT":
			post.Excerpt = joinLines(body)
		case "COMMENT":
			comment, err := p.decodeComment(lines, body)
			if err != nil {
				return nil, err
			}
			if comment.Date.IsZero() {
				comment.Date = post.Date
			}
			post.Comments = append(post.Comments, comment)
		}
	}

	return post, nil
}

func (p *Parser) decodeMetadata(post *content.Post, record, block []line) error {
	seenCategory := make(map[string]bool)
	hasDate := false

	for _, l := range block {
		text := strings.TrimSpace(l.text)
		if text == "" {
			continue
		}

		key, value, ok := strings.Cut(text, ":")
		if !ok {
			return p.errorf(record, l.number, fmt.Errorf("%w: %q", ErrMalformedLine, text))
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "TITLE":
			post.Title = value
		case "AUTHOR":
			post.Author = value
		case "BASENAME":
			post.Basename = value
		case "STATUS":
			if strings.EqualFold(value, "draft") {
				post.Status = content.StatusDraft
			} else {
				post.Status = content.StatusPublished
			}
		case "ALLOW COMMENTS":
			post.AllowComments = value == "1"
		case "PRIMARY CATEGORY":
			post.PrimaryCategory = value
		case "CATEGORY":
			if value != "" && !seenCategory[value] {
				seenCategory[value] = true
				post.Categories = append(post.Categories, value)
			}
		case "DATE":
			date, err := p.parseDate(value)
			if err != nil {
				return p.errorf(record, l.number, err)
			}
			post.Date = date
			hasDate = true
		}
	}

	if !hasDate {
		return p.errorf(record, 0, ErrMissingDate)
	}

	return nil
}

func (p *Parser) decodeComment(record, block []line) (content.Comment, error) {
	var comment content.Comment

	i := 0
	for ; i < len(block); i++ {
		key, value, ok := strings.Cut(block[i].text, ":")
		key = strings.ToUpper(strings.TrimSpace(key))
		if !ok || !commentKeys[key] {
			break
		}
		value = strings.TrimSpace(value)

		switch key {
		case "AUTHOR":
			comment.Author = value
		case "EMAIL":
			comment.Email = value
		case "URL":
			comment.URL = value
		case "IP":
			comment.IP = value
		case "DATE":
			if value == "" {
				continue
			}
			date, err := p.parseDate(value)
			if err != nil {
				return comment, p.errorf(record, block[i].number, err)
			}
			comment.Date = date
		}
	}

	comment.Body = joinLines(block[i:])
	return comment, nil
}

func (p *Parser) parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, p.location); err == nil {
			return t, nil
		}
	}

	t, err := dateparse.ParseIn(value, p.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

func (p *Parser) errorf(record []line, lineNumber int, err error) *ParseError {
	return &ParseError{
		Record: p.record,
		Title:  findTitle(record),
		Line:   lineNumber,
		Err:    err,
	}
}

func findTitle(record []line) string {
	for _, l := range record {
		if l.text == blockSeparator {
			break
		}
		key, value, ok := strings.Cut(l.text, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "TITLE") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func splitBlocks(lines []line) [][]line {
	blocks := [][]line{nil}
	for _, l := range lines {
		if l.text == blockSeparator {
			blocks = append(blocks, nil)
			continue
		}
		blocks[len(blocks)-1] = append(blocks[len(blocks)-1], l)
	}
	return blocks
}

// sectionName reports the name of a "NAME:" header line.
func sectionName(text string) (string, bool) {
	text = strings.TrimSpace(text)
	name, ok := strings.CutSuffix(text, ":")
	if !ok || name == "" {
		return "", false
	}
	for _, r := range name {
		if (r < 'A' || r > 'Z') && r != ' ' {
			return "", false
		}
	}
	return name, true
}

func trimBlank(lines []line) []line {
	for len(lines) > 0 && strings.TrimSpace(lines[0].text) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1].text) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinLines(lines []line) string {
	lines = trimBlank(lines)
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text
	}
	return strings.Join(parts, "\n")
}

func allBlank(lines []line) bool {
	return len(trimBlank(lines)) == 0
}
