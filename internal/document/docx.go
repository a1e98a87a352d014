package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Main document part inside a WordprocessingML package.
const docxMainPart = "word/document.xml"

// WordprocessingML namespaces: transitional and strict.
var wordNamespaces = map[string]bool{
	"http://schemas.openxmlformats.org/wordprocessingml/2006/main": true,
	"http://purl.oclc.org/ooxml/wordprocessingml/main":            true,
}

// ErrNoDocumentPart is returned when the archive has no word/document.xml.
var ErrNoDocumentPart = errors.New("docx: missing " + docxMainPart)

// ReadDOCXFile reads the top-level tables of the .docx file at path.
func ReadDOCXFile(path string) ([]Table, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()

	tables, err := readDOCXArchive(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return tables, nil
}

// ReadDOCX reads the top-level tables of a .docx held in memory.
func ReadDOCX(data []byte) ([]Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx: %w", err)
	}
	return readDOCXArchive(zr)
}

func readDOCXArchive(zr *zip.Reader) ([]Table, error) {
	for _, f := range zr.File {
		if f.Name != docxMainPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open %s: %w", docxMainPart, err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return nil, ErrNoDocumentPart
}

// cellBuilder accumulates one w:tc.
type cellBuilder struct {
	paragraphs []string
	current    strings.Builder
	inPara     bool
	span       int
	vMerge     bool // continuation of a vertically merged cell
}

func (c *cellBuilder) text() string {
	paras := c.paragraphs
	if c.inPara {
		paras = append(paras, c.current.String())
	}
	return strings.Join(paras, "\n")
}

// docxParser walks document.xml as a token stream. Only tables directly in
// the body (or in body-level content controls) are collected; tables nested
// inside a cell are ignored, as is their text.
type docxParser struct {
	tables   []Table
	depth    int // w:tbl nesting depth
	row      []string
	rowOpen  bool
	cell     *cellBuilder
	inRun    bool
	inText   bool
	prevRows [][]string
}

func parseDocumentXML(r io.Reader) ([]Table, error) {
	p := &docxParser{}
	dec := xml.NewDecoder(r)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docx: parse %s: %w", docxMainPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if wordNamespaces[t.Name.Space] {
				p.start(t)
			}
		case xml.EndElement:
			if wordNamespaces[t.Name.Space] {
				p.end(t.Name.Local)
			}
		case xml.CharData:
			if p.inText && p.cell != nil && p.cell.inPara {
				p.cell.current.Write(t)
			}
		}
	}
	return p.tables, nil
}

func (p *docxParser) start(el xml.StartElement) {
	name := el.Name.Local
	if name == "tbl" {
		p.depth++
		if p.depth == 1 {
			p.tables = append(p.tables, Table{})
		}
		return
	}
	if p.depth != 1 {
		return
	}

	switch name {
	case "tr":
		p.row = nil
		p.rowOpen = true
	case "tc":
		if p.rowOpen {
			p.cell = &cellBuilder{span: 1}
		}
	case "gridSpan":
		if p.cell != nil {
			if n, err := strconv.Atoi(attr(el, "val")); err == nil && n > 1 {
				p.cell.span = n
			}
		}
	case "vMerge":
		// A bare <w:vMerge/> or val="continue" continues the cell above.
		if p.cell != nil {
			v := attr(el, "val")
			p.cell.vMerge = v == "" || v == "continue"
		}
	case "p":
		if p.cell != nil {
			p.cell.current.Reset()
			p.cell.inPara = true
		}
	case "r":
		p.inRun = true
	case "t":
		p.inText = p.inRun
	case "tab":
		// Tab stops in paragraph properties share the name; only run tabs are text.
		if p.inRun && p.cell != nil && p.cell.inPara {
			p.cell.current.WriteByte('\t')
		}
	case "br", "cr":
		if p.inRun && p.cell != nil && p.cell.inPara {
			p.cell.current.WriteByte('\n')
		}
	}
}

func (p *docxParser) end(name string) {
	if name == "tbl" {
		if p.depth == 1 {
			p.prevRows = nil
		}
		p.depth--
		return
	}
	if p.depth != 1 {
		return
	}

	switch name {
	case "r":
		p.inRun = false
	case "t":
		p.inText = false
	case "p":
		if p.cell != nil && p.cell.inPara {
			p.cell.paragraphs = append(p.cell.paragraphs, p.cell.current.String())
			p.cell.inPara = false
		}
	case "tc":
		if p.cell == nil {
			return
		}
		col := len(p.row)
		text := p.cell.text()
		if p.cell.vMerge {
			text = p.cellAbove(col)
		}
		// A cell spanning several grid columns repeats its text in each.
		for i := 0; i < p.cell.span; i++ {
			p.row = append(p.row, text)
		}
		p.cell = nil
	case "tr":
		if !p.rowOpen {
			return
		}
		cur := &p.tables[len(p.tables)-1]
		cur.Rows = append(cur.Rows, p.row)
		p.prevRows = cur.Rows
		p.row = nil
		p.rowOpen = false
	}
}

func (p *docxParser) cellAbove(col int) string {
	if len(p.prevRows) == 0 {
		return ""
	}
	above := p.prevRows[len(p.prevRows)-1]
	if col < len(above) {
		return above[col]
	}
	return ""
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
