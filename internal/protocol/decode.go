package protocol

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Document is one parsed response.
type Document struct {
	Raw  string
	Root *Node

	tree *etree.Document
}

// RootTag returns the qualified name of the root element.
func (d *Document) RootTag() string {
	if d == nil {
		return ""
	}
	return d.Root.Tag()
}

// ParseDocument validates raw as a well-formed single-root XML document and
// builds its Node tree. Failures wrap ErrMalformedDocument.
func ParseDocument(raw string) (*Document, error) {
	if err := validateWellFormed(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	tree := etree.NewDocument()
	tree.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := tree.ReadFromString(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}
	return &Document{Raw: raw, Root: &Node{el: root}, tree: tree}, nil
}

func validateWellFormed(raw string) error {
	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel
	depth, roots := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return fmt.Errorf("second root element <%s>", t.Name.Local)
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(strings.TrimSpace(string(t))) > 0 {
				return errors.New("text outside root element")
			}
		}
	}
	if roots == 0 {
		return errors.New("no root element")
	}
	return nil
}
