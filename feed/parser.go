package feed

import (
	"bytes"
	"errors"

	"github.com/antchfx/xmlquery"
	"github.com/creativeprojects/feedme/lib"
)

const summaryLength = 200

var ErrNoRootElement = errors.New("document has no root element")

// Document is a parsed feed, navigable with XPath
type Document struct {
	root *xmlquery.Node
}

// Root returns the top element of the document
func (d *Document) Root() *xmlquery.Node {
	for node := d.root.FirstChild; node != nil; node = node.NextSibling {
		if node.Type == xmlquery.ElementNode {
			return node
		}
	}
	return nil
}

// Parse reads an XML document. The encoding declared in the prolog is honoured.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &lib.ParsingError{
			Summary: lib.Summarize(data, summaryLength),
			Err:     err,
		}
	}
	doc := &Document{root: root}
	if doc.Root() == nil {
		return nil, &lib.ParsingError{
			Summary: lib.Summarize(data, summaryLength),
			Err:     ErrNoRootElement,
		}
	}
	return doc, nil
}
