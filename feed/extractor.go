package feed

import (
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/creativeprojects/feedme/lib"
)

const (
	DefaultTitle = "Unknown Title"
	DefaultBody  = "No description given."

	rssDetection  = "/rss/channel/item/title"
	atomDetection = "/feed/entry/title"
	rssItems      = "/rss/channel/item"
	atomEntries   = "/feed/entry"
)

// fields lists where to find each value of an entry, relative to the entry node
type fields struct {
	title     []string
	body      []string
	link      string
	rawID     string
	timestamp string
}

var (
	rssFields = fields{
		title:     []string{"./title"},
		body:      []string{"./description"},
		link:      "./link",
		rawID:     "./guid",
		timestamp: "./pubDate",
	}
	atomFields = fields{
		title:     []string{"./title"},
		body:      []string{"./summary", "./content"},
		link:      "./link",
		rawID:     "./id",
		timestamp: "./updated",
	}
)

type Extractor struct {
	log lib.Logger
	now func() time.Time
}

func NewExtractor(logger lib.Logger) *Extractor {
	return &Extractor{
		log: lib.OrNoLog(logger),
		now: time.Now,
	}
}

// Extract detects the format of the document and returns its entries.
// A document that is neither RSS nor Atom gives FormatUnknown and no entry.
func Extract(doc *Document) (Format, []Entry) {
	return NewExtractor(nil).Extract(doc)
}

func (e *Extractor) Extract(doc *Document) (Format, []Entry) {
	if doc == nil || doc.root == nil {
		return FormatUnknown, nil
	}
	switch {
	case len(xmlquery.Find(doc.root, rssDetection)) > 0:
		e.log.Debugf("document is an RSS feed")
		return FormatRSS, e.entries(xmlquery.Find(doc.root, rssItems), rssFields)
	case len(xmlquery.Find(doc.root, atomDetection)) > 0:
		e.log.Debugf("document is an Atom feed")
		return FormatAtom, e.entries(xmlquery.Find(doc.root, atomEntries), atomFields)
	default:
		e.log.Warnf("unable to find any RSS item or Atom entry in the document")
		return FormatUnknown, nil
	}
}

func (e *Extractor) entries(nodes []*xmlquery.Node, fields fields) []Entry {
	entries := make([]Entry, 0, len(nodes))
	for _, node := range nodes {
		entries = append(entries, e.entry(node, fields))
	}
	return entries
}

func (e *Extractor) entry(node *xmlquery.Node, fields fields) Entry {
	entry := Entry{
		Title: firstText(node, fields.title, DefaultTitle),
		Body:  firstText(node, fields.body, DefaultBody),
		Link:  e.link(node, fields.link),
		RawID: strings.TrimSpace(text(node, fields.rawID, "")),
	}
	if found := xmlquery.FindOne(node, fields.timestamp); found != nil {
		entry.Timestamp = ParseDate(found.InnerText(), e.now, e.log)
	} else {
		entry.Timestamp = e.now()
	}
	return entry
}

// link returns the text of the link element, or the href attribute of an Atom link
func (e *Extractor) link(node *xmlquery.Node, path string) *url.URL {
	raw := ""
	for _, link := range xmlquery.Find(node, path) {
		if value := strings.TrimSpace(link.InnerText()); value != "" {
			raw = value
			break
		}
		href := strings.TrimSpace(link.SelectAttr("href"))
		if href == "" {
			continue
		}
		rel := link.SelectAttr("rel")
		if rel == "" || rel == "alternate" {
			raw = href
			break
		}
		if raw == "" {
			raw = href
		}
	}
	if raw == "" {
		return nil
	}
	link, err := url.Parse(raw)
	if err != nil {
		e.log.Warnf("invalid link %q: %s", raw, err)
		return nil
	}
	return link
}

// text returns the text of the first node matching path, or defaultValue when there's none
func text(node *xmlquery.Node, path, defaultValue string) string {
	found := xmlquery.FindOne(node, path)
	if found == nil {
		return defaultValue
	}
	return found.InnerText()
}

func firstText(node *xmlquery.Node, paths []string, defaultValue string) string {
	for _, path := range paths {
		if found := xmlquery.FindOne(node, path); found != nil {
			return strings.TrimSpace(found.InnerText())
		}
	}
	return defaultValue
}
