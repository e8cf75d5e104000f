package protocol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/danmuck/gmpctl/internal/protocol/frame"
)

// Command builds one outbound command element.
type Command struct {
	doc  *etree.Document
	root *Element
}

// Element is a mutable element inside a Command.
type Element struct {
	el *etree.Element
}

func NewCommand(name string) *Command {
	doc := etree.NewDocument()
	root := doc.CreateElement(name)
	return &Command{doc: doc, root: &Element{el: root}}
}

// Name returns the command element name.
func (c *Command) Name() string {
	return c.root.el.FullTag()
}

// ResponseTag is the root tag the server answers this command with.
func (c *Command) ResponseTag() string {
	return c.Name() + ResponseSuffix
}

// Attr sets an attribute on the command element.
func (c *Command) Attr(key, value string) *Command {
	c.root.Attr(key, value)
	return c
}

// Element appends a child element to the command element.
func (c *Command) Element(name string) *Element {
	return c.root.Element(name)
}

// Leaf appends a text-only child element to the command element.
func (c *Command) Leaf(name, value string) *Command {
	c.root.Leaf(name, value)
	return c
}

// String renders the command on a single line without an XML declaration.
func (c *Command) String() string {
	// Rendering into memory cannot fail.
	out, _ := c.doc.WriteToString()
	return out
}

func (e *Element) Attr(key, value string) *Element {
	e.el.CreateAttr(key, value)
	return e
}

func (e *Element) Element(name string) *Element {
	return &Element{el: e.el.CreateElement(name)}
}

// Text sets the character data of the element.
func (e *Element) Text(value string) *Element {
	e.el.SetText(value)
	return e
}

// Leaf appends a child element holding only text.
func (e *Element) Leaf(name, value string) *Element {
	e.Element(name).Text(value)
	return e
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape makes value safe for hand-built command text or attribute values.
func Escape(value string) string {
	return escaper.Replace(value)
}

var openTagSpace = regexp.MustCompile(`<\s+`)

// ResponseTagFor derives the expected response root tag of a raw command.
// Whitespace between '<' and the element name is tolerated.
func ResponseTagFor(commandXML string) (string, error) {
	name := frame.RootTag([]byte(openTagSpace.ReplaceAllString(commandXML, "<")))
	if name == "" {
		return "", fmt.Errorf("%w: no element in command", ErrInvalidCommand)
	}
	return name + ResponseSuffix, nil
}
