package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Document is a parsed INI configuration: an ordered set of named
// categories, each an ordered set of name=value items, grounded on
// the original Janus janus_config/janus_config_category/janus_config_item
// model (config.h).
type Document struct {
	categories    map[string]*Category
	categoryOrder []string
}

// Category is one [section] of a Document.
type Category struct {
	Name      string
	items     map[string]string
	itemOrder []string
}

// NewDocument returns an empty configuration document.
func NewDocument() *Document {
	return &Document{categories: make(map[string]*Category)}
}

// Categories returns every category name, in file order.
func (d *Document) Categories() []string {
	return append([]string{}, d.categoryOrder...)
}

// Category returns the named category, creating it if absent.
func (d *Document) Category(name string) *Category {
	if c, ok := d.categories[name]; ok {
		return c
	}
	c := &Category{Name: name, items: make(map[string]string)}
	d.categories[name] = c
	d.categoryOrder = append(d.categoryOrder, name)
	return c
}

// HasCategory reports whether name has been added.
func (d *Document) HasCategory(name string) bool {
	_, ok := d.categories[name]
	return ok
}

// RemoveCategory deletes a category and all of its items.
func (d *Document) RemoveCategory(name string) {
	if _, ok := d.categories[name]; !ok {
		return
	}
	delete(d.categories, name)
	for i, n := range d.categoryOrder {
		if n == name {
			d.categoryOrder = append(d.categoryOrder[:i], d.categoryOrder[i+1:]...)
			break
		}
	}
}

// Items returns every item name in the category, in file order.
func (c *Category) Items() []string {
	return append([]string{}, c.itemOrder...)
}

// Get returns an item's value and whether it was present.
func (c *Category) Get(name string) (string, bool) {
	v, ok := c.items[name]
	return v, ok
}

// Set adds or overwrites an item's value.
func (c *Category) Set(name, value string) {
	if _, exists := c.items[name]; !exists {
		c.itemOrder = append(c.itemOrder, name)
	}
	c.items[name] = value
}

// Remove deletes an item.
func (c *Category) Remove(name string) {
	if _, ok := c.items[name]; !ok {
		return
	}
	delete(c.items, name)
	for i, n := range c.itemOrder {
		if n == name {
			c.itemOrder = append(c.itemOrder[:i], c.itemOrder[i+1:]...)
			break
		}
	}
}

// ParseINI reads an INI document from r. Lines starting with # or ;
// are comments; [name] opens a category; bare name=value lines before
// the first category land in an implicit "general" category.
func ParseINI(r io.Reader) (*Document, error) {
	doc := NewDocument()
	current := doc.Category("general")

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("config: line %d: unterminated category header", lineNo)
			}
			current = doc.Category(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, fmt.Errorf("config: line %d: expected name=value", lineNo)
		}
		name := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		current.Set(name, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// WriteINI serializes doc back to the same grammar ParseINI reads, so
// a round trip through Parse/Write is stable.
func WriteINI(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	for _, catName := range doc.Categories() {
		cat := doc.categories[catName]
		if catName != "general" {
			if _, err := fmt.Fprintf(bw, "[%s]\n", catName); err != nil {
				return err
			}
		}
		for _, itemName := range cat.Items() {
			v, _ := cat.Get(itemName)
			if _, err := fmt.Fprintf(bw, "%s=%s\n", itemName, v); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Dump renders doc as INI text, mainly for tests and diagnostics.
func Dump(doc *Document) string {
	var buf bytes.Buffer
	_ = WriteINI(&buf, doc)
	return buf.String()
}

// SortedCategories returns category names sorted alphabetically,
// independent of file order; used by introspection callers that want
// a stable listing rather than source order.
func SortedCategories(doc *Document) []string {
	names := doc.Categories()
	sort.Strings(names)
	return names
}
