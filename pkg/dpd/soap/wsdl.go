// Package soap is a minimal document/literal SOAP 1.1 client driven by a
// WSDL. It discovers the operations a service exposes and exchanges plain
// argument trees for decoded response trees.
package soap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const maxDescriptionSize = 4 << 20

// description is what Dial learns from a WSDL and the schemas it imports.
// Schema names are matched by local name.
type description struct {
	namespace  string
	address    string
	operations map[string]bool
	elements   map[string]*elementDecl
	types      map[string]*complexType
}

// elementDecl is an element declaration inside a schema or a complex type.
type elementDecl struct {
	repeated bool
	ref      string
	typeName string
	inline   *complexType
}

// complexType lists the child elements of a type. Children of base are
// inherited.
type complexType struct {
	base     string
	elements map[string]*elementDecl
}

func fetchDescription(ctx context.Context, client *http.Client, wsdlURL string) (*description, error) {
	d := &description{
		operations: map[string]bool{},
		elements:   map[string]*elementDecl{},
		types:      map[string]*complexType{},
	}
	seen := map[string]bool{}
	if err := d.load(ctx, client, wsdlURL, seen, true); err != nil {
		return nil, err
	}
	if len(d.operations) == 0 {
		return nil, fmt.Errorf("service description %s declares no operations", wsdlURL)
	}
	if d.address == "" {
		u, err := url.Parse(wsdlURL)
		if err != nil {
			return nil, fmt.Errorf("parsing WSDL URL: %w", err)
		}
		u.RawQuery = ""
		d.address = u.String()
	}
	return d, nil
}

func (d *description) load(ctx context.Context, client *http.Client, location string, seen map[string]bool, root bool) error {
	if seen[location] {
		return nil
	}
	seen[location] = true

	doc, err := fetchDocument(ctx, client, location)
	if err != nil {
		return err
	}
	top := doc.Root()
	if top == nil {
		return fmt.Errorf("service description %s is empty", location)
	}
	if root && top.Tag != "definitions" {
		return fmt.Errorf("service description %s: unexpected root element %q", location, top.Tag)
	}

	var imports []string
	walk(top, func(el *etree.Element) {
		switch el.Tag {
		case "definitions":
			if d.namespace == "" {
				d.namespace = el.SelectAttrValue("targetNamespace", "")
			}
		case "operation":
			if name := el.SelectAttrValue("name", ""); name != "" && parentTag(el) == "portType" {
				d.operations[name] = true
			}
		case "address":
			if loc := el.SelectAttrValue("location", ""); loc != "" && d.address == "" {
				d.address = loc
			}
		case "schema":
			d.parseSchema(el)
		case "import", "include":
			if loc := el.SelectAttrValue("schemaLocation", el.SelectAttrValue("location", "")); loc != "" {
				imports = append(imports, loc)
			}
		}
	})

	for _, ref := range imports {
		abs, err := resolve(location, ref)
		if err != nil {
			return err
		}
		if err := d.load(ctx, client, abs, seen, false); err != nil {
			return err
		}
	}
	return nil
}

func fetchDocument(ctx context.Context, client *http.Client, location string) (*etree.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptionSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp, body)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("malformed service description %s: %w", location, err)
	}
	return doc, nil
}

func (d *description) parseSchema(el *etree.Element) {
	for _, child := range el.ChildElements() {
		name := child.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		switch child.Tag {
		case "element":
			_, d.elements[name] = parseElement(child, false)
		case "complexType":
			d.types[name] = parseComplexType(child)
		}
	}
}

func parseElement(el *etree.Element, repeated bool) (string, *elementDecl) {
	decl := &elementDecl{
		repeated: repeated || repeatable(el.SelectAttrValue("maxOccurs", "1")),
		typeName: localName(el.SelectAttrValue("type", "")),
	}
	name := el.SelectAttrValue("name", "")
	if ref := el.SelectAttrValue("ref", ""); ref != "" {
		decl.ref = localName(ref)
		name = decl.ref
	}
	if ct := el.SelectElement("complexType"); ct != nil {
		decl.inline = parseComplexType(ct)
	}
	return name, decl
}

func parseComplexType(el *etree.Element) *complexType {
	ct := &complexType{elements: map[string]*elementDecl{}}
	collectElements(el, ct, false)
	return ct
}

// collectElements gathers the element declarations of a content model.
// Elements inside a repeatable group repeat.
func collectElements(el *etree.Element, ct *complexType, repeated bool) {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "element":
			if name, decl := parseElement(child, repeated); name != "" {
				ct.elements[name] = decl
			}
		case "sequence", "choice", "all":
			collectElements(child, ct, repeated || repeatable(child.SelectAttrValue("maxOccurs", "1")))
		case "complexContent":
			collectElements(child, ct, repeated)
		case "extension", "restriction":
			ct.base = localName(child.SelectAttrValue("base", ""))
			collectElements(child, ct, repeated)
		}
	}
}

// typeOf returns the complex type of an element, or nil when it is simple
// or undeclared.
func (d *description) typeOf(decl *elementDecl) *complexType {
	if decl == nil {
		return nil
	}
	if decl.ref != "" {
		if decl = d.elements[decl.ref]; decl == nil {
			return nil
		}
	}
	if decl.inline != nil {
		return decl.inline
	}
	return d.types[decl.typeName]
}

// child looks up the declaration of a child element of ct, following base
// types.
func (d *description) child(ct *complexType, name string) *elementDecl {
	for depth := 0; ct != nil && depth < 32; depth++ {
		if decl, ok := ct.elements[name]; ok {
			return decl
		}
		ct = d.types[ct.base]
	}
	return nil
}

func localName(qname string) string {
	if i := strings.LastIndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing schema location %s: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

func repeatable(maxOccurs string) bool {
	if strings.EqualFold(maxOccurs, "unbounded") {
		return true
	}
	n, err := strconv.Atoi(maxOccurs)
	return err == nil && n > 1
}

func parentTag(el *etree.Element) string {
	if p := el.Parent(); p != nil {
		return p.Tag
	}
	return ""
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, child := range el.ChildElements() {
		walk(child, fn)
	}
}
