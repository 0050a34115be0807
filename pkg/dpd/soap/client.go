package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const (
	envelopeNS      = "http://schemas.xmlsoap.org/soap/envelope/"
	maxResponseSize = 32 << 20
)

// Options configure Dial.
type Options struct {
	// HTTPClient is used for the handshake and every call.
	// Defaults to a client with no timeout; per-call limits come from ctx.
	HTTPClient *http.Client
	// Timeout bounds the handshake. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Conn is a connection to one SOAP service.
type Conn struct {
	desc   *description
	client *http.Client
}

// Dial fetches the WSDL at wsdlURL, along with the schemas it imports, and
// returns a Conn able to call the operations it declares.
func Dial(ctx context.Context, wsdlURL string, opts Options) (*Conn, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	desc, err := fetchDescription(ctx, client, wsdlURL)
	if err != nil {
		return nil, err
	}
	return &Conn{desc: desc, client: client}, nil
}

// Address returns the service address calls are posted to.
func (c *Conn) Address() string {
	return c.desc.address
}

// HasProcedure reports whether the service declares the operation.
func (c *Conn) HasProcedure(name string) bool {
	return c.desc.operations[name]
}

// Procedures returns the declared operations in alphabetical order.
func (c *Conn) Procedures() []string {
	names := make([]string, 0, len(c.desc.operations))
	for name := range c.desc.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes operation with args and returns the decoded response
// element: a map keyed by child element name. Leaves are strings; elements
// whose enclosing type declares them repeatable are always []any.
func (c *Conn) Call(ctx context.Context, operation string, args map[string]any) (any, error) {
	envelope, err := c.envelope(operation, args)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.desc.address, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	doc := etree.NewDocument()
	parseErr := doc.ReadFromBytes(body)
	if parseErr == nil {
		if fault := findFault(doc); fault != nil {
			fault.StatusCode = resp.StatusCode
			return nil, fault
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp, body)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("malformed response: %w", parseErr)
	}

	bodyEl := findBody(doc)
	if bodyEl == nil {
		return nil, fmt.Errorf("response has no SOAP body")
	}
	children := bodyEl.ChildElements()
	if len(children) == 0 {
		return map[string]any{}, nil
	}
	root := children[0]
	return c.decode(root, c.desc.typeOf(c.desc.elements[root.Tag])), nil
}

func (c *Conn) envelope(operation string, args map[string]any) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", envelopeNS)
	env.CreateAttr("xmlns:ns", c.desc.namespace)
	env.CreateElement("soapenv:Header")
	req := env.CreateElement("soapenv:Body").CreateElement("ns:" + operation)
	if err := encode(req, args); err != nil {
		return nil, fmt.Errorf("encoding %s arguments: %w", operation, err)
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// encode writes v as the content of el. Map keys become child elements in
// sorted order and slices become repeated elements.
func encode(el *etree.Element, v any) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("element %s: map keys must be strings", el.Tag)
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		for _, k := range keys {
			val := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
			if err := encodeField(el, k, val); err != nil {
				return err
			}
		}
		return nil
	case reflect.String:
		el.SetText(rv.String())
	case reflect.Bool:
		el.SetText(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		el.SetText(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		el.SetText(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		el.SetText(strconv.FormatFloat(rv.Float(), 'f', -1, 64))
	default:
		return fmt.Errorf("element %s: unsupported value of type %T", el.Tag, v)
	}
	return nil
}

func encodeField(parent *etree.Element, key string, v any) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if err := encode(parent.CreateElement(key), rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}
	return encode(parent.CreateElement(key), v)
}

// decode converts el into a tree. Child elements declared repeatable in ct
// are always []any; undeclared children become []any only when they occur
// more than once.
func (c *Conn) decode(el *etree.Element, ct *complexType) any {
	children := el.ChildElements()
	if len(children) == 0 {
		if strings.EqualFold(nilAttr(el), "true") {
			return nil
		}
		return el.Text()
	}
	out := make(map[string]any, len(children))
	for _, child := range children {
		decl := c.desc.child(ct, child.Tag)
		val := c.decode(child, c.desc.typeOf(decl))
		existing, seen := out[child.Tag]
		switch {
		case decl != nil && decl.repeated && !seen:
			out[child.Tag] = []any{val}
		case seen:
			list, ok := existing.([]any)
			if !ok {
				list = []any{existing}
			}
			out[child.Tag] = append(list, val)
		default:
			out[child.Tag] = val
		}
	}
	return out
}

func nilAttr(el *etree.Element) string {
	for _, a := range el.Attr {
		if a.Key == "nil" {
			return a.Value
		}
	}
	return ""
}

func findBody(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil
	}
	for _, child := range root.ChildElements() {
		if child.Tag == "Body" {
			return child
		}
	}
	return nil
}

func findFault(doc *etree.Document) *Fault {
	body := findBody(doc)
	if body == nil {
		return nil
	}
	for _, child := range body.ChildElements() {
		if child.Tag != "Fault" {
			continue
		}
		f := &Fault{}
		for _, part := range child.ChildElements() {
			switch part.Tag {
			case "faultcode":
				f.Code = strings.TrimSpace(part.Text())
			case "faultstring":
				f.String = strings.TrimSpace(part.Text())
			case "faultactor":
				f.Actor = strings.TrimSpace(part.Text())
			case "detail":
				f.Detail = detailText(part)
			}
		}
		return f
	}
	return nil
}

func detailText(el *etree.Element) string {
	var parts []string
	for _, d := range el.ChildElements() {
		doc := etree.NewDocument()
		doc.SetRoot(d.Copy())
		if s, err := doc.WriteToString(); err == nil {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(el.Text())
	}
	return strings.Join(parts, "")
}
