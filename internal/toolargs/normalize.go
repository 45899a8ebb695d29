package toolargs

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xiaot623/librarydesk/internal/domain"
)

var (
	validate = newValidator()

	qtyPattern   = regexp.MustCompile(`(?i)(?:qty|quantity)[^0-9-]*(-?[0-9]+)`)
	isbnPattern  = regexp.MustCompile(`^[0-9][0-9\- ]{8,}[0-9Xx]$`)
	termSplitter = regexp.MustCompile(`\s*,\s*|\s+and\s+`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SplitTerms splits a search query on commas and on a lowercase " and ".
func SplitTerms(q string) []string {
	var terms []string
	for _, t := range termSplitter.Split(q, -1) {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// Normalizer converts raw tool arguments into typed records.
type Normalizer struct {
	defaults Defaults
}

// NewNormalizer creates a normalizer using the given defaults policy.
func NewNormalizer(defaults Defaults) *Normalizer {
	return &Normalizer{defaults: defaults}
}

// call carries the raw payload through the per-tool normalizers.
type call struct {
	tool domain.ToolName
	raw  string
}

func (c *call) fail(field, format string, args ...interface{}) *Error {
	return &Error{Tool: c.tool, Field: field, Raw: c.raw, Reason: fmt.Sprintf(format, args...)}
}

// Normalize returns the typed arguments for tool, or an *Error. It never
// touches the store and never returns a partially filled record.
func (n *Normalizer) Normalize(tool domain.ToolName, raw json.RawMessage) (Args, error) {
	c := &call{tool: tool, raw: strings.TrimSpace(string(raw))}
	v := decodeRaw(c.raw)

	var args Args
	var err *Error
	switch tool {
	case domain.ToolFindBooks:
		args, err = n.findBooks(c, v)
	case domain.ToolCreateOrder:
		args, err = n.createOrder(c, v)
	case domain.ToolRestockBook:
		args, err = n.restockBook(c, v)
	case domain.ToolUpdatePrice:
		args, err = n.updatePrice(c, v)
	case domain.ToolOrderStatus:
		args, err = n.orderStatus(c, v)
	case domain.ToolInventorySummary:
		args, err = n.inventorySummary(c, v)
	default:
		return nil, c.fail("", "unknown tool")
	}
	if err != nil {
		return nil, err
	}
	if err := c.check(args); err != nil {
		return nil, err
	}
	return args, nil
}

// NormalizeCall normalizes a call suggested by the model.
func (n *Normalizer) NormalizeCall(rc RawCall) (Args, error) {
	return n.Normalize(rc.Tool, rc.Args)
}

func (c *call) check(args Args) *Error {
	err := validate.Struct(args)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return c.fail(fe.Field(), "%s", describe(fe))
	}
	return c.fail("", "%v", err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + strings.ToLower(fe.Param()) + " is empty"
	case "gt":
		return fmt.Sprintf("must be greater than %s (got %v)", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s (got %v)", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s] (got %v)", fe.Param(), fe.Value())
	default:
		return fe.Error()
	}
}

// decodeRaw turns the raw payload into a generic value. Strings that hold a
// document are decoded again; anything else stays a scalar.
func decodeRaw(text string) interface{} {
	if text == "" || text == "null" {
		return nil
	}
	v, err := decodeStrict([]byte(text))
	if err != nil {
		parsed, ok := parseLoose(text)
		if !ok {
			return text
		}
		v = parsed
	}
	v = resolve(v)
	if obj, ok := v.(map[string]interface{}); ok {
		return flatten(obj)
	}
	return v
}

// resolve decodes string values that hold a JSON or pseudo-JSON document.
func resolve(v interface{}) interface{} {
	for depth := 0; depth < 3; depth++ {
		s, ok := v.(string)
		if !ok {
			return v
		}
		parsed, ok := parseLoose(s)
		if !ok {
			return s
		}
		if ps, isStr := parsed.(string); isStr && ps == strings.TrimSpace(s) {
			return ps
		}
		v = parsed
	}
	return v
}

// flatten unwraps an "args" envelope and merges fields whose string value is
// itself an object literal, e.g. {"isbn": "{isbn: '1', qty: 2}"}.
func flatten(obj map[string]interface{}) map[string]interface{} {
	if len(obj) == 1 {
		if inner, _, ok := lookup(obj, "args", "arguments", "parameters"); ok {
			if m, ok := resolve(inner).(map[string]interface{}); ok {
				obj = m
			}
		}
	}

	embedded := map[string]map[string]interface{}{}
	for k, v := range obj {
		s, ok := v.(string)
		if !ok || !strings.HasPrefix(strings.TrimSpace(s), "{") {
			continue
		}
		if m, ok := resolve(s).(map[string]interface{}); ok {
			embedded[k] = m
		}
	}
	if len(embedded) == 0 {
		return obj
	}
	out := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		if _, ok := embedded[k]; !ok {
			out[k] = v
		}
	}
	for _, m := range embedded {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func (n *Normalizer) findBooks(c *call, v interface{}) (Args, *Error) {
	args := &FindBooksArgs{}
	obj, ok := v.(map[string]interface{})
	if !ok {
		if list, isList := v.([]interface{}); isList {
			args.Query = joinTerms(list)
		} else if q, isText := toText(v); isText {
			args.Query = q
		}
		if args.Query == "" {
			return nil, c.fail("q", "a search query is required")
		}
		return args, nil
	}

	if val, _, found := lookup(obj, "q", "query", "query_text", "search", "term", "terms"); found {
		if list, isList := val.([]interface{}); isList {
			args.Query = joinTerms(list)
		} else if q, isText := toText(val); isText {
			args.Query = q
		} else {
			return nil, c.fail("q", "expected text, got %T", val)
		}
	} else if val, key, found := lookup(obj, "title", "author"); found {
		q, _ := toText(val)
		args.Query = q
		args.By = domain.SearchField(key)
	}

	if val, _, found := lookup(obj, "by", "field", "search_by"); found {
		by, _ := toText(val)
		switch strings.ToLower(by) {
		case "", "any", "both", "all":
			args.By = domain.SearchAny
		case "title", "name":
			args.By = domain.SearchTitle
		case "author", "writer":
			args.By = domain.SearchAuthor
		default:
			return nil, c.fail("by", "must be title or author (got %q)", by)
		}
	}
	return args, nil
}

func joinTerms(list []interface{}) string {
	terms := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := toText(item); ok && s != "" {
			terms = append(terms, s)
		}
	}
	return strings.Join(terms, ", ")
}

func (n *Normalizer) createOrder(c *call, v interface{}) (Args, *Error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, c.fail("customer_id", "expected an object with customer_id and items")
	}

	args := &CreateOrderArgs{Items: []domain.OrderLine{}}
	val, _, found := lookup(obj, "customer_id", "customerid", "customer", "customer_no")
	if !found {
		return nil, c.fail("customer_id", "is required")
	}
	id, err := toInt(val)
	if err != nil {
		return nil, c.fail("customer_id", "%v", err)
	}
	args.CustomerID = id

	items, _, found := lookup(obj, "items", "books", "lines", "order_items")
	if !found {
		// A single flat line: {customer_id, isbn|title, qty}.
		if _, _, flat := lookup(obj, "isbn", "title", "book"); !flat {
			return nil, c.fail("items", "no order lines given")
		}
		items = []interface{}{obj}
	}

	var list []interface{}
	switch it := resolve(items).(type) {
	case []interface{}:
		list = it
	case map[string]interface{}:
		list = []interface{}{it}
	case string:
		list = []interface{}{it}
	default:
		return nil, c.fail("items", "expected a list of order lines, got %T", items)
	}

	for i, item := range list {
		line, warning := n.orderLine(i+1, resolve(item))
		if warning != "" {
			args.Warnings = append(args.Warnings, warning)
			continue
		}
		args.Items = append(args.Items, line)
	}
	return args, nil
}

// orderLine normalizes one order line. Problems become warnings so the rest of
// the order can proceed.
func (n *Normalizer) orderLine(pos int, v interface{}) (domain.OrderLine, string) {
	line := domain.OrderLine{Qty: n.defaults.OrderQty}

	obj, ok := v.(map[string]interface{})
	if !ok {
		text, isText := toText(v)
		if !isText || text == "" {
			return line, fmt.Sprintf("Item %d is not a valid order line, skipped.", pos)
		}
		if isbnPattern.MatchString(text) {
			line.ISBN = text
		} else {
			line.Title = text
		}
		return line, ""
	}
	obj = flatten(obj)

	if val, _, found := lookup(obj, "isbn", "isbn13", "isbn_13"); found {
		line.ISBN, _ = toText(val)
	}
	if val, _, found := lookup(obj, "title", "book", "name"); found {
		line.Title, _ = toText(val)
	}
	if line.ISBN == "" && line.Title == "" {
		return line, fmt.Sprintf("Item %d is missing both 'title' and 'isbn', skipped.", pos)
	}

	if val, _, found := lookup(obj, "qty", "quantity", "count", "copies"); found {
		qty, err := toInt(val)
		if err != nil {
			return line, fmt.Sprintf("Item '%s' has an invalid quantity (%v), skipped.", line.Label(), err)
		}
		if qty <= 0 {
			return line, fmt.Sprintf("Item '%s' has a non-positive quantity (%d), skipped.", line.Label(), qty)
		}
		line.Qty = int(qty)
	}
	return line, ""
}

func (n *Normalizer) restockBook(c *call, v interface{}) (Args, *Error) {
	args := &RestockBookArgs{Qty: n.defaults.RestockQty}

	if obj, ok := v.(map[string]interface{}); ok {
		val, _, found := lookup(obj, "isbn", "isbn13", "isbn_13")
		if !found {
			return nil, c.fail("isbn", "is required")
		}
		args.ISBN, _ = toText(val)
		// A missing or null qty keeps the default.
		if qtyVal, _, found := lookup(obj, "qty", "quantity", "count", "copies", "amount"); found {
			qty, err := toInt(qtyVal)
			if err != nil {
				return nil, c.fail("qty", "%v", err)
			}
			args.Qty = int(qty)
		}
		return args, nil
	}

	text, ok := toText(v)
	if !ok || text == "" {
		return nil, c.fail("isbn", "is required")
	}
	args.ISBN = strings.Fields(text)[0]
	// Free text such as "978-0132350884 qty 5" carries the quantity inline.
	if m := qtyPattern.FindStringSubmatch(text); m != nil {
		qty, err := parseIntText(m[1])
		if err != nil {
			return nil, c.fail("qty", "%v", err)
		}
		args.Qty = int(qty)
	}
	return args, nil
}

func (n *Normalizer) updatePrice(c *call, v interface{}) (Args, *Error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, c.fail("price", "expected an object with isbn and price")
	}
	args := &UpdatePriceArgs{}
	val, _, found := lookup(obj, "isbn", "isbn13", "isbn_13")
	if !found {
		return nil, c.fail("isbn", "is required")
	}
	args.ISBN, _ = toText(val)

	// Older prompts sent the new price as qty.
	val, _, found = lookup(obj, "price", "new_price", "amount", "cost", "qty")
	if !found {
		return nil, c.fail("price", "is required")
	}
	price, err := toFloat(val)
	if err != nil {
		return nil, c.fail("price", "%v", err)
	}
	args.Price = price
	return args, nil
}

func (n *Normalizer) orderStatus(c *call, v interface{}) (Args, *Error) {
	val := v
	if obj, ok := v.(map[string]interface{}); ok {
		var found bool
		val, _, found = lookup(obj, "order_id", "orderid", "id", "order", "order_number")
		if !found {
			return nil, c.fail("order_id", "is required")
		}
	}
	id, err := toInt(val)
	if err != nil {
		return nil, c.fail("order_id", "%v", err)
	}
	return &OrderStatusArgs{OrderID: id}, nil
}

// inventorySummary never fails: a missing, unparseable or negative threshold
// falls back to the default.
func (n *Normalizer) inventorySummary(c *call, v interface{}) (Args, *Error) {
	args := &InventorySummaryArgs{Threshold: n.defaults.LowStockThreshold}
	val := v
	if obj, ok := v.(map[string]interface{}); ok {
		val, _, _ = lookup(obj, "threshold", "limit", "min_stock", "stock_threshold", "below")
	}
	if val == nil {
		return args, nil
	}
	if t, err := toInt(val); err == nil && t >= 0 {
		args.Threshold = int(t)
	}
	return args, nil
}
