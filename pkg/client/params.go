package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Version is the SDK version reported in the User-Agent header.
const Version = "0.4.0"

// Params is a set of query parameters. Nil values, nil pointers and empty
// strings are left out of the encoded query entirely, so an unset filter is
// never sent as "match the empty string".
type Params map[string]any

// Encode returns the query string in key order, without the leading "?".
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	v := url.Values{}
	for key, val := range p {
		if s, ok := formatParam(val); ok {
			v.Set(key, s)
		}
	}
	return v.Encode()
}

func formatParam(val any) (string, bool) {
	rv := reflect.ValueOf(val)
	if !rv.IsValid() {
		return "", false
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		s := rv.String()
		return s, s != ""
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	default:
		return fmt.Sprint(rv.Interface()), true
	}
}

// pageParams applies the listing defaults for limit and offset.
func pageParams(limit, offset, defaultLimit int) Params {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{"limit": limit, "offset": offset}
}

// route joins escaped segments onto prefix, returning ErrMissingArgument when
// any segment is empty.
func route(prefix string, segments ...segment) (string, error) {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		if s.value == "" {
			return "", missing(s.name)
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s.value))
	}
	return b.String(), nil
}

type segment struct {
	name  string
	value string
}

func seg(name, value string) segment { return segment{name: name, value: value} }

// lit is a fixed path segment.
func lit(s string) segment { return segment{name: s, value: s} }

// ListResponse is the uniform envelope for list calls, whatever field name
// the server used for the items.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// getList fetches a list endpoint and unwraps the items stored under field.
func getList[T any](ctx context.Context, c *Client, p string, field string, params Params) (*ListResponse[T], error) {
	var raw map[string]json.RawMessage
	if err := c.get(ctx, p, params, &raw); err != nil {
		return nil, err
	}

	out := &ListResponse[T]{Data: []T{}}
	if items, ok := raw[field]; ok && string(items) != "null" {
		if err := json.Unmarshal(items, &out.Data); err != nil {
			return nil, &Error{Kind: KindAPI, Message: "decode " + field + ": " + err.Error(), Body: ErrorBody{}, Err: err}
		}
	}
	if total, ok := raw["total"]; ok {
		if err := json.Unmarshal(total, &out.Total); err != nil {
			return nil, &Error{Kind: KindAPI, Message: "decode total: " + err.Error(), Body: ErrorBody{}, Err: err}
		}
	}
	return out, nil
}
