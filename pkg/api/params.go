package api

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	paramAPIKey    = "apikey"
	paramTimestamp = "ts"
)

// queryParam is implemented by enum-like values that have a fixed wire
// representation distinct from their name.
type queryParam interface {
	QueryParam() string
}

// params collects request parameters. Nil values and empty strings are
// dropped so they are never sent as empty arguments.
type params map[string]string

func (p params) add(key string, value any) params {
	if s, ok := paramString(value); ok && s != "" {
		p[key] = s
	}
	return p
}

func (p params) values() url.Values {
	v := make(url.Values, len(p))
	for k, s := range p {
		v.Set(k, s)
	}
	return v
}

func (p params) clone() params {
	c := make(params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

func paramString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	case queryParam:
		return v.QueryParam(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case *float64:
		if v == nil {
			return "", false
		}
		return strconv.FormatFloat(*v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
