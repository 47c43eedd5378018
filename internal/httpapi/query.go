package httpapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
)

// queryParser collects every malformed query parameter into one
// ValidationError.
type queryParser struct {
	values url.Values
	fields []service.FieldError
}

func newQueryParser(v url.Values) *queryParser { return &queryParser{values: v} }

func (p *queryParser) fail(field, message string) {
	p.fields = append(p.fields, service.FieldError{Field: field, Message: message})
}

func (p *queryParser) str(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

func (p *queryParser) timestamp(name string) *time.Time {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		p.fail(name, "must be an RFC 3339 timestamp")
		return nil
	}
	t = t.UTC()
	return &t
}

func (p *queryParser) flag(name string) *bool {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(name, "must be true or false")
		return nil
	}
	return &b
}

func (p *queryParser) count(name string) int {
	raw := p.str(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		p.fail(name, "must be a non-negative integer")
		return 0
	}
	return n
}

func (p *queryParser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return &service.ValidationError{Fields: p.fields}
}
