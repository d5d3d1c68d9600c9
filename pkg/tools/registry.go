// Package tools holds the closed catalogue of operations the model may
// request. Each declaration maps a tool name to a backend HTTP request
// shape plus an argument schema; dispatch is a table lookup, never
// reflection.
package tools

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desu777/GrandHotelAgent/pkg/gemini"
)

const (
	TypeString  = "string"
	TypeInteger = "integer"
)

// Value formats with extra validation on top of the base type.
const (
	FormatDate = "date" // YYYY-MM-DD
	FormatTime = "time" // HH:MM
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Param describes one argument of a tool.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	// InPath params substitute into the path template; everything else
	// is projected into the request body.
	InPath bool
	Format string
	// Minimum applies to integer params when non-nil.
	Minimum *int
}

// Declaration is one entry of the catalogue.
type Declaration struct {
	Name        string
	Description string
	Method      string
	// PathTemplate uses positional {name} substitution, e.g.
	// /api/v1/rooms/{id}.
	PathTemplate string
	Params       []Param
}

// Registry is the immutable tool table. Safe for unsynchronised reads.
type Registry struct {
	order  []string
	byName map[string]*Declaration
}

func NewRegistry(decls []Declaration) *Registry {
	r := &Registry{byName: make(map[string]*Declaration, len(decls))}
	for i := range decls {
		d := decls[i]
		r.order = append(r.order, d.Name)
		r.byName[d.Name] = &d
	}
	return r
}

// Get returns the declaration for name, or nil.
func (r *Registry) Get(name string) *Declaration {
	return r.byName[name]
}

// Declarations returns the catalogue in stable order.
func (r *Registry) Declarations() []*Declaration {
	out := make([]*Declaration, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// FunctionDeclarations projects the catalogue into the model's
// function-declaration schema.
func (r *Registry) FunctionDeclarations() []gemini.FunctionDeclaration {
	out := make([]gemini.FunctionDeclaration, 0, len(r.order))
	for _, d := range r.Declarations() {
		schema := &gemini.Schema{Type: "object", Properties: map[string]*gemini.Schema{}}
		for _, p := range d.Params {
			schema.Properties[p.Name] = &gemini.Schema{Type: p.Type, Description: p.Description}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		out = append(out, gemini.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return out
}

// ArgError lists schema violations for one invocation. It is returned
// to the model as a structured tool result, never thrown to the user.
type ArgError struct {
	Tool       string
	Violations []string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Violations, "; "))
}

// Validate checks args against the declaration's schema. A nil return
// means the invocation may be dispatched.
func (d *Declaration) Validate(args map[string]any) *ArgError {
	var violations []string

	for _, p := range d.Params {
		raw, ok := args[p.Name]
		if !ok {
			if p.Required {
				violations = append(violations, fmt.Sprintf("missing required argument %q", p.Name))
			}
			continue
		}

		switch p.Type {
		case TypeInteger:
			n, ok := asInt(raw)
			if !ok {
				violations = append(violations, fmt.Sprintf("argument %q must be an integer", p.Name))
				continue
			}
			if p.Minimum != nil && n < *p.Minimum {
				violations = append(violations, fmt.Sprintf("argument %q must be >= %d", p.Name, *p.Minimum))
			}
		case TypeString:
			s, ok := raw.(string)
			if !ok {
				violations = append(violations, fmt.Sprintf("argument %q must be a string", p.Name))
				continue
			}
			switch p.Format {
			case FormatDate:
				if !dateRe.MatchString(s) {
					violations = append(violations, fmt.Sprintf("argument %q must be a YYYY-MM-DD date", p.Name))
				}
			case FormatTime:
				if !timeRe.MatchString(s) {
					violations = append(violations, fmt.Sprintf("argument %q must be a HH:MM time", p.Name))
				}
			}
		}
	}

	known := make(map[string]struct{}, len(d.Params))
	for _, p := range d.Params {
		known[p.Name] = struct{}{}
	}
	for name := range args {
		if _, ok := known[name]; !ok {
			violations = append(violations, fmt.Sprintf("unknown argument %q", name))
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &ArgError{Tool: d.Name, Violations: violations}
}

// BuildRequest materialises the backend request for validated args:
// path params substitute into the template, the rest project into the
// body. A nil body means no request body at all.
func (d *Declaration) BuildRequest(args map[string]any) (method, path string, body map[string]any) {
	path = d.PathTemplate
	for _, p := range d.Params {
		raw, ok := args[p.Name]
		if !ok {
			continue
		}
		if p.InPath {
			path = strings.Replace(path, "{"+p.Name+"}", formatPathValue(raw), 1)
			continue
		}
		if body == nil {
			body = map[string]any{}
		}
		if p.Type == TypeInteger {
			if n, ok := asInt(raw); ok {
				body[p.Name] = n
				continue
			}
		}
		body[p.Name] = raw
	}
	return d.Method, path, body
}

// asInt accepts the integer encodings JSON decoding can produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func formatPathValue(v any) string {
	if n, ok := asInt(v); ok {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%v", v)
}
