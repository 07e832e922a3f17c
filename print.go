package dynafix

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/syssam/dynafix/schema"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	MaxDepth:                2,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Print writes the field values of an entity, one field per line. Related
// entities are written by model and key.
//
//	Book(id=1)
//	  title: "Book 1"
//	  author: Author[1]
func Print(w io.Writer, e *schema.Entity) error {
	var sb strings.Builder
	m := e.Model()
	fmt.Fprintf(&sb, "%s(%s=%v)\n", m.Name(), m.Key().Name, e.ID())
	for _, f := range m.Fields() {
		fmt.Fprintf(&sb, "  %s: %s\n", f.Name, dumpValue(e.Get(f.Name)))
	}
	for _, f := range m.ManyToMany() {
		related := e.Related(f.Name)
		ids := make([]string, len(related))
		for i, r := range related {
			ids[i] = fmt.Sprint(r.ID())
		}
		fmt.Fprintf(&sb, "  %s: [%s]\n", f.Name, strings.Join(ids, ", "))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func dumpValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case *schema.Entity:
		return fmt.Sprintf("%s[%v]", v.Model().Name(), v.ID())
	case *schema.File:
		return fmt.Sprintf("file(%s)", v.Name)
	case string:
		return fmt.Sprintf("%q", v)
	case fmt.Stringer:
		return v.String()
	default:
		return strings.TrimSpace(dumper.Sprintf("%v", v))
	}
}
