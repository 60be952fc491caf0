// Package dut holds the concrete designs dutkit can exercise.
package dut

import (
	"fmt"
	"sort"

	"github.com/roach88/dutkit/internal/entity"
)

var designs = map[string]func() entity.Design{
	"inverter": func() entity.Design { return Inverter{} },
	"register": func() entity.Design { return Register{Width: DefaultRegisterWidth} },
}

// Lookup returns the design registered under name.
func Lookup(name string) (entity.Design, error) {
	mk, ok := designs[name]
	if !ok {
		return nil, fmt.Errorf("unknown design %q (known: %v)", name, Names())
	}
	return mk(), nil
}

// Names returns the registered design names, sorted.
func Names() []string {
	names := make([]string, 0, len(designs))
	for n := range designs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
