package attribute

import (
	"fmt"
	"strconv"
	"strings"
)

// Options holds the dropdown/multiselect choices of one attribute together
// with the bitmask each choice carries
type Options struct {
	Labels   []string
	Bitmasks []int
	config   map[string]int
}

// ParseOptions splits the comma-joined option labels and bitmasks delivered by
// the backend and zips them into a value->bitmask lookup.
// A source that is not a string is treated as an empty list. Labels without a
// matching bitmask get 0; surplus bitmasks are dropped.
func ParseOptions(labels, bitmasks interface{}) Options {
	labelList := splitList(labels)
	maskList := splitList(bitmasks)

	opts := Options{
		Labels:   labelList,
		Bitmasks: make([]int, len(labelList)),
		config:   make(map[string]int, len(labelList)),
	}

	for i, label := range labelList {
		mask := 0
		if i < len(maskList) {
			if n, err := strconv.Atoi(strings.TrimSpace(maskList[i])); err == nil {
				mask = n
			}
		}
		opts.Bitmasks[i] = mask
		opts.config[label] = mask
	}

	return opts
}

// Bitmask returns the bitmask for the given option value, 0 if the value is not an option
func (o Options) Bitmask(value string) int {
	return o.config[value]
}

// Contains reports whether label is one of the options, compared exactly
func (o Options) Contains(label string) bool {
	_, ok := o.config[label]
	return ok
}

// Check rejects a dropdown or multiselect value that is not built from the
// option labels. The empty value clears the selection and is always accepted.
// Other types are not checked.
func (o Options) Check(t Type, value string) error {
	if value == "" {
		return nil
	}
	switch t {
	case TypeDropdown:
		if !o.Contains(value) {
			return fmt.Errorf("%w: %q is not an option", ErrInvalidValue, value)
		}
	case TypeMultiselect:
		for _, part := range strings.Split(value, ",") {
			if !o.Contains(part) {
				return fmt.Errorf("%w: %q is not an option", ErrInvalidValue, part)
			}
		}
	}
	return nil
}

// Len returns the number of options
func (o Options) Len() int {
	return len(o.Labels)
}

func splitList(src interface{}) []string {
	s, ok := src.(string)
	if !ok || s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
