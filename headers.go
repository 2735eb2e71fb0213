package ripext

import (
	"strings"
)

// HeaderTable ordered header name to value mapping.
// A name is stored exactly as received and a later value for the same
// name replaces the earlier one in place.
type HeaderTable struct {
	names  []string
	values map[string]string
}

// NewHeaderTable create an empty header table
func NewHeaderTable() *HeaderTable {
	return &HeaderTable{
		names:  make([]string, 0),
		values: make(map[string]string),
	}
}

// Replace stores value under name, overwriting any previous value
func (h *HeaderTable) Replace(name string, value string) {
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = value
}

// Get returns the value stored under name
func (h *HeaderTable) Get(name string) (string, bool) {
	value, ok := h.values[name]
	return value, ok
}

// Has reports whether name is present
func (h *HeaderTable) Has(name string) bool {
	_, ok := h.values[name]
	return ok
}

// Len number of distinct names
func (h *HeaderTable) Len() int {
	return len(h.names)
}

// Keys names in first insertion order
func (h *HeaderTable) Keys() []string {
	keys := make([]string, len(h.names))
	copy(keys, h.names)
	return keys
}

// Range calls f for each entry in insertion order until f returns false
func (h *HeaderTable) Range(f func(name string, value string) bool) {
	for _, name := range h.names {
		if !f(name, h.values[name]) {
			return
		}
	}
}

// Lines serializes the table as "Name: value" lines for a transport header list
func (h *HeaderTable) Lines() []string {
	lines := make([]string, 0, len(h.names))
	h.Range(func(name, value string) bool {
		lines = append(lines, name+": "+value)
		return true
	})
	return lines
}

// ToMap copy of the table as a plain map
func (h *HeaderTable) ToMap() map[string]string {
	m := make(map[string]string, len(h.values))
	for k, v := range h.values {
		m[k] = v
	}
	return m
}

// ParseHeaderLine splits one raw header line on its first colon.
// Exactly one leading space is trimmed from the value. Lines without a
// colon, without a name or with nothing after the colon are rejected.
func ParseHeaderLine(line string) (name string, value string, ok bool) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	idx := strings.IndexByte(line, ':')
	if idx <= 0 || idx == len(line)-1 {
		return "", "", false
	}
	name = line[:idx]
	value = strings.TrimPrefix(line[idx+1:], " ")
	return name, value, true
}

// ReceiveLine parses a raw header line into the table, malformed lines are ignored
func (h *HeaderTable) ReceiveLine(line string) bool {
	name, value, ok := ParseHeaderLine(line)
	if !ok {
		return false
	}
	h.Replace(name, value)
	return true
}
