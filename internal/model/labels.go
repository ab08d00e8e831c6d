package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

var ErrUnknownClass = errors.New("class index has no label")

// LoadLabelMap reads a JSON object of "index": "name" pairs.
func LoadLabelMap(path string) (LabelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label map: %w", err)
	}
	labels, err := ParseLabelMap(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label map %s: %w", path, err)
	}
	return labels, nil
}

func ParseLabelMap(data []byte) (LabelMap, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("label map is empty")
	}

	labels := make(LabelMap, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("key %q is not an integer", k)
		}
		if idx < 0 {
			return nil, fmt.Errorf("key %q is negative", k)
		}
		if _, dup := labels[idx]; dup {
			return nil, fmt.Errorf("key %q duplicates index %d", k, idx)
		}
		labels[idx] = v
	}
	return labels, nil
}

// Lookup fails with ErrUnknownClass instead of inventing a label.
func (m LabelMap) Lookup(idx int) (string, error) {
	name, ok := m[idx]
	if !ok {
		return "", fmt.Errorf("index %d: %w", idx, ErrUnknownClass)
	}
	return name, nil
}

// Missing lists the indices in [0, classes) without a label.
func (m LabelMap) Missing(classes int) []int {
	var missing []int
	for i := 0; i < classes; i++ {
		if _, ok := m[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Names returns the labels ordered by index.
func (m LabelMap) Names() []string {
	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	names := make([]string, len(idx))
	for i, k := range idx {
		names[i] = m[k]
	}
	return names
}
