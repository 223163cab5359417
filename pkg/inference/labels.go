package inference

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Labels maps class indices to names.
type Labels []string

// LoadLabels reads one label per line. Line i names class i.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	labels, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}
	return labels, nil
}

// ReadLabels reads one label per line from r. Trailing blank lines are dropped.
func ReadLabels(r io.Reader) (Labels, error) {
	var labels Labels
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	return labels, nil
}

// Name returns the label for class i, or "class <i>" when it is unknown.
func (l Labels) Name(i int) string {
	if i >= 0 && i < len(l) && l[i] != "" {
		return l[i]
	}
	return fmt.Sprintf("class %d", i)
}
