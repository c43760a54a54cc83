package exclude

import (
	"bufio"
	"fmt"
	"os"
)

// ParseFile reads pattern lines from path and compiles them.
func ParseFile(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exclude file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read exclude file %s: %w", path, err)
	}

	m, err := Compile(lines)
	if err != nil {
		return nil, fmt.Errorf("exclude file %s: %w", path, err)
	}
	return m, nil
}
