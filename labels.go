package pointrend

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the class names of the segmentation model from the given
// text file, one label per line in class index order.  Blank lines are
// skipped.  When numClasses is greater than zero the number of labels must
// match it
func LoadLabels(file string, numClasses int) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if numClasses > 0 && len(labels) != numClasses {
		return nil, fmt.Errorf("%w: %s has %d labels, expected %d classes",
			ErrShapeMismatch, file, len(labels), numClasses)
	}

	return labels, nil
}
