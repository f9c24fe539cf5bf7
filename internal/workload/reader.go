package workload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/devrev/pairdb/tabletsim/internal/errors"
	"github.com/devrev/pairdb/tabletsim/internal/model"
)

// ReadMutations parses one "pk,ck" pair per line. Blank lines and lines
// starting with # are skipped.
func ReadMutations(r io.Reader) ([]model.Mutation, error) {
	var out []model.Mutation

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, ",")
		if len(fields) != 2 {
			return nil, errors.InvalidArgument(
				fmt.Sprintf("line %d: expected \"pk,ck\", got %q", line, text), nil).
				WithDetail("line", line)
		}

		pk, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, errors.InvalidArgument(fmt.Sprintf("line %d: bad partition key", line), err).
				WithDetail("line", line)
		}
		ck, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, errors.InvalidArgument(fmt.Sprintf("line %d: bad clustering key", line), err).
				WithDetail("line", line)
		}

		out = append(out, model.Mutation{PartitionKey: pk, ClusteringKey: ck})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mutations: %w", err)
	}
	return out, nil
}

// ReadMutationsFile reads mutations from the file at path
func ReadMutationsFile(path string) ([]model.Mutation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mutation file: %w", err)
	}
	defer f.Close()

	return ReadMutations(f)
}
