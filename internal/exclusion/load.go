package exclusion

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MikeSquared-Agency/tempo/internal/chat"
)

// ParameterGetter fetches a named parameter value. *paramstore.Client satisfies it.
type ParameterGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// LoadFile reads identities from path: one or more per line, separated by commas,
// with '#' starting a comment.
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("open exclusion file: %w", err)
	}
	defer f.Close()

	ids, err := parseLines(f)
	if err != nil {
		return Set{}, fmt.Errorf("read exclusion file %s: %w", path, err)
	}
	return New(ids...), nil
}

// LoadParameter reads identities from a parameter store value. The value is
// either a JSON array of strings/numbers or plain text in the LoadFile format.
func LoadParameter(ctx context.Context, getter ParameterGetter, name string) (Set, error) {
	value, err := getter.GetParameter(ctx, name)
	if err != nil {
		return Set{}, fmt.Errorf("load exclusion parameter: %w", err)
	}
	return Parse(value)
}

// Parse decodes an exclusion list from a JSON array or line/comma separated text.
func Parse(value string) (Set, error) {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "[") {
		var raw []any
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return Set{}, fmt.Errorf("parse exclusion list: %w", err)
		}
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			ids = append(ids, chat.IdentityString(v))
		}
		return New(ids...), nil
	}
	ids, err := parseLines(strings.NewReader(value))
	if err != nil {
		return Set{}, fmt.Errorf("parse exclusion list: %w", err)
	}
	return New(ids...), nil
}

func parseLines(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, part := range strings.Split(line, ",") {
			part = strings.Trim(strings.TrimSpace(part), `'"`)
			if part != "" {
				ids = append(ids, part)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
