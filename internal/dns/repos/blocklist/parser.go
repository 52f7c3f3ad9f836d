package blocklist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sentineldns/sentinel/internal/dns/common/log"
)

// ParseFile reads a plain-text blocklist from path. See ParseReader.
func ParseFile(path string, logger log.Logger) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rules, err := ParseReader(f, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseReader parses a newline-delimited blocklist:
//   - '#' starts a comment, whole-line or inline
//   - blank lines are skipped
//   - "*.name" declares a wildcard rule, anything else an exact rule
//   - duplicates are dropped, first occurrence wins
//
// A malformed entry fails the whole parse; a blocklist that loads is a
// blocklist that is fully in effect.
func ParseReader(r io.Reader, logger log.Logger) ([]Rule, error) {
	scanner := bufio.NewScanner(r)
	seen := make(map[string]struct{})
	out := make([]Rule, 0, 256)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		line = strings.TrimPrefix(line, "\uFEFF")
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		token := strings.TrimSpace(line)
		if token == "" {
			continue
		}

		rule, err := ParseRule(token)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		key := rule.Kind.String() + "|" + rule.Name
		if _, dup := seen[key]; dup {
			logger.Debug(map[string]any{"line": lineNum, "name": rule.Name}, "Skipping duplicate blocklist entry")
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	logger.Debug(map[string]any{"rules": len(out)}, "Parsed blocklist")
	return out, nil
}
