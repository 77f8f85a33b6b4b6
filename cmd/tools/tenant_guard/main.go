package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// tenantGuard scans sqlc-style query files and ensures every SELECT/UPDATE/DELETE
// statement filters by tenant_id. A statement whose block contains a
// "tenant_guard:ignore" comment is exempt.
// Exit code 0 = ok, 1 = violation, 2 = other error.
func main() {
	root := flag.String("root", "internal/db/queries", "directory holding .sql query files")
	flag.Parse()

	deny, err := scan(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tenant_guard error: %v\n", err)
		os.Exit(2)
	}
	if len(deny) > 0 {
		for _, v := range deny {
			fmt.Fprintf(os.Stderr, "VIOLATION: %s\n", v)
		}
		os.Exit(1)
	}
	fmt.Println("tenant_guard: OK")
}

var (
	reName   = regexp.MustCompile(`(?i)^\s*--\s*name:\s*(\w+)`)
	reStmt   = regexp.MustCompile(`(?i)^\s*(select|update|delete)\b`)
	reTenant = regexp.MustCompile(`(?i)tenant_id\s*=\s*(\$[0-9]+|@?[a-z_]+)`)
	reIgnore = regexp.MustCompile(`(?i)tenant_guard:ignore`)
)

func scan(dir string) ([]string, error) {
	var violations []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		bad, err := check(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, name := range bad {
			violations = append(violations, path+": "+name)
		}
		return nil
	})
	return violations, err
}

type block struct {
	name     string
	started  bool
	stmt     bool
	tenant   bool
	ignored  bool
	lastLine int
}

func (b block) violates() bool {
	return b.stmt && !b.tenant && !b.ignored
}

// check returns the names of the query blocks in r that violate the rule.
// Unnamed leading statements are reported as "line N".
func check(r io.Reader) ([]string, error) {
	var (
		bad  []string
		cur  block
		line int
	)
	flush := func() {
		if cur.violates() {
			name := cur.name
			if name == "" {
				name = fmt.Sprintf("line %d", cur.lastLine)
			}
			bad = append(bad, name)
		}
	}
	s := bufio.NewScanner(r)
	for s.Scan() {
		line++
		text := s.Text()
		if m := reName.FindStringSubmatch(text); m != nil {
			flush()
			cur = block{name: m[1]}
		}
		if reIgnore.MatchString(text) {
			cur.ignored = true
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		// Only the leading verb classifies a block, so INSERT ... SELECT is not a read.
		if !cur.started {
			cur.started = true
			cur.stmt = reStmt.MatchString(text)
			cur.lastLine = line
		}
		if reTenant.MatchString(text) {
			cur.tenant = true
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	flush()
	return bad, nil
}
