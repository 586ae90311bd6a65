// Package pathtpl compiles path templates with named placeholders into a glob
// pattern for filesystem discovery and a regular expression for extracting
// placeholder values back out of the matched paths.
//
// A template such as
//
//	C:/Program Files/Blender Foundation/Blender {version}/blender.exe
//
// globs as "C:/Program Files/Blender Foundation/Blender */blender.exe" and
// matches with a regexp whose "version" group uses the fragment supplied in
// the template lookup table.
package pathtpl

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
)

// fallbackFragment is used for placeholders missing from the lookup table
const fallbackFragment = `[^/]*`

var placeholderRegex = regexp.MustCompile(`\{(\w+)\}`)

// Template is a path pattern with named placeholders and the regex
// fragments used to match each of them.
type Template struct {
	Pattern string
	Lookup  map[string]string
}

// Compiled is the glob and regexp form of a Template
type Compiled struct {
	Template     Template
	Glob         string
	Placeholders []string
	// Missing lists placeholders that had no lookup fragment and were
	// compiled with a permissive fallback.
	Missing []string

	full   *regexp.Regexp
	prefix *regexp.Regexp
}

// Placeholders returns the placeholder names that appear in pattern, in order
// of first appearance.
func Placeholders(pattern string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRegex.FindAllStringSubmatch(pattern, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Compile builds the glob pattern and regular expressions for t
func (t Template) Compile() (*Compiled, error) {
	c := &Compiled{Template: t}

	var glob, expr strings.Builder
	used := make(map[string]bool)
	last := 0
	for _, loc := range placeholderRegex.FindAllStringSubmatchIndex(t.Pattern, -1) {
		literal := t.Pattern[last:loc[0]]
		name := t.Pattern[loc[2]:loc[3]]
		last = loc[1]

		glob.WriteString(escapeGlob(literal))
		glob.WriteString("*")
		expr.WriteString(regexp.QuoteMeta(literal))

		fragment, ok := t.Lookup[name]
		if !ok {
			fragment = fallbackFragment
			if !used[name] {
				c.Missing = append(c.Missing, name)
			}
		}

		if used[name] {
			// RE2 has no backreferences; repeated placeholders only need to match
			expr.WriteString("(?:" + fragment + ")")
			continue
		}
		used[name] = true
		c.Placeholders = append(c.Placeholders, name)
		expr.WriteString("(?P<" + name + ">" + fragment + ")")
	}
	tail := t.Pattern[last:]
	glob.WriteString(escapeGlob(tail))
	expr.WriteString(regexp.QuoteMeta(tail))

	full, err := regexp.Compile("^" + expr.String() + "$")
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", t.Pattern, err)
	}
	prefix, err := regexp.Compile("^" + expr.String() + "(?:/.*)?$")
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", t.Pattern, err)
	}

	c.Glob = glob.String()
	c.full = full
	c.prefix = prefix
	return c, nil
}

// MustCompile is like Compile but panics on error. For package-level tables.
func (t Template) MustCompile() *Compiled {
	c, err := t.Compile()
	if err != nil {
		panic(err)
	}
	return c
}

// Match extracts placeholder values from a path that must match the whole
// template. Paths are compared with forward slashes.
func (c *Compiled) Match(path string) (map[string]string, bool) {
	return extract(c.full, path)
}

// MatchPrefix is like Match but also accepts paths that continue below the
// template, e.g. files inside a matched directory.
func (c *Compiled) MatchPrefix(path string) (map[string]string, bool) {
	return extract(c.prefix, path)
}

// Depth is the number of path segments in the template
func (c *Compiled) Depth() int {
	return len(strings.Split(strings.Trim(c.Template.Pattern, "/"), "/"))
}

func extract(re *regexp.Regexp, path string) (map[string]string, bool) {
	m := re.FindStringSubmatch(toSlash(path))
	if m == nil {
		return nil, false
	}
	values := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(m) {
			values[name] = m[i]
		}
	}
	return values, true
}

// toSlash normalises Windows separators regardless of the running OS, so that
// templates written with forward slashes match paths produced by the glob.
func toSlash(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

func escapeGlob(s string) string {
	if runtime.GOOS == "windows" {
		// filepath.Match treats backslash as a separator on Windows
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
