// File: lixenwraith/profile/type.go
package profile

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// String returns the first relation value named by path, taking source
// priority into account.
func (p *Profile) String(path ...string) (string, error) {
	it, err := p.Iterator(path, RelationsOnly)
	if err != nil {
		return "", err
	}
	defer it.Close()

	e, ok, err := it.Next()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoRelation, strings.Join(path, "."))
	}
	return e.Value, nil
}

// StringDefault returns the first value named by path, or def when the path
// has no relation.
func (p *Profile) StringDefault(def string, path ...string) string {
	s, err := p.String(path...)
	if err != nil {
		return def
	}
	return s
}

// Bool parses the first value named by path. Accepted spellings are
// y, yes, true, t, 1, on and n, no, false, nil, 0, off, in any case.
func (p *Profile) Bool(path ...string) (bool, error) {
	s, err := p.String(path...)
	if err != nil {
		return false, err
	}
	b, err := parseBoolean(s)
	if err != nil {
		return false, fmt.Errorf("%s: %w", strings.Join(path, "."), err)
	}
	return b, nil
}

// Int64 parses the first value named by path. Base prefixes such as 0x are
// recognised.
func (p *Profile) Int64(path ...string) (int64, error) {
	s, err := p.String(path...)
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s = %q", ErrBadInteger, strings.Join(path, "."), s)
	}
	return i, nil
}

// Duration parses the first value named by path as a Go duration. A bare
// integer is taken as seconds.
func (p *Profile) Duration(path ...string) (time.Duration, error) {
	s, err := p.String(path...)
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to duration for path %s: %w", s, strings.Join(path, "."), err)
	}
	return d, nil
}
