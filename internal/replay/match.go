package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Match identifies one replay: a world map, the two colony automata and the
// random seed. It is carried as URL-encoded JSON in the viewer's address
// fragment.
type Match struct {
	World string `json:"world"`
	Red   string `json:"red"`
	Black string `json:"black"`
	Seed  int64  `json:"seed"`
}

// ErrBadFragment is returned when an address carries no usable match.
var ErrBadFragment = errors.New("replay: missing or malformed match fragment")

// ParseFragment extracts a Match from a full address
// ("http://host/vis/index.html#%7B...%7D"), a bare "#..." fragment, or the
// fragment text itself.
func ParseFragment(s string) (Match, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return Match{}, ErrBadFragment
	}
	raw, err := url.PathUnescape(s)
	if err != nil {
		return Match{}, fmt.Errorf("%w: %v", ErrBadFragment, err)
	}
	return ParseMatch(raw)
}

// ParseMatch decodes the JSON match descriptor used in query parameters.
func ParseMatch(raw string) (Match, error) {
	var m Match
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Match{}, fmt.Errorf("%w: %v", ErrBadFragment, err)
	}
	if m.World == "" || m.Red == "" || m.Black == "" {
		return Match{}, fmt.Errorf("%w: world, red and black are required", ErrBadFragment)
	}
	return m, nil
}

// JSON returns the compact JSON descriptor.
func (m Match) JSON() string {
	b, _ := json.Marshal(m)
	return string(b)
}

// Fragment returns the URL-encoded descriptor suitable for an address
// fragment.
func (m Match) Fragment() string {
	return url.PathEscape(m.JSON())
}

// Address returns the viewer address for this match on the given server.
func (m Match) Address(server string) string {
	return strings.TrimRight(server, "/") + "/vis/index.html#" + m.Fragment()
}

// Key is a stable identifier used to index stored replays.
func (m Match) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d", m.World, m.Red, m.Black, m.Seed)
}

func (m Match) String() string {
	return fmt.Sprintf("%s: %s vs %s (seed %d)", m.World, m.Red, m.Black, m.Seed)
}
