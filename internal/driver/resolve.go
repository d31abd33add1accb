package driver

import (
	"fmt"
	"strings"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/catalog"
)

// MatchKind names the record field an identifier matched
type MatchKind string

const (
	MatchPath  MatchKind = "path"
	MatchLabel MatchKind = "label"
	MatchUUID  MatchKind = "uuid"
	MatchName  MatchKind = "name"
)

// Match is a resolved identifier
type Match struct {
	Record catalog.DeviceRecord
	Kind   MatchKind
}

// matchRecord compares id against the record fields in precedence order
func matchRecord(rec catalog.DeviceRecord, id string) (MatchKind, bool) {
	switch {
	case rec.Path == id:
		return MatchPath, true
	case rec.Label != nil && *rec.Label == id:
		return MatchLabel, true
	case rec.UUID != nil && *rec.UUID == id:
		return MatchUUID, true
	case rec.Name == id:
		return MatchName, true
	}
	return "", false
}

// Resolve returns the first record in catalog order matching id by path,
// label, UUID or kernel name. Comparison is exact. With strict set, an id
// matching more than one record is an error instead of a first-match pick.
func Resolve(c catalog.Catalog, id string, strict bool) (*Match, error) {
	var found *Match
	var others []string

	for _, rec := range c {
		kind, ok := matchRecord(rec, id)
		if !ok {
			continue
		}
		if found == nil {
			found = &Match{Record: rec, Kind: kind}
			if !strict {
				break
			}
			continue
		}
		others = append(others, rec.Path)
	}

	if found == nil {
		return nil, fmt.Errorf("%w %q", ErrNoMatch, id)
	}
	if len(others) > 0 {
		paths := append([]string{found.Record.Path}, others...)
		return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, id, strings.Join(paths, ", "))
	}

	return found, nil
}
