package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/delegate"
	"github.com/utkarshk-iitr/Virtual-File-System/internal/log"
)

// lsblkColumns are the columns requested from lsblk
const lsblkColumns = "NAME,PATH,LABEL,UUID,SIZE,FSTYPE"

// LsblkBuilder implements Builder using the lsblk JSON report
type LsblkBuilder struct {
	runner delegate.Runner
}

// NewLsblkBuilder creates a Builder that shells out to lsblk
func NewLsblkBuilder(runner delegate.Runner) *LsblkBuilder {
	return &LsblkBuilder{
		runner: runner,
	}
}

// lsblkOutput represents the JSON output from lsblk
type lsblkOutput struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

// lsblkDevice represents a single device in lsblk output. lsblk reports
// absent values as null, which leaves the pointers nil.
type lsblkDevice struct {
	Name     *string       `json:"name"`
	Path     *string       `json:"path"`
	Label    *string       `json:"label"`
	UUID     *string       `json:"uuid"`
	Size     lsblkSize     `json:"size"`
	FSType   *string       `json:"fstype"`
	Children []lsblkDevice `json:"children,omitempty"`
}

// lsblkSize accepts both the numeric and the quoted form, since older
// util-linux releases print every value as a string.
type lsblkSize struct {
	bytes *uint64
}

func (s *lsblkSize) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		return nil
	}

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		// Size is informational only
		log.Debug("ignoring unparsable lsblk size", "value", raw, "error", err)
		return nil
	}
	s.bytes = &n
	return nil
}

// Build runs lsblk and returns the flattened partition list
func (b *LsblkBuilder) Build(ctx context.Context) (Catalog, error) {
	log.Debug("enumerating block devices", "backend", BackendLsblk)

	res, err := b.runner.Run(ctx, delegate.Command{
		Name: "lsblk",
		Args: []string{"-J", "-b", "-o", lsblkColumns},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalog, err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("%w: %s", ErrCatalog, res.Diagnostic("lsblk"))
	}

	return parseLsblk([]byte(res.Stdout))
}

// parseLsblk decodes an lsblk JSON report into a catalog
func parseLsblk(data []byte) (Catalog, error) {
	var output lsblkOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("%w: parse lsblk output: %w", ErrCatalog, err)
	}

	catalog := Catalog{}
	for _, dev := range output.Blockdevices {
		// Whole disks are not listed, only what they contain
		for _, child := range dev.Children {
			catalog = appendDevice(catalog, child)
		}
	}

	log.Debug("block devices enumerated", "count", len(catalog))
	return catalog, nil
}

// appendDevice adds dev and then its own children, depth first
func appendDevice(catalog Catalog, dev lsblkDevice) Catalog {
	path := Value(dev.Path, "")
	if path != "" {
		catalog = append(catalog, DeviceRecord{
			Path:   path,
			Label:  dev.Label,
			UUID:   dev.UUID,
			FSType: dev.FSType,
			Name:   Value(dev.Name, ""),
			Size:   dev.Size.bytes,
		})
	} else {
		log.Debug("skipping device without path", "name", Value(dev.Name, ""))
	}

	for _, child := range dev.Children {
		catalog = appendDevice(catalog, child)
	}
	return catalog
}
