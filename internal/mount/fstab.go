package mount

import (
	"strings"

	"github.com/deniswernert/go-fstab"
)

// FstabEntry builds the /etc/fstab line that would mount spec at file on
// every boot. Options of the form key=value are kept as pairs.
func FstabEntry(spec, file, fsType string, options []string) *fstab.Mount {
	opts := map[string]string{}
	for _, o := range options {
		key, value, _ := strings.Cut(o, "=")
		opts[key] = value
	}
	if len(opts) == 0 {
		opts["defaults"] = ""
	}

	return &fstab.Mount{
		Spec:    escapeFstab(spec),
		File:    escapeFstab(file),
		VfsType: fsType,
		MntOps:  opts,
		Freq:    0,
		PassNo:  2,
	}
}

// escapeFstab encodes whitespace the way fstab(5) expects
func escapeFstab(s string) string {
	s = strings.ReplaceAll(s, " ", "\\040")
	return strings.ReplaceAll(s, "\t", "\\011")
}
