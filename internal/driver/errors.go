package driver

import "errors"

var (
	// ErrNoMatch is returned when no device record matches the identifier
	ErrNoMatch = errors.New("no device matches")
	// ErrAmbiguous is returned in strict mode when several devices match
	ErrAmbiguous = errors.New("identifier matches more than one device")
	// ErrUnknownFSType is returned when the resolved device has no known filesystem
	ErrUnknownFSType = errors.New("unknown filesystem type")
	// ErrAlreadyMounted is returned when the target already holds a filesystem
	ErrAlreadyMounted = errors.New("already mounted")
	// ErrMkdir is returned when the mount point directory cannot be created
	ErrMkdir = errors.New("cannot create mount point")
	// ErrMount is returned when the mount delegate fails
	ErrMount = errors.New("mount failed")
	// ErrUnmount is returned when the unmount delegate fails
	ErrUnmount = errors.New("unmount failed")
	// ErrOutsideRoot is returned when a device named for unmounting is
	// mounted somewhere other than the mount root
	ErrOutsideRoot = errors.New("mounted outside the mount root")
)
