package tray

import "errors"

var (
	// ErrUnknownTag is returned for scans of tags absent from the catalog.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrNotInTray is returned for quantity/remove operations on absent lines.
	ErrNotInTray = errors.New("tag not in tray")
	// ErrAlreadyInTray is returned by Scan under the reject policy.
	ErrAlreadyInTray = errors.New("tag already in tray")
	// ErrOutOfRange is returned for discounts outside [0, 100].
	ErrOutOfRange = errors.New("discount out of range")
)
