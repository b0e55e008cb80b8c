// Package typeid mints and checks the prefixed, sortable ids used for scene
// objects, sessions, uploaded assets and exports.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Kind is an id prefix.
type Kind string

const (
	PrefixObject  Kind = "obj"
	PrefixSession Kind = "sess"
	PrefixAsset   Kind = "asset"
	PrefixExport  Kind = "exp"
)

var ErrInvalidID = errors.New("invalid id")

// New returns a fresh id of the given kind, e.g. "sess_01h455vb4pex5vsknk084sn02q".
func New(kind Kind) string {
	return typeid.MustGenerate(string(kind)).String()
}

func NewObjectID() string  { return New(PrefixObject) }
func NewSessionID() string { return New(PrefixSession) }
func NewAssetID() string   { return New(PrefixAsset) }
func NewExportID() string  { return New(PrefixExport) }

// KindOf parses id and returns its prefix.
func KindOf(id string) (Kind, error) {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidID, id, err)
	}
	return Kind(parsed.Prefix()), nil
}

// Validate checks that id is well formed and carries the expected prefix.
func Validate(id string, want Kind) error {
	got, err := KindOf(id)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: expected %q id, got %q", ErrInvalidID, want, id)
	}
	return nil
}
