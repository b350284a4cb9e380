package readindex

import (
	"errors"
	"fmt"
)

// MateSuffixLen is the width of the mate suffix stripped from paired-end
// identifiers, e.g. "/1" and "/2"
const MateSuffixLen = 2

// ErrShortIdentifier is returned when a paired-end identifier is too short
// to carry a mate suffix and still leave a read name
var ErrShortIdentifier = errors.New("identifier too short for mate suffix")

// ReadType selects how graph identifiers are canonicalized
type ReadType int

const (
	// PairedEnd reads collapse both mates onto one node
	PairedEnd ReadType = 1
	// SingleEnd reads use the identifier verbatim
	SingleEnd ReadType = 2
)

func (rt ReadType) String() string {
	switch rt {
	case PairedEnd:
		return "paired-end"
	case SingleEnd:
		return "single-end"
	default:
		return fmt.Sprintf("ReadType(%d)", int(rt))
	}
}

// Canonicalizer turns a raw graph identifier into the id used as Index key
type Canonicalizer func(raw string) (string, error)

// NewCanonicalizer returns the canonicalizer for a read type
func NewCanonicalizer(rt ReadType) (Canonicalizer, error) {
	switch rt {
	case PairedEnd:
		return StripMateSuffix, nil
	case SingleEnd:
		return Verbatim, nil
	default:
		return nil, fmt.Errorf("unknown read type %d", int(rt))
	}
}

// StripMateSuffix drops the last MateSuffixLen characters
func StripMateSuffix(raw string) (string, error) {
	if len(raw) <= MateSuffixLen {
		return "", fmt.Errorf("%w: %q", ErrShortIdentifier, raw)
	}
	return raw[:len(raw)-MateSuffixLen], nil
}

// Verbatim returns the identifier unchanged
func Verbatim(raw string) (string, error) {
	return raw, nil
}
