// internal/caps/move.go
package caps

import (
	"fmt"
	"strings"
)

// MoveKind is the shape of a submitted move.
type MoveKind uint8

const (
	Single MoveKind = iota + 1
	Double
	Completion
	Pass
)

var moveKindNames = map[MoveKind]string{
	Single:     "single",
	Double:     "double",
	Completion: "completion",
	Pass:       "pass",
}

func (k MoveKind) String() string {
	if name, ok := moveKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MoveKind(%d)", uint8(k))
}

// ParseMoveKind accepts the lowercase names produced by String.
func ParseMoveKind(s string) (MoveKind, error) {
	for k, name := range moveKindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown move kind %q", s)
}

func (k MoveKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *MoveKind) UnmarshalText(b []byte) error {
	parsed, err := ParseMoveKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ActiveType is the shape the next non-completion move must match.
type ActiveType uint8

const (
	ActiveNone ActiveType = iota
	ActiveSingle
	ActiveDouble
)

func (a ActiveType) String() string {
	switch a {
	case ActiveNone:
		return "none"
	case ActiveSingle:
		return "single"
	case ActiveDouble:
		return "double"
	}
	return fmt.Sprintf("ActiveType(%d)", uint8(a))
}

func (a ActiveType) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Move is a submission from a driver. Slots index the mover's hand as it stands at submission.
type Move struct {
	Mover int      `json:"mover"`
	Kind  MoveKind `json:"kind"`
	Slots []int    `json:"slots,omitempty"`
}

func (m Move) String() string {
	return fmt.Sprintf("p%d %s %v", m.Mover, m.Kind, m.Slots)
}

// PlayedMove is a history entry: the move with its slots resolved to the cards removed.
type PlayedMove struct {
	Mover int      `json:"mover"`
	Kind  MoveKind `json:"kind"`
	Cards []Card   `json:"cards,omitempty"`
}
