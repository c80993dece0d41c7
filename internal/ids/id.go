// Package ids provides the opaque identifier type shared by every
// persisted entity in the engine (workspaces, vnodes, code units, memories).
package ids

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// Id is a 128-bit opaque identifier with a stable hex string form.
type Id struct {
	u uuid.UUID
}

// New generates a fresh random Id.
func New() Id {
	return Id{u: uuid.New()}
}

// Deterministic derives a stable Id from name: the same name always
// produces the same Id, letting a caller (a CLI resolving a workspace
// by its filesystem path, for instance) recover an existing entity's
// Id without persisting a lookup table.
func Deterministic(name string) Id {
	return Id{u: uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))}
}

// Nil is the zero-value Id.
var Nil = Id{}

// IsNil reports whether id is the zero value.
func (id Id) IsNil() bool {
	return id.u == uuid.Nil
}

// Parse decodes a hex string form into an Id.
func Parse(s string) (Id, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Id{}, fmt.Errorf("ids: parse %q: %w", s, err)
	}
	return Id{u: u}, nil
}

// MustParse is like Parse but panics on error; for use with static literals.
func MustParse(s string) Id {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromBytes builds an Id from a 16-byte slice, e.g. decoded from storage.
func FromBytes(b []byte) (Id, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return Id{}, fmt.Errorf("ids: from bytes: %w", err)
	}
	return Id{u: u}, nil
}

// Bytes returns the raw 16-byte representation.
func (id Id) Bytes() []byte {
	b := id.u
	out := make([]byte, 16)
	copy(out, b[:])
	return out
}

func (id Id) String() string {
	return id.u.String()
}

// MarshalText implements encoding.TextMarshaler.
func (id Id) MarshalText() ([]byte, error) {
	return []byte(id.u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Id) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return fmt.Errorf("ids: unmarshal %q: %w", string(b), err)
	}
	id.u = u
	return nil
}

// Value implements database/sql/driver.Valuer, storing as text.
func (id Id) Value() (driver.Value, error) {
	return id.u.String(), nil
}

// Scan implements database/sql.Scanner.
func (id *Id) Scan(src any) error {
	switch v := src.(type) {
	case string:
		u, err := uuid.Parse(v)
		if err != nil {
			return fmt.Errorf("ids: scan %q: %w", v, err)
		}
		id.u = u
		return nil
	case []byte:
		u, err := uuid.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("ids: scan %q: %w", string(v), err)
		}
		id.u = u
		return nil
	case nil:
		id.u = uuid.Nil
		return nil
	default:
		return fmt.Errorf("ids: scan: unsupported type %T", src)
	}
}
