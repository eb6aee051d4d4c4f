package audit

import (
	"fmt"
	"time"
)

// Level is the severity of a record.
type Level string

const (
	LevelInfo    Level = "info"
	LevelNotice  Level = "notice"
	LevelWarning Level = "warning"
)

// ChangedMarker replaces credential values in the trail.
const ChangedMarker = "changed"

// Record is one audit trail entry.
type Record struct {
	ID        int64     `json:"id"`
	Level     Level     `json:"level"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	Table     string    `json:"table"`
	RowID     int64     `json:"row_id"`
	Field     string    `json:"field"`
	Note      string    `json:"note,omitempty"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Change builds a record for a field going from one value to another. Nil
// values are stored as NULL, everything else in its fmt representation.
func Change(level Level, actorID *int64, table string, rowID int64, field string, from, to any) *Record {
	return &Record{
		Level:    level,
		ActorID:  actorID,
		Table:    table,
		RowID:    rowID,
		Field:    field,
		OldValue: render(from),
		NewValue: render(to),
	}
}

// CredentialChange builds a record for a credential update. No value derived
// from the credential is kept.
func CredentialChange(actorID *int64, table string, rowID int64, field string) *Record {
	marker := ChangedMarker
	return &Record{
		Level:    LevelNotice,
		ActorID:  actorID,
		Table:    table,
		RowID:    rowID,
		Field:    field,
		NewValue: &marker,
	}
}

// WithNote sets the free text note and returns r.
func (r *Record) WithNote(note string) *Record {
	r.Note = note
	return r
}

func render(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case *string:
		return t
	case *int64:
		if t == nil {
			return nil
		}
		s := fmt.Sprint(*t)
		return &s
	case fmt.Stringer:
		s := t.String()
		return &s
	default:
		s := fmt.Sprint(v)
		return &s
	}
}

// SearchFilter narrows record listings.
type SearchFilter struct {
	Table   string
	RowID   *int64
	ActorID *int64
	Field   string
	Level   Level

	Skip int
	Take int
}
