// Package loginhistory builds login log entries and reads the stored
// login_history field in either of its shapes.
//
// The canonical shape is an ordered array. Older documents may hold an
// embedded document keyed by arbitrary strings ("log1": {...}); Decode turns
// that into an array in stored key order so the next write can replace it.
package loginhistory

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dalemusser/strataauth/internal/app/system/timezones"
	"github.com/dalemusser/strataauth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrUnreadable is returned when login_history holds something that is
// neither an array nor a keyed document of entries.
var ErrUnreadable = errors.New("login history has an unreadable shape")

// Shape describes how login_history is stored in a document.
type Shape int

const (
	ShapeMissing Shape = iota // field absent or null
	ShapeArray                // canonical
	ShapeLegacy               // embedded document keyed by label
)

// Input holds the enrichment output for one login.
type Input struct {
	IP        string
	Location  string
	UserAgent string
	Stamp     timezones.Stamp
}

// NextLabel returns the label for the entry appended after n existing ones.
func NextLabel(n int) string {
	return "log" + strconv.Itoa(n+1)
}

// NewEntry builds the entry that follows n existing entries.
func NewEntry(n int, in Input) models.LoginLogEntry {
	return models.LoginLogEntry{
		Log:        NextLabel(n),
		Date:       in.Stamp.Date,
		UserTime:   in.Stamp.UserTime,
		ServerTime: in.Stamp.ServerTime,
		IP:         in.IP,
		Location:   in.Location,
		UserAgent:  in.UserAgent,
	}
}

// Decode reads a stored login_history value.
func Decode(raw bson.RawValue) ([]models.LoginLogEntry, Shape, error) {
	switch raw.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return nil, ShapeMissing, nil

	case bson.TypeArray:
		var entries []models.LoginLogEntry
		if err := raw.Unmarshal(&entries); err != nil {
			return nil, ShapeArray, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return entries, ShapeArray, nil

	case bson.TypeEmbeddedDocument:
		elems, err := raw.Document().Elements()
		if err != nil {
			return nil, ShapeLegacy, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		entries := make([]models.LoginLogEntry, 0, len(elems))
		for _, el := range elems {
			v := el.Value()
			if v.Type != bson.TypeEmbeddedDocument {
				return nil, ShapeLegacy, fmt.Errorf("%w: key %q is %s", ErrUnreadable, el.Key(), v.Type)
			}
			var e models.LoginLogEntry
			if err := v.Unmarshal(&e); err != nil {
				return nil, ShapeLegacy, fmt.Errorf("%w: key %q: %v", ErrUnreadable, el.Key(), err)
			}
			entries = append(entries, e)
		}
		return entries, ShapeLegacy, nil
	}

	return nil, ShapeMissing, fmt.Errorf("%w: %s", ErrUnreadable, raw.Type)
}
