// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Email: The address users type to log in (stored trimmed and lowercase)

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/strataauth/internal/app/system/loginhistory"
	"github.com/dalemusser/strataauth/internal/app/system/normalize"
	"github.com/dalemusser/strataauth/internal/app/system/timeouts"
	"github.com/dalemusser/strataauth/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxAppendAttempts bounds the optimistic retry loop in AppendLogin.
const maxAppendAttempts = 8

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrHistoryConflict is returned when AppendLogin keeps losing races with concurrent logins.
	ErrHistoryConflict = errors.New("login history changed concurrently")

	errBadStatus = errors.New(`account status must be "active"|"suspended"|"deactivated"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// userDoc is the stored shape. login_history is kept raw so documents with a
// legacy keyed history still decode.
type userDoc struct {
	models.User  `bson:",inline"`
	LoginHistory bson.RawValue `bson:"login_history"`
}

// newUserDoc is the insert shape; new users always start with an empty array.
type newUserDoc struct {
	models.User  `bson:",inline"`
	LoginHistory []models.LoginLogEntry `bson:"login_history"`
}

func (d userDoc) toUser() (*models.User, error) {
	u := d.User
	entries, _, err := loginhistory.Decode(d.LoginHistory)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID.Hex(), err)
	}
	u.LoginHistory = entries
	return &u, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var d userDoc
	if err := s.c.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, err
	}
	return d.toUser()
}

// GetByEmail looks up a user by email address (case-insensitive).
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

// ExistsByEmail checks if a user with the given email exists.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	count, err := s.c.CountDocuments(ctx, bson.M{
		"email": normalize.Email(email),
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new user after normalizing & validating fields.
// The caller supplies an already hashed password.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.Email = normalize.Email(u.Email)

	if u.AccountStatus == "" {
		u.AccountStatus = models.AccountActive
	}
	if !models.IsValidAccountStatus(u.AccountStatus) {
		return models.User{}, errBadStatus
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.LastLogin = nil
	u.LastLoginIP = ""
	u.LoginHistory = nil

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	doc := newUserDoc{User: u, LoginHistory: []models.LoginLogEntry{}}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// AppendLogin records a successful login: it appends the next history entry
// and sets last_login / last_login_ip in one single-document update.
//
// The entry label depends on the current history length, so the update is
// conditioned on the history being unchanged since it was read. A legacy
// keyed history is rewritten as an array (stored key order) in the same
// update. Lost races are retried; after maxAppendAttempts ErrHistoryConflict
// is returned and nothing has been written. Each attempt gets its own
// timeouts.Short() budget.
func (s *Store) AppendLogin(ctx context.Context, id primitive.ObjectID, at time.Time, in loginhistory.Input) (models.LoginLogEntry, error) {
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		entry, done, err := s.tryAppendLogin(ctx, id, at, in)
		if err != nil || done {
			return entry, err
		}
	}
	return models.LoginLogEntry{}, ErrHistoryConflict
}

// tryAppendLogin makes one read-then-conditional-update attempt. done is
// false when a concurrent writer changed the history first.
func (s *Store) tryAppendLogin(ctx context.Context, id primitive.ObjectID, at time.Time, in loginhistory.Input) (models.LoginLogEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	proj := options.FindOne().SetProjection(bson.M{"login_history": 1})
	var d userDoc
	if err := s.c.FindOne(ctx, bson.M{"_id": id}, proj).Decode(&d); err != nil {
		return models.LoginLogEntry{}, false, err
	}
	entries, shape, err := loginhistory.Decode(d.LoginHistory)
	if err != nil {
		return models.LoginLogEntry{}, false, fmt.Errorf("user %s: %w", id.Hex(), err)
	}

	entry := loginhistory.NewEntry(len(entries), in)
	set := bson.M{
		"last_login":    at,
		"last_login_ip": in.IP,
		"updated_at":    time.Now().UTC(),
	}

	var filter, update bson.M
	switch shape {
	case loginhistory.ShapeArray:
		filter = bson.M{"_id": id, "login_history": bson.M{"$size": len(entries)}}
		update = bson.M{"$set": set, "$push": bson.M{"login_history": entry}}
	case loginhistory.ShapeLegacy:
		// $type "object" alone also matches arrays of documents.
		filter = bson.M{"_id": id, "login_history": bson.M{
			"$type": "object",
			"$not":  bson.M{"$type": "array"},
		}}
		set["login_history"] = append(entries, entry)
		update = bson.M{"$set": set}
	default:
		filter = bson.M{"_id": id, "login_history": nil}
		set["login_history"] = []models.LoginLogEntry{entry}
		update = bson.M{"$set": set}
	}

	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return models.LoginLogEntry{}, false, err
	}
	return entry, res.MatchedCount == 1, nil
}
