package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/domain/repository"
)

const UsersCollection = "users"

type userDocument struct {
	ID                   bson.ObjectID `bson:"_id,omitempty"`
	Name                 string        `bson:"name"`
	Email                string        `bson:"email"`
	Photo                string        `bson:"photo"`
	Role                 string        `bson:"role"`
	Password             string        `bson:"password,omitempty"`
	PasswordChangedAt    *time.Time    `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   *string       `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time    `bson:"passwordResetExpires,omitempty"`
	Active               bool          `bson:"active"`
	CreatedAt            time.Time     `bson:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt"`
}

func fromEntity(u *entity.User) userDocument {
	return userDocument{
		Name:                 u.Name,
		Email:                u.Email,
		Photo:                u.Photo,
		Role:                 string(u.Role),
		Password:             u.Password,
		PasswordChangedAt:    u.PasswordChangedAt,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
		Active:               u.Active,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

func (d userDocument) toEntity() *entity.User {
	return &entity.User{
		ID:                   d.ID.Hex(),
		Name:                 d.Name,
		Email:                d.Email,
		Photo:                d.Photo,
		Role:                 entity.Role(d.Role),
		Password:             d.Password,
		PasswordChangedAt:    d.PasswordChangedAt,
		PasswordResetToken:   d.PasswordResetToken,
		PasswordResetExpires: d.PasswordResetExpires,
		Active:               d.Active,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

// UserRepository stores users in a single collection with a unique email index.
type UserRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection), now: time.Now}
}

// EnsureIndexes creates the unique email index and the reset-token lookup index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "passwordResetToken", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("password_reset_token"),
		},
	})
	return err
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicateEmail
	}
	return err
}

func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, repository.ErrInvalidID
	}
	return oid, nil
}

// activeOnly matches documents whose active flag is anything but false
func activeOnly(filter bson.M) bson.M {
	filter["active"] = bson.M{"$ne": false}
	return filter
}

func lookupFilter(filter bson.M, o repository.FindOptions) bson.M {
	if o.IncludeInactive {
		return filter
	}
	return activeOnly(filter)
}

func projection(o repository.FindOptions) bson.M {
	if o.IncludePassword {
		return nil
	}
	return bson.M{"password": 0}
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, o repository.FindOptions) (*entity.User, error) {
	opts := options.FindOne()
	if p := projection(o); p != nil {
		opts.SetProjection(p)
	}
	var doc userDocument
	if err := r.coll.FindOne(ctx, lookupFilter(filter, o), opts).Decode(&doc); err != nil {
		return nil, classify(err)
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	now := r.now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, fromEntity(u))
	if err != nil {
		return classify(err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		u.ID = oid.Hex()
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string, opts ...repository.FindOption) (*entity.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid}, repository.ApplyFindOptions(opts...))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string, opts ...repository.FindOption) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.findOne(ctx, bson.M{"email": email}, repository.ApplyFindOptions(opts...))
}

func (r *UserRepository) updateByID(ctx context.Context, id string, filter bson.M, update bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	filter["_id"] = oid
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return classify(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetPasswordReset(ctx context.Context, id, hashedToken string, expires time.Time) error {
	return r.updateByID(ctx, id, bson.M{}, bson.M{"$set": bson.M{
		"passwordResetToken":   hashedToken,
		"passwordResetExpires": expires,
		"updatedAt":            r.now().UTC(),
	}})
}

func (r *UserRepository) ClearPasswordReset(ctx context.Context, id string) error {
	return r.updateByID(ctx, id, bson.M{}, bson.M{
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
		"$set":   bson.M{"updatedAt": r.now().UTC()},
	})
}

func resetFilter(hashedToken string, now time.Time) bson.M {
	return activeOnly(bson.M{
		"passwordResetToken":   hashedToken,
		"passwordResetExpires": bson.M{"$gt": now},
	})
}

func (r *UserRepository) FindByResetToken(ctx context.Context, hashedToken string, now time.Time) (*entity.User, error) {
	return r.findOne(ctx, resetFilter(hashedToken, now), repository.FindOptions{IncludeInactive: true})
}

// ConsumePasswordReset uses FindOneAndUpdate so the match and the clear happen
// in one document-level atomic write.
func (r *UserRepository) ConsumePasswordReset(ctx context.Context, hashedToken string, now time.Time, passwordHash string, changedAt time.Time) (*entity.User, error) {
	update := bson.M{
		"$set": bson.M{
			"password":          passwordHash,
			"passwordChangedAt": changedAt,
			"updatedAt":         r.now().UTC(),
		},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"password": 0})

	var doc userDocument
	if err := r.coll.FindOneAndUpdate(ctx, resetFilter(hashedToken, now), update, opts).Decode(&doc); err != nil {
		return nil, classify(err)
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return r.updateByID(ctx, id, activeOnly(bson.M{}), bson.M{"$set": bson.M{
		"password":          passwordHash,
		"passwordChangedAt": changedAt,
		"updatedAt":         r.now().UTC(),
	}})
}

func (r *UserRepository) UpdatePhoto(ctx context.Context, id, photo string) error {
	return r.updateByID(ctx, id, activeOnly(bson.M{}), bson.M{"$set": bson.M{
		"photo":     photo,
		"updatedAt": r.now().UTC(),
	}})
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

var _ repository.UserRepository = (*UserRepository)(nil)
