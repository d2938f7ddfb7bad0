package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/PancyStudios/PancyMod/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PunishmentsCollection is the collection holding every moderation case
const PunishmentsCollection = "Punishments"

const (
	caseIDLength        = 6
	caseIDAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxCaseIDCollisions = 15
)

var (
	ErrCaseIDExhausted = errors.New("could not generate a unique case id")
	ErrCaseNotFound    = errors.New("case not found")
)

// PunishmentStore persists moderation cases. Records are never deleted:
// revocation sets date_expires to 0 and invalidation also hides them.
type PunishmentStore struct {
	db *Database
}

// NewPunishmentStore creates a store over the "Punishments" collection
func NewPunishmentStore(db *Database) *PunishmentStore {
	return &PunishmentStore{db: db}
}

func (s *PunishmentStore) collection() (*mongo.Collection, error) {
	if s.db == nil {
		return nil, ErrStoreUnavailable
	}
	return s.db.collection(PunishmentsCollection)
}

func randomCaseID() string {
	b := make([]byte, caseIDLength)
	for i := range b {
		b[i] = caseIDAlphabet[rand.Intn(len(caseIDAlphabet))]
	}
	return string(b)
}

// generateCaseID rolls ids until one is free. More than maxCaseIDCollisions
// collisions in a row returns ErrCaseIDExhausted.
func generateCaseID(ctx context.Context, exists func(context.Context, string) (bool, error), random func() string) (string, error) {
	collisions := 0
	for {
		id := random()
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
		collisions++
		if collisions > maxCaseIDCollisions {
			return "", ErrCaseIDExhausted
		}
	}
}

func caseFilter(guildID, caseID string) bson.M {
	return bson.M{"guild_id": guildID, "id": caseID}
}

func activeFilter(guildID, userID string, kind models.PunishmentKind, now int64) bson.M {
	return bson.M{
		"guild_id": guildID,
		"user_id":  userID,
		"type":     kind,
		"visible":  true,
		"$or": bson.A{
			bson.M{"date_expires": models.ExpiresNever},
			bson.M{"date_expires": bson.M{"$gt": now}},
		},
	}
}

func userCasesFilter(guildID, userID string) bson.M {
	return bson.M{"guild_id": guildID, "user_id": userID, "visible": true}
}

func warningsFilter(guildID, userID string, activeOnly bool, now int64) bson.M {
	if activeOnly {
		return activeFilter(guildID, userID, models.KindWarning, now)
	}
	f := userCasesFilter(guildID, userID)
	f["type"] = models.KindWarning
	return f
}

func expiredFilter(kind models.PunishmentKind, now int64) bson.M {
	return bson.M{
		"type":         kind,
		"visible":      true,
		"date_expires": bson.M{"$gt": models.ExpiresRevoked, "$lte": now},
	}
}

func invalidateUpdate(hide bool) bson.M {
	set := bson.M{"date_expires": models.ExpiresRevoked}
	if hide {
		set["visible"] = false
	}
	return bson.M{"$set": set}
}

var newestFirst = bson.D{{Key: "date_issued", Value: -1}}

// Create assigns a fresh case id to p and inserts it
func (s *PunishmentStore) Create(ctx context.Context, p *models.Punishment) (string, error) {
	col, err := s.collection()
	if err != nil {
		return "", err
	}

	exists := func(ctx context.Context, id string) (bool, error) {
		n, err := col.CountDocuments(ctx, bson.M{"id": id}, options.Count().SetLimit(1))
		return n > 0, err
	}
	id, err := generateCaseID(ctx, exists, randomCaseID)
	if err != nil {
		return "", err
	}

	p.ID = id
	if _, err := col.InsertOne(ctx, p); err != nil {
		return "", fmt.Errorf("insert case %s: %w", id, err)
	}
	return id, nil
}

// FindCase returns a single case of the guild, visible or not
func (s *PunishmentStore) FindCase(ctx context.Context, guildID, caseID string) (*models.Punishment, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	var p models.Punishment
	err = col.FindOne(ctx, caseFilter(guildID, caseID)).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindActive returns the newest active case of a kind, or nil when there is none
func (s *PunishmentStore) FindActive(ctx context.Context, guildID, userID string, kind models.PunishmentKind, now int64) (*models.Punishment, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	var p models.Punishment
	opts := options.FindOne().SetSort(newestFirst)
	err = col.FindOne(ctx, activeFilter(guildID, userID, kind, now), opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PunishmentStore) find(ctx context.Context, filter bson.M) ([]models.Punishment, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	cursor, err := col.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := make([]models.Punishment, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ListCases returns the visible cases of a user, newest first
func (s *PunishmentStore) ListCases(ctx context.Context, guildID, userID string) ([]models.Punishment, error) {
	return s.find(ctx, userCasesFilter(guildID, userID))
}

// ListWarnings returns the visible warnings of a user
func (s *PunishmentStore) ListWarnings(ctx context.Context, guildID, userID string, activeOnly bool, now int64) ([]models.Punishment, error) {
	return s.find(ctx, warningsFilter(guildID, userID, activeOnly, now))
}

// ListExpired returns visible cases of a kind whose expiry already passed
func (s *PunishmentStore) ListExpired(ctx context.Context, kind models.PunishmentKind, now int64) ([]models.Punishment, error) {
	return s.find(ctx, expiredFilter(kind, now))
}

// UpdateReason replaces the reason of a case
func (s *PunishmentStore) UpdateReason(ctx context.Context, guildID, caseID, reason string) error {
	col, err := s.collection()
	if err != nil {
		return err
	}

	res, err := col.UpdateOne(ctx, caseFilter(guildID, caseID), bson.M{"$set": bson.M{"reason": reason}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// Invalidate expires a case; with hide it also drops out of listings
func (s *PunishmentStore) Invalidate(ctx context.Context, guildID, caseID string, hide bool) error {
	col, err := s.collection()
	if err != nil {
		return err
	}

	res, err := col.UpdateOne(ctx, caseFilter(guildID, caseID), invalidateUpdate(hide))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// RevokeActive expires the newest active case of a kind. It reports false
// when the user had no active case.
func (s *PunishmentStore) RevokeActive(ctx context.Context, guildID, userID string, kind models.PunishmentKind, now int64) (bool, error) {
	col, err := s.collection()
	if err != nil {
		return false, err
	}

	opts := options.FindOneAndUpdate().SetSort(newestFirst)
	err = col.FindOneAndUpdate(ctx, activeFilter(guildID, userID, kind, now), invalidateUpdate(false), opts).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Statistics counts visible cases issued by a moderator, or by everyone when
// moderatorID is empty
func (s *PunishmentStore) Statistics(ctx context.Context, guildID, moderatorID string) (*models.ModerationStats, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	base := bson.M{"guild_id": guildID, "visible": true}
	if moderatorID != "" {
		base["moderator_id"] = moderatorID
	}

	count := func(kind models.PunishmentKind) (int64, error) {
		f := bson.M{}
		for k, v := range base {
			f[k] = v
		}
		if kind != "" {
			f["type"] = kind
		}
		return col.CountDocuments(ctx, f)
	}

	stats := &models.ModerationStats{}
	targets := []struct {
		kind models.PunishmentKind
		dst  *int64
	}{
		{models.KindBan, &stats.Bans},
		{models.KindKick, &stats.Kicks},
		{models.KindJail, &stats.Jails},
		{models.KindTimeout, &stats.Timeouts},
		{models.KindWarning, &stats.Warnings},
		{"", &stats.UserTotal},
	}
	for _, t := range targets {
		n, err := count(t.kind)
		if err != nil {
			return nil, err
		}
		*t.dst = n
	}

	guildTotal, err := col.CountDocuments(ctx, bson.M{"guild_id": guildID, "visible": true})
	if err != nil {
		return nil, err
	}
	stats.GuildTotal = guildTotal
	return stats, nil
}
