package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devradar/backend/internal/models"
)

type MongoDevService struct {
	client  *mongo.Client
	db      *mongo.Database
	devsCol *mongo.Collection
	logger  *slog.Logger
}

func NewMongoDevService(ctx context.Context, mongoURI, dbName string, logger *slog.Logger) (*MongoDevService, error) {
	opts := options.Client().ApplyURI(mongoURI)
	// Atlas occasionally fails TLS negotiation unless TLS 1.2 is forced.
	if strings.HasPrefix(mongoURI, "mongodb+srv://") {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(dbName)
	svc := &MongoDevService{
		client:  client,
		db:      db,
		devsCol: db.Collection("devs"),
		logger:  logger,
	}

	if err := svc.EnsureIndexes(ctx); err != nil {
		// Search without the 2dsphere index fails at query time, so keep going and say so.
		logger.Warn("failed to create developer indexes", slog.String("error", err.Error()))
	}

	logger.Info("MongoDB connected", slog.String("db", dbName))
	return svc, nil
}

func (s *MongoDevService) EnsureIndexes(ctx context.Context) error {
	_, err := s.devsCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{
			Keys:    bson.D{{Key: "github_username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "techs", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}

func (s *MongoDevService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoDevService) Create(ctx context.Context, dev *models.Developer) (*models.Developer, error) {
	if err := dev.Location.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := *dev
	doc.ID = uuid.New().String()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Techs == nil {
		doc.Techs = []string{}
	}

	if _, err := s.devsCol.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDevExists
		}
		return nil, err
	}
	return &doc, nil
}

func (s *MongoDevService) GetByUsername(ctx context.Context, username string) (*models.Developer, error) {
	var dev models.Developer
	err := s.devsCol.FindOne(ctx, bson.M{"github_username": models.NormalizeUsername(username)}).Decode(&dev)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrDevNotFound
		}
		return nil, err
	}
	return &dev, nil
}

func (s *MongoDevService) List(ctx context.Context, limit int) ([]*models.Developer, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	cur, err := s.devsCol.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	return decodeDevs(ctx, cur)
}

// Search relies on $nearSphere, which returns documents nearest first.
func (s *MongoDevService) Search(ctx context.Context, q models.SearchQuery) ([]*models.Developer, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultSearchLimit
	}

	cur, err := s.devsCol.Find(ctx, BuildSearchFilter(q), options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	return decodeDevs(ctx, cur)
}

func (s *MongoDevService) Update(ctx context.Context, username string, req *models.UpdateDevRequest) (*models.Developer, error) {
	res := s.devsCol.FindOneAndUpdate(
		ctx,
		bson.M{"github_username": models.NormalizeUsername(username)},
		BuildUpdate(req, time.Now().UTC()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Developer
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrDevNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *MongoDevService) Delete(ctx context.Context, username string) error {
	res, err := s.devsCol.DeleteOne(ctx, bson.M{"github_username": models.NormalizeUsername(username)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrDevNotFound
	}
	return nil
}

// BuildSearchFilter turns a query into the Mongo filter. Radius is in meters because the
// stored points are GeoJSON. An empty tag list adds no tag predicate.
func BuildSearchFilter(q models.SearchQuery) bson.M {
	filter := bson.M{
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": bson.A{q.Center.Longitude(), q.Center.Latitude()},
				},
				"$maxDistance": q.RadiusMeters,
			},
		},
	}
	if len(q.Techs) > 0 {
		filter["techs"] = bson.M{"$in": q.Techs}
	}
	return filter
}

// BuildUpdate only sets the fields present in req.
func BuildUpdate(req *models.UpdateDevRequest, now time.Time) bson.M {
	set := bson.M{
		"updated_at": now,
	}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Bio != nil {
		set["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		set["avatar_url"] = *req.AvatarURL
	}
	if req.Techs != nil {
		set["techs"] = []string(*req.Techs)
	}
	if loc, ok := req.Location(); ok {
		set["location"] = loc
	}
	return bson.M{"$set": set}
}

func decodeDevs(ctx context.Context, cur *mongo.Cursor) ([]*models.Developer, error) {
	defer cur.Close(ctx)

	results := make([]*models.Developer, 0)
	for cur.Next(ctx) {
		var d models.Developer
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		results = append(results, &d)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
