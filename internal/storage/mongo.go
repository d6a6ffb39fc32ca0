package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/JamesPrial/bed-occupancy-core/pkg/config"
	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

// mongoRecord is the stored document shape
type mongoRecord struct {
	ID           primitive.ObjectID `bson:"_id"`
	HospitalID   string             `bson:"hospital_id"`
	WardID       string             `bson:"ward_id"`
	WardType     string             `bson:"ward_type,omitempty"`
	BedCount     int                `bson:"bed_count"`
	OccupiedBeds int                `bson:"occupied_beds"`
	RecordDate   time.Time          `bson:"record_date"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (d mongoRecord) toRecord() occupancy.Record {
	return occupancy.Record{
		ID:           d.ID.Hex(),
		HospitalID:   d.HospitalID,
		WardID:       d.WardID,
		WardType:     occupancy.WardType(d.WardType),
		BedCount:     d.BedCount,
		OccupiedBeds: d.OccupiedBeds,
		RecordDate:   occupancy.NormalizeDate(d.RecordDate),
	}
}

// dateOrder sorts by record_date, then by _id which grows with insertion
var dateOrder = bson.D{{Key: "record_date", Value: 1}, {Key: "_id", Value: 1}}

type MongoBackend struct {
	client     *mongo.Client
	coll       *mongo.Collection
	ownsClient bool
	logger     *slog.Logger
}

// NewMongoBackend connects to the server, verifies it with a ping and
// ensures the query index exists.
func NewMongoBackend(ctx context.Context, cfg config.MongoSettings) (*MongoBackend, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Database) == "" {
		return nil, errors.Configuration("mongo url and database are required")
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "bed_occupancy"
	}

	timeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URL).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeConfiguration, "invalid mongo connection settings: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Unavailable(err, "cannot reach mongodb server")
	}

	backend := newMongoBackend(client.Database(cfg.Database).Collection(collection))
	backend.ownsClient = true

	if err := backend.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	backend.logger.Info("MongoDB backend ready",
		slog.String("database", cfg.Database),
		slog.String("collection", collection),
	)
	return backend, nil
}

// NewMongoBackendWithCollection uses an existing collection handle. The
// caller keeps ownership of the client.
func NewMongoBackendWithCollection(coll *mongo.Collection) *MongoBackend {
	return newMongoBackend(coll)
}

func newMongoBackend(coll *mongo.Collection) *MongoBackend {
	return &MongoBackend{
		client: coll.Database().Client(),
		coll:   coll,
		logger: logging.GetGlobalLogger("storage.mongo"),
	}
}

// EnsureIndexes creates the ward/date index; a no-op when it already exists
func (m *MongoBackend) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "hospital_id", Value: 1},
			{Key: "ward_id", Value: 1},
			{Key: "record_date", Value: 1},
		},
		Options: options.Index().SetName("idx_ward_date"),
	})
	if err != nil {
		classified := classifyMongoError(err, "create index")
		if errors.IsUnavailable(classified) {
			return classified
		}
		return errors.Wrap(err, errors.ErrCodeStorageInitialization, "failed to create indexes")
	}
	return nil
}

// Create inserts one document with a client-assigned ObjectID
func (m *MongoBackend) Create(ctx context.Context, in occupancy.RecordInput) (rec *occupancy.Record, err error) {
	timer := logging.StartTimer(ctx, m.logger, "mongo.create")
	defer func() { timer.EndWithError(err) }()

	prepared, err := in.Prepare()
	if err != nil {
		return nil, err
	}

	doc := mongoRecord{
		ID:           primitive.NewObjectID(),
		HospitalID:   prepared.HospitalID,
		WardID:       prepared.WardID,
		WardType:     string(prepared.WardType),
		BedCount:     prepared.BedCount,
		OccupiedBeds: prepared.OccupiedBeds,
		RecordDate:   prepared.RecordDate,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		return nil, classifyMongoError(err, "insert record")
	}

	record := prepared.ToRecord(doc.ID.Hex())

	m.logger.DebugContext(ctx, "Record stored in mongodb",
		slog.String("id", record.ID),
		slog.String("hospital_id", record.HospitalID),
		slog.String("ward_id", record.WardID),
	)

	return &record, nil
}

// Get looks a record up by its ObjectID hex string
func (m *MongoBackend) Get(ctx context.Context, id string) (*occupancy.Record, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, errors.NotFound("occupancy record " + id)
	}

	var doc mongoRecord
	if err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NotFound("occupancy record " + id)
		}
		return nil, classifyMongoError(err, "get record")
	}

	record := doc.toRecord()
	return &record, nil
}

// Query returns the ward's records within the optional inclusive bounds
func (m *MongoBackend) Query(ctx context.Context, q occupancy.Query) (records []occupancy.Record, err error) {
	timer := logging.StartTimer(ctx, m.logger, "mongo.query")
	defer func() { timer.EndWithError(err) }()

	q, err = q.Prepare()
	if err != nil {
		return nil, err
	}

	filter := bson.D{
		{Key: "hospital_id", Value: q.HospitalID},
		{Key: "ward_id", Value: q.WardID},
	}

	dateFilter := bson.D{}
	if q.Start != nil {
		dateFilter = append(dateFilter, bson.E{Key: "$gte", Value: *q.Start})
	}
	if q.End != nil {
		dateFilter = append(dateFilter, bson.E{Key: "$lte", Value: *q.End})
	}
	if len(dateFilter) > 0 {
		filter = append(filter, bson.E{Key: "record_date", Value: dateFilter})
	}

	return m.find(ctx, filter)
}

// ListAll returns every stored record in date order
func (m *MongoBackend) ListAll(ctx context.Context) ([]occupancy.Record, error) {
	return m.find(ctx, bson.D{})
}

func (m *MongoBackend) find(ctx context.Context, filter bson.D) ([]occupancy.Record, error) {
	cursor, err := m.coll.Find(ctx, filter, options.Find().SetSort(dateOrder))
	if err != nil {
		return nil, classifyMongoError(err, "find records")
	}

	var docs []mongoRecord
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classifyMongoError(err, "read records")
	}

	records := make([]occupancy.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.toRecord())
	}
	return records, nil
}

// mongoStats is the output of the statistics pipeline
type mongoStats struct {
	Total           int64   `bson:"total"`
	UniqueHospitals int64   `bson:"unique_hospitals"`
	UniqueWards     int64   `bson:"unique_wards"`
	AvgOccupiedBeds float64 `bson:"avg_occupied_beds"`
	AvgTotalBeds    float64 `bson:"avg_total_beds"`
}

var statsPipeline = mongo.Pipeline{
	{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: nil},
		{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "hospitals", Value: bson.D{{Key: "$addToSet", Value: "$hospital_id"}}},
		{Key: "wards", Value: bson.D{{Key: "$addToSet", Value: "$ward_id"}}},
		{Key: "avg_occupied_beds", Value: bson.D{{Key: "$avg", Value: "$occupied_beds"}}},
		{Key: "avg_total_beds", Value: bson.D{{Key: "$avg", Value: "$bed_count"}}},
	}}},
	{{Key: "$project", Value: bson.D{
		{Key: "_id", Value: 0},
		{Key: "total", Value: 1},
		{Key: "unique_hospitals", Value: bson.D{{Key: "$size", Value: "$hospitals"}}},
		{Key: "unique_wards", Value: bson.D{{Key: "$size", Value: "$wards"}}},
		{Key: "avg_occupied_beds", Value: 1},
		{Key: "avg_total_beds", Value: 1},
	}}},
}

// Health pings the server and aggregates statistics. An empty collection
// produces no group output and reports zeros.
func (m *MongoBackend) Health(ctx context.Context) (*occupancy.HealthStatus, error) {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, unreachable(ctx, err, "mongodb server is not reachable")
	}

	cursor, err := m.coll.Aggregate(ctx, statsPipeline)
	if err != nil {
		return nil, classifyMongoError(err, "collect statistics")
	}

	var results []mongoStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, classifyMongoError(err, "read statistics")
	}

	var stats occupancy.Statistics
	if len(results) > 0 {
		stats = occupancy.Statistics{
			TotalRecords:    results[0].Total,
			UniqueHospitals: results[0].UniqueHospitals,
			UniqueWards:     results[0].UniqueWards,
			AvgOccupiedBeds: results[0].AvgOccupiedBeds,
			AvgTotalBeds:    results[0].AvgTotalBeds,
		}
	}

	return &occupancy.HealthStatus{
		Backend:     BackendMongoDB,
		Status:      occupancy.StatusConnected,
		Reachable:   true,
		RecordCount: stats.TotalRecords,
		Statistics:  stats,
		CheckedAt:   time.Now().UTC(),
	}, nil
}

// Close disconnects the client when this backend created it
func (m *MongoBackend) Close() error {
	if !m.ownsClient || m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// classifyMongoError maps driver failures onto the error taxonomy
func classifyMongoError(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.ErrCodeContextCanceled, "storage operation canceled")
	}

	var selectionErr topology.ServerSelectionError
	switch {
	case stderrors.As(err, &selectionErr),
		mongo.IsNetworkError(err),
		stderrors.Is(err, mongo.ErrClientDisconnected):
		return errors.Wrapf(err, errors.ErrCodeStorageConnection, "mongodb is unavailable (%s)", op)
	case mongo.IsTimeout(err):
		return errors.Wrapf(err, errors.ErrCodeStorageTimeout, "mongodb operation timed out (%s)", op)
	}

	return errors.Wrap(err, errors.ErrCodeInternal, fmt.Sprintf("mongodb %s failed", op))
}
