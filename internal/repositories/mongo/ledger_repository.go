package mongo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"portfolio-analytics-api/internal/models"
	"portfolio-analytics-api/internal/repositories"
)

const (
	investmentsCollection   = "investments"
	distributionsCollection = "profit_distributions"
	projectsCollection      = "projects"
)

// MongoLedgerRepository reads the ledger from MongoDB inside a snapshot session
type MongoLedgerRepository struct {
	client   *mongo.Client
	database *mongo.Database
}

func NewLedgerRepository(db *mongo.Database) repositories.LedgerRepository {
	return &MongoLedgerRepository{
		client:   db.Client(),
		database: db,
	}
}

// ReadSnapshot runs all three reads in one session with snapshot read concern,
// so they observe the same majority-committed point in time
func (r *MongoLedgerRepository) ReadSnapshot(ctx context.Context, investorID int64) (*models.LedgerSnapshot, error) {
	session, err := r.client.StartSession(options.Session().SetSnapshot(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start session: %w", repositories.ErrLedgerUnavailable, err)
	}
	defer session.EndSession(ctx)

	snapshot := models.NewLedgerSnapshot(investorID)

	err = mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		investmentDocs, err := r.findAll(sc, investmentsCollection, bson.M{"investor_id": investorID})
		if err != nil {
			return fmt.Errorf("failed to read investments: %w", err)
		}
		for _, doc := range investmentDocs {
			investment, err := bsonToInvestment(doc)
			if err != nil {
				return err
			}
			snapshot.Investments = append(snapshot.Investments, investment)
		}
		sort.SliceStable(snapshot.Investments, func(i, j int) bool {
			a, b := snapshot.Investments[i], snapshot.Investments[j]
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		})

		projectIDs := snapshot.ProjectIDs()
		if len(projectIDs) == 0 {
			return nil
		}

		projectDocs, err := r.findAll(sc, projectsCollection, bson.M{"id": bson.M{"$in": projectIDs}})
		if err != nil {
			return fmt.Errorf("failed to read projects: %w", err)
		}
		for _, doc := range projectDocs {
			project, err := bsonToProject(doc)
			if err != nil {
				return err
			}
			snapshot.Projects[project.ID] = project
		}

		distributionDocs, err := r.findAll(sc, distributionsCollection, bson.M{"project_id": bson.M{"$in": projectIDs}})
		if err != nil {
			return fmt.Errorf("failed to read distributions: %w", err)
		}
		for _, doc := range distributionDocs {
			distribution, err := bsonToDistribution(doc)
			if err != nil {
				return err
			}
			snapshot.Distributions = append(snapshot.Distributions, distribution)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repositories.ErrLedgerUnavailable, err)
	}

	snapshot.ReadAt = time.Now().UTC()
	return snapshot, nil
}

func (r *MongoLedgerRepository) InvestorIDsByProject(ctx context.Context, projectID int64) ([]int64, error) {
	values, err := r.database.Collection(investmentsCollection).Distinct(ctx, "investor_id", bson.M{"project_id": projectID})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list investors of project %d: %w", repositories.ErrLedgerUnavailable, projectID, err)
	}

	investorIDs := make([]int64, 0, len(values))
	for _, v := range values {
		if id, ok := toInt64(v); ok {
			investorIDs = append(investorIDs, id)
		}
	}
	sort.Slice(investorIDs, func(i, j int) bool { return investorIDs[i] < investorIDs[j] })
	return investorIDs, nil
}

func (r *MongoLedgerRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *MongoLedgerRepository) findAll(ctx context.Context, collection string, filter bson.M) ([]bson.M, error) {
	cursor, err := r.database.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// bsonToInvestment converts a BSON document to an Investment
func bsonToInvestment(doc bson.M) (models.Investment, error) {
	inv := models.Investment{
		ID:         parseInt64Field(doc, "id"),
		InvestorID: parseInt64Field(doc, "investor_id"),
		ProjectID:  parseInt64Field(doc, "project_id"),
		Status:     parseStringField(doc, "status"),
		CreatedAt:  parseTimeField(doc, "created_at"),
	}

	amount, err := requireDecimalField(doc, "amount")
	if err != nil {
		return models.Investment{}, fmt.Errorf("investment %d: %w", inv.ID, err)
	}
	inv.Amount = amount
	return inv, nil
}

func bsonToDistribution(doc bson.M) (models.ProfitDistribution, error) {
	d := models.ProfitDistribution{
		ID:               parseInt64Field(doc, "id"),
		ProjectID:        parseInt64Field(doc, "project_id"),
		Type:             parseStringField(doc, "distribution_type"),
		Status:           parseStringField(doc, "status"),
		DistributionDate: parseTimeField(doc, "distribution_date"),
		CreatedAt:        parseTimeField(doc, "created_at"),
	}

	var err error
	if d.Amount, err = requireDecimalField(doc, "amount"); err != nil {
		return models.ProfitDistribution{}, fmt.Errorf("distribution %d: %w", d.ID, err)
	}
	if d.ProfitRate, err = parseDecimalField(doc, "profit_rate"); err != nil {
		return models.ProfitDistribution{}, fmt.Errorf("distribution %d: %w", d.ID, err)
	}

	if approvedAt := parseTimeField(doc, "approved_at"); !approvedAt.IsZero() {
		d.ApprovedAt = &approvedAt
	}
	if _, ok := doc["approved_by"]; ok {
		approvedBy := parseInt64Field(doc, "approved_by")
		d.ApprovedBy = &approvedBy
	}
	return d, nil
}

func bsonToProject(doc bson.M) (models.Project, error) {
	p := models.Project{
		ID:             parseInt64Field(doc, "id"),
		Title:          parseStringField(doc, "title"),
		Status:         parseStringField(doc, "status"),
		DurationMonths: int(parseInt64Field(doc, "duration_months")),
		RiskLevel:      parseStringField(doc, "risk_level"),
		Category:       parseStringField(doc, "category"),
		CreatedAt:      parseTimeField(doc, "created_at"),
	}

	fields := []struct {
		name   string
		target *decimal.Decimal
	}{
		{"funding_goal", &p.FundingGoal},
		{"current_funding", &p.CurrentFunding},
		{"expected_return", &p.ExpectedReturn},
	}
	for _, f := range fields {
		value, err := parseDecimalField(doc, f.name)
		if err != nil {
			return models.Project{}, fmt.Errorf("project %d: %w", p.ID, err)
		}
		*f.target = value
	}

	if start := parseTimeField(doc, "start_date"); !start.IsZero() {
		p.StartDate = &start
	}
	if end := parseTimeField(doc, "end_date"); !end.IsZero() {
		p.EndDate = &end
	}
	return p, nil
}

// parseDecimalField accepts amounts stored as strings, doubles, integers or Decimal128.
// A missing or null field is zero; any other value that does not parse is an error.
func parseDecimalField(doc bson.M, fieldName string) (decimal.Decimal, error) {
	v, ok := doc[fieldName]
	if !ok || v == nil {
		return decimal.Zero, nil
	}
	switch val := v.(type) {
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %s: malformed decimal %q", fieldName, val)
		}
		return d, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, fmt.Errorf("field %s: non-finite value %v", fieldName, val)
		}
		return decimal.NewFromFloat(val), nil
	case int32:
		return decimal.NewFromInt32(val), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case primitive.Decimal128:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %s: malformed decimal %q", fieldName, val.String())
		}
		return d, nil
	}
	return decimal.Zero, fmt.Errorf("field %s: unsupported type %T", fieldName, v)
}

// requireDecimalField is parseDecimalField for fields every record must carry
func requireDecimalField(doc bson.M, fieldName string) (decimal.Decimal, error) {
	if v, ok := doc[fieldName]; !ok || v == nil {
		return decimal.Zero, fmt.Errorf("field %s: missing", fieldName)
	}
	return parseDecimalField(doc, fieldName)
}

func parseInt64Field(doc bson.M, fieldName string) int64 {
	if id, ok := toInt64(doc[fieldName]); ok {
		return id
	}
	return 0
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	}
	return 0, false
}

func parseStringField(doc bson.M, fieldName string) string {
	if str, ok := doc[fieldName].(string); ok {
		return str
	}
	return ""
}

func parseTimeField(doc bson.M, fieldName string) time.Time {
	switch val := doc[fieldName].(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case time.Time:
		return val.UTC()
	}
	return time.Time{}
}
