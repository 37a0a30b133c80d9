package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"saborlimeno/gorest/models"
)

const opTimeout = 5 * time.Second

// Collection names.
const (
	UsersCollection    = "users"
	DishesCollection   = "dishes"
	OrdersCollection   = "orders"
	PaymentsCollection = "payments"
	ReceiptsCollection = "receipts"
	CountersCollection = "counters"
)

// Mongo implements Store on a MongoDB database. Documents are addressed by
// their integer "id" field, never by _id.
type Mongo struct {
	Users    *mongo.Collection
	Dishes   *mongo.Collection
	Orders   *mongo.Collection
	Payments *mongo.Collection
	Receipts *mongo.Collection
	Counters *mongo.Collection
}

var _ Store = (*Mongo)(nil)

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		Users:    db.Collection(UsersCollection),
		Dishes:   db.Collection(DishesCollection),
		Orders:   db.Collection(OrdersCollection),
		Payments: db.Collection(PaymentsCollection),
		Receipts: db.Collection(ReceiptsCollection),
		Counters: db.Collection(CountersCollection),
	}
}

// EnsureIndexes creates the unique indexes the repositories rely on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{m.Users, []mongo.IndexModel{unique(bson.D{{Key: "id", Value: 1}}), unique(bson.D{{Key: "email", Value: 1}})}},
		{m.Dishes, []mongo.IndexModel{unique(bson.D{{Key: "id", Value: 1}})}},
		{m.Orders, []mongo.IndexModel{
			unique(bson.D{{Key: "id", Value: 1}}),
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		}},
		{m.Payments, []mongo.IndexModel{{Keys: bson.D{{Key: "order_id", Value: 1}}}}},
		{m.Receipts, []mongo.IndexModel{unique(bson.D{{Key: "id", Value: 1}}), unique(bson.D{{Key: "orderId", Value: 1}})}},
	}
	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateMany(ctx, s.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", s.coll.Name(), err)
		}
	}
	return nil
}

func (m *Mongo) NextSequence(ctx context.Context, name string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc struct {
		Seq int `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.Counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return doc.Seq, nil
}

// Users

func (m *Mongo) InsertUser(ctx context.Context, u *models.User) error {
	return insert(ctx, m.Users, u)
}

func (m *Mongo) FindUserByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	if err := findOne(ctx, m.Users, bson.M{"id": id}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *Mongo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := findOne(ctx, m.Users, bson.M{"email": email}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *Mongo) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := findAll(ctx, m.Users, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}), &users)
	return users, err
}

func (m *Mongo) UpdateUser(ctx context.Context, u *models.User) error {
	return updateByID(ctx, m.Users, u.ID, bson.M{
		"nombre":    u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"categoria": u.Category,
	})
}

func (m *Mongo) CountClientsByCategory(ctx context.Context) (map[models.Category]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := m.Users.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"role": models.RoleClient}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$categoria"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate clients: %w", err)
	}
	defer cursor.Close(ctx)

	out := map[models.Category]int64{}
	for cursor.Next(ctx) {
		var row struct {
			Category models.Category `bson:"_id"`
			Count    int64           `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode client count: %w", err)
		}
		out[row.Category] = row.Count
	}
	return out, cursor.Err()
}

// Dishes

func (m *Mongo) InsertDish(ctx context.Context, d *models.Dish) error {
	return insert(ctx, m.Dishes, d)
}

func (m *Mongo) FindDish(ctx context.Context, id int) (*models.Dish, error) {
	var d models.Dish
	if err := findOne(ctx, m.Dishes, bson.M{"id": id}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (m *Mongo) ListDishes(ctx context.Context, onlyAvailable bool) ([]models.Dish, error) {
	filter := bson.M{}
	if onlyAvailable {
		filter["disponible"] = true
	}
	dishes := []models.Dish{}
	err := findAll(ctx, m.Dishes, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}), &dishes)
	return dishes, err
}

func (m *Mongo) UpdateDish(ctx context.Context, d *models.Dish) error {
	return updateByID(ctx, m.Dishes, d.ID, bson.M{
		"name":        d.Name,
		"price":       d.Price,
		"category":    d.Category,
		"description": d.Description,
		"ingredients": d.Ingredients,
		"image":       d.Image,
		"disponible":  d.Available,
	})
}

// Orders

func (m *Mongo) InsertOrder(ctx context.Context, o *models.Order) error {
	return insert(ctx, m.Orders, o)
}

func (m *Mongo) FindOrder(ctx context.Context, id int) (*models.Order, error) {
	var o models.Order
	if err := findOne(ctx, m.Orders, bson.M{"id": id}, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "id", Value: -1}}

func (m *Mongo) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	err := findAll(ctx, m.Orders, bson.M{}, options.Find().SetSort(newestFirst), &orders)
	return orders, err
}

func (m *Mongo) ListOrdersByUser(ctx context.Context, userID int) ([]models.Order, error) {
	orders := []models.Order{}
	err := findAll(ctx, m.Orders, bson.M{"userId": userID}, options.Find().SetSort(newestFirst), &orders)
	return orders, err
}

func (m *Mongo) LatestOrderByUser(ctx context.Context, userID int) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var o models.Order
	err := m.Orders.FindOne(ctx, bson.M{"userId": userID}, options.FindOne().SetSort(newestFirst)).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (m *Mongo) ListOrdersByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	orders := []models.Order{}
	filter := bson.M{"status": bson.M{"$in": statuses}}
	err := findAll(ctx, m.Orders, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}), &orders)
	return orders, err
}

func (m *Mongo) UpdateOrderStatus(ctx context.Context, id int, status models.OrderStatus, driver string) error {
	set := bson.M{"status": status}
	if driver != "" {
		set["driver"] = driver
	}
	return updateByID(ctx, m.Orders, id, set)
}

func (m *Mongo) SalesSummary(ctx context.Context) (models.SalesSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var summary models.SalesSummary
	cursor, err := m.Orders.Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$ne", Value: bson.A{"$status", models.StatusCancelled}}},
					"$total",
					0,
				}},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return summary, fmt.Errorf("aggregate sales: %w", err)
	}
	defer cursor.Close(ctx)

	if cursor.Next(ctx) {
		var row struct {
			Total int64 `bson:"total"`
			Count int64 `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return summary, fmt.Errorf("decode sales: %w", err)
		}
		summary.TotalSales = row.Total
		summary.OrderCount = row.Count
	}
	return summary, cursor.Err()
}

func (m *Mongo) CountOrdersByStatus(ctx context.Context, statuses ...models.OrderStatus) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return m.Orders.CountDocuments(ctx, bson.M{"status": bson.M{"$in": statuses}})
}

// Payments

func (m *Mongo) InsertPayment(ctx context.Context, p *models.Payment) error {
	return insert(ctx, m.Payments, p)
}

func (m *Mongo) ListPaymentsByOrder(ctx context.Context, orderID int) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := findAll(ctx, m.Payments, bson.M{"order_id": orderID}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}), &payments)
	return payments, err
}

// Receipts

func (m *Mongo) InsertReceipt(ctx context.Context, r *models.Receipt) error {
	return insert(ctx, m.Receipts, r)
}

func (m *Mongo) FindReceipt(ctx context.Context, id int) (*models.Receipt, error) {
	var r models.Receipt
	if err := findOne(ctx, m.Receipts, bson.M{"id": id}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *Mongo) FindReceiptByOrder(ctx context.Context, orderID int) (*models.Receipt, error) {
	var r models.Receipt
	if err := findOne(ctx, m.Receipts, bson.M{"orderId": orderID}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// helpers

func insert(ctx context.Context, coll *mongo.Collection, doc interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	return nil
}

func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := coll.FindOne(ctx, filter).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	return nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return nil
}

func updateByID(ctx context.Context, coll *mongo.Collection, id int, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
