// Package mongo stores everything in MongoDB. Balance and ticket counters are
// changed with conditional $inc updates so concurrent requests cannot lose
// updates or overdraw a wallet.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection        = "users"
	postsCollection        = "posts"
	walletsCollection      = "wallets"
	transactionsCollection = "transactions"
	ticketsCollection      = "tickets"
	supportCollection      = "supportmessages"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, pings the deployment and returns a store bound to dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Infof("Connected to MongoDB: %s", dbName)
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		walletsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		postsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "endDate", Value: 1}}},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}}},
		},
		ticketsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		supportCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter any) (*T, error) {
	var out T
	if err := c.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter any, sort bson.D) ([]T, error) {
	cursor, err := c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func insert(ctx context.Context, c *mongo.Collection, doc any) error {
	if _, err := c.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

// ----------------------
// Users
// ----------------------

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	return insert(ctx, s.coll(usersCollection), u)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, s.coll(usersCollection), bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.coll(usersCollection), bson.M{"email": strings.ToLower(email)})
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, s.coll(usersCollection), bson.M{}, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) UpdateUserRole(ctx context.Context, id, role string) (*models.User, error) {
	var u models.User
	err := s.coll(usersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.coll(usersCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ----------------------
// Posts
// ----------------------

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	return insert(ctx, s.coll(postsCollection), p)
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return findOne[models.Post](ctx, s.coll(postsCollection), bson.M{"_id": id})
}

func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	return findAll[models.Post](ctx, s.coll(postsCollection), bson.M{}, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	var p models.Post
	err := s.coll(postsCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": postFields(patch)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// postFields maps a patch onto $set fields; ticketsLeft is only written when
// the admin set it.
func postFields(patch models.PostPatch) bson.M {
	set := bson.M{"updatedAt": patch.UpdatedAt}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Slug != nil {
		set["slug"] = *patch.Slug
	}
	if patch.Value != nil {
		set["value"] = *patch.Value
	}
	if patch.TicketsLeft != nil {
		set["ticketsLeft"] = *patch.TicketsLeft
	}
	if patch.TicketPrice != nil {
		set["ticketPrice"] = *patch.TicketPrice
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	if patch.EndDate != nil {
		set["endDate"] = *patch.EndDate
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Featured != nil {
		set["featured"] = *patch.Featured
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	return set
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.coll(postsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func expiredFilter(now time.Time) bson.M {
	return bson.M{
		"status":  models.PostOpen,
		"endDate": bson.M{"$lt": now, "$gt": time.Time{}},
	}
}

func (s *Store) CloseExpiredPosts(ctx context.Context, now time.Time) ([]models.Post, error) {
	expired, err := findAll[models.Post](ctx, s.coll(postsCollection), expiredFilter(now), bson.D{{Key: "endDate", Value: 1}})
	if err != nil || len(expired) == 0 {
		return nil, err
	}

	ids := make([]string, 0, len(expired))
	for i := range expired {
		ids = append(ids, expired[i].ID)
		expired[i].Status = models.PostClosed
		expired[i].UpdatedAt = now
	}
	_, err = s.coll(postsCollection).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "status": models.PostOpen},
		bson.M{"$set": bson.M{"status": models.PostClosed, "updatedAt": now}},
	)
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// ----------------------
// Wallets
// ----------------------

func (s *Store) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	return findOne[models.Wallet](ctx, s.coll(walletsCollection), bson.M{"user": userID})
}

// Credit never pushes a balance past models.MaxAmount. If the ledger entry
// cannot be written the credit is reversed.
func (s *Store) Credit(ctx context.Context, m store.WalletMutation) (*models.Wallet, error) {
	if m.Amount < 0 || m.Amount > models.MaxAmount {
		return nil, fmt.Errorf("credit wallet: %w", models.ErrAmountOutOfRange)
	}
	filter := bson.M{"user": m.UserID, "balance": bson.M{"$lte": models.MaxAmount - m.Amount}}
	update := bson.M{
		"$inc":         bson.M{"balance": m.Amount},
		"$set":         bson.M{"updatedAt": m.Timestamp},
		"$setOnInsert": bson.M{"_id": uuid.NewString(), "createdAt": m.Timestamp},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var w models.Wallet
	err := s.coll(walletsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&w)
	if mongo.IsDuplicateKeyError(err) {
		// Either two first deposits raced on the upsert, or the wallet exists
		// but is too full for the balance filter to match.
		existing, gerr := s.GetWallet(ctx, m.UserID)
		if gerr != nil {
			return nil, fmt.Errorf("credit wallet: %w", gerr)
		}
		if existing.Balance > models.MaxAmount-m.Amount {
			return nil, fmt.Errorf("credit wallet: %w", models.ErrAmountOutOfRange)
		}
		err = s.coll(walletsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&w)
	}
	if err != nil {
		return nil, fmt.Errorf("credit wallet: %w", err)
	}

	if err := s.recordEntry(ctx, m.Entry, w.Balance, m.Timestamp); err != nil {
		s.adjustBalance(ctx, m.UserID, -m.Amount)
		return nil, err
	}
	return &w, nil
}

func (s *Store) Debit(ctx context.Context, m store.WalletMutation) (*models.Wallet, error) {
	w, err := s.debit(ctx, m.UserID, m.Amount, m.Timestamp)
	if err != nil {
		return nil, err
	}
	if err := s.recordEntry(ctx, m.Entry, w.Balance, m.Timestamp); err != nil {
		s.adjustBalance(ctx, m.UserID, m.Amount)
		return nil, err
	}
	return w, nil
}

func (s *Store) debit(ctx context.Context, userID string, amount models.Amount, at time.Time) (*models.Wallet, error) {
	var w models.Wallet
	err := s.coll(walletsCollection).FindOneAndUpdate(ctx,
		bson.M{"user": userID, "balance": bson.M{"$gte": amount}},
		bson.M{"$inc": bson.M{"balance": -amount}, "$set": bson.M{"updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrInsufficientFunds
	}
	if err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}
	return &w, nil
}

// adjustBalance undoes a balance change whose follow-up writes failed. It
// runs even when ctx is already cancelled.
func (s *Store) adjustBalance(ctx context.Context, userID string, delta models.Amount) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.coll(walletsCollection).UpdateOne(ctx, bson.M{"user": userID}, bson.M{"$inc": bson.M{"balance": delta}}); err != nil {
		logger.Errorf("compensate wallet %s by %s: %v", userID, delta.String(), err)
	}
}

func (s *Store) releaseTickets(ctx context.Context, postID string, qty int) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.coll(postsCollection).UpdateOne(ctx, bson.M{"_id": postID}, bson.M{"$inc": bson.M{"ticketsLeft": qty}}); err != nil {
		logger.Errorf("release %d tickets on post %s: %v", qty, postID, err)
	}
}

func (s *Store) recordEntry(ctx context.Context, entry models.Transaction, balance models.Amount, at time.Time) error {
	entry.BalanceAfter = balance
	entry.CreatedAt = at
	if err := insert(ctx, s.coll(transactionsCollection), entry); err != nil {
		return fmt.Errorf("record %s transaction: %w", entry.Type, err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return findAll[models.Transaction](ctx, s.coll(transactionsCollection), bson.M{"user": userID}, bson.D{{Key: "date", Value: -1}})
}

// ----------------------
// Tickets
// ----------------------

// PurchaseTickets reserves tickets first, then debits the wallet, then
// writes the ticket and ledger entry. Any failed step undoes the earlier ones.
// Standalone deployments have no multi-document transactions, so this
// compensates instead.
func (s *Store) PurchaseTickets(ctx context.Context, p store.Purchase) (*models.Post, *models.Wallet, error) {
	qty := p.Ticket.Quantity
	posts := s.coll(postsCollection)

	var post models.Post
	err := posts.FindOneAndUpdate(ctx,
		bson.M{
			"_id":         p.Ticket.PostID,
			"status":      models.PostOpen,
			"ticketsLeft": bson.M{"$gte": qty},
			"$or": bson.A{
				bson.M{"endDate": bson.M{"$gt": p.Now}},
				bson.M{"endDate": time.Time{}},
			},
		},
		bson.M{"$inc": bson.M{"ticketsLeft": -qty}, "$set": bson.M{"updatedAt": p.Now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, s.purchaseRejection(ctx, p)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reserve tickets: %w", err)
	}

	w, err := s.debit(ctx, p.Ticket.UserID, p.Ticket.Total, p.Now)
	if err != nil {
		s.releaseTickets(ctx, post.ID, qty)
		return nil, nil, err
	}

	ticket := p.Ticket
	ticket.CreatedAt = p.Now
	if err := insert(ctx, s.coll(ticketsCollection), ticket); err != nil {
		s.adjustBalance(ctx, ticket.UserID, ticket.Total)
		s.releaseTickets(ctx, post.ID, qty)
		return nil, nil, fmt.Errorf("record ticket: %w", err)
	}
	if err := s.recordEntry(ctx, p.Entry, w.Balance, p.Now); err != nil {
		if _, derr := s.coll(ticketsCollection).DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": ticket.ID}); derr != nil {
			logger.Errorf("remove ticket %s: %v", ticket.ID, derr)
		}
		s.adjustBalance(ctx, ticket.UserID, ticket.Total)
		s.releaseTickets(ctx, post.ID, qty)
		return nil, nil, err
	}
	return &post, w, nil
}

// purchaseRejection works out why the conditional reservation matched nothing.
func (s *Store) purchaseRejection(ctx context.Context, p store.Purchase) error {
	post, err := s.GetPost(ctx, p.Ticket.PostID)
	if err != nil {
		return err
	}
	if !post.Purchasable(p.Now) {
		return store.ErrPostClosed
	}
	return store.ErrSoldOut
}

func (s *Store) ListTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	return findAll[models.Ticket](ctx, s.coll(ticketsCollection), bson.M{"user": userID}, bson.D{{Key: "createdAt", Value: -1}})
}

// ----------------------
// Support
// ----------------------

func (s *Store) CreateSupportMessage(ctx context.Context, m *models.SupportMessage) error {
	return insert(ctx, s.coll(supportCollection), m)
}

func (s *Store) GetSupportMessage(ctx context.Context, id string) (*models.SupportMessage, error) {
	return findOne[models.SupportMessage](ctx, s.coll(supportCollection), bson.M{"_id": id})
}

func (s *Store) ListSupportMessages(ctx context.Context, userID string) ([]models.SupportMessage, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user"] = userID
	}
	return findAll[models.SupportMessage](ctx, s.coll(supportCollection), filter, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) RespondSupportMessage(ctx context.Context, id, response string, at time.Time) (*models.SupportMessage, error) {
	var m models.SupportMessage
	err := s.coll(supportCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"adminResponse": response, "status": models.SupportAnswered, "respondedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
