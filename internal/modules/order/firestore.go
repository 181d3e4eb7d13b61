package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

const ordersCollection = "supplyOrders"

type orderDocument struct {
	OrderNumber      string            `firestore:"orderNumber"`
	RequesterID      string            `firestore:"requesterId"`
	RequesterName    string            `firestore:"requesterName"`
	ProductID        string            `firestore:"productId"`
	ProductName      string            `firestore:"productName"`
	ProductCategory  string            `firestore:"productCategory"`
	Quantity         int               `firestore:"quantity"`
	Selections       map[string]string `firestore:"selections"`
	RecipientName    string            `firestore:"recipientName"`
	RecipientContact string            `firestore:"recipientContact"`
	RecipientAddress string            `firestore:"recipientAddress"`
	Status           string            `firestore:"status"`
	CreatedAt        time.Time         `firestore:"createdAt"`
	UpdatedAt        time.Time         `firestore:"updatedAt"`
}

func newOrderDocument(o *Order) orderDocument {
	return orderDocument{
		OrderNumber:      o.OrderNumber,
		RequesterID:      o.Requester.ID,
		RequesterName:    o.Requester.Name,
		ProductID:        o.ProductID,
		ProductName:      o.ProductName,
		ProductCategory:  o.ProductCategory,
		Quantity:         o.Quantity,
		Selections:       o.Selections,
		RecipientName:    o.Recipient.Name,
		RecipientContact: o.Recipient.Contact,
		RecipientAddress: o.Recipient.Address,
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt.UTC(),
		UpdatedAt:        o.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) *Order {
	selections := d.Selections
	if selections == nil {
		selections = map[string]string{}
	}
	return &Order{
		ID:              id,
		OrderNumber:     d.OrderNumber,
		Requester:       Requester{ID: d.RequesterID, Name: d.RequesterName},
		ProductID:       d.ProductID,
		ProductName:     d.ProductName,
		ProductCategory: d.ProductCategory,
		Quantity:        d.Quantity,
		Selections:      selections,
		Recipient:       Recipient{Name: d.RecipientName, Contact: d.RecipientContact, Address: d.RecipientAddress},
		Status:          Status(d.Status),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type firestoreRepo struct{ client *firestore.Client }

// NewFirestoreRepository stores orders in the "supplyOrders" collection.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepo{client: client}
}

func (r *firestoreRepo) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(ordersCollection).Doc(id)
}

func (r *firestoreRepo) CreateOrder(ctx context.Context, o *Order) error {
	if _, err := r.doc(o.ID).Create(ctx, newOrderDocument(o)); err != nil {
		return fmt.Errorf("create order %s: %w", o.ID, err)
	}
	return nil
}

func (r *firestoreRepo) GetOrderByID(ctx context.Context, id string) (*Order, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperr.NotFound("order", id)
		}
		return nil, err
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", id, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *firestoreRepo) ListOrders(ctx context.Context, f Filter) ([]*Order, error) {
	query := r.client.Collection(ordersCollection).Query
	if f.Status != "" {
		query = query.Where("status", "==", string(f.Status))
	}
	if f.RequesterID != "" {
		query = query.Where("requesterId", "==", f.RequesterID)
	}
	if f.ProductID != "" {
		query = query.Where("productId", "==", f.ProductID)
	}
	iter := query.OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var orders []*Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}
	return orders, nil
}

func (r *firestoreRepo) UpdateOrder(ctx context.Context, o *Order) error {
	_, err := r.doc(o.ID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(o.Status)},
		{Path: "updatedAt", Value: o.UpdatedAt.UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return apperr.NotFound("order", o.ID)
	}
	return err
}

func (r *firestoreRepo) DeleteOrder(ctx context.Context, id string) error {
	ref := r.doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return apperr.NotFound("order", id)
			}
			return err
		}
		return tx.Delete(ref)
	})
}
