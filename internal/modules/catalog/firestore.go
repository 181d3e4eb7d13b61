package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/georgemunganga/supply-backend/internal/apperr"
)

const productsCollection = "products"

type productDocument struct {
	Category     string          `firestore:"category"`
	Name         string          `firestore:"name"`
	Description  string          `firestore:"description"`
	ImageRef     string          `firestore:"imageRef"`
	BaseStock    int             `firestore:"baseStock"`
	OptionGroups []groupDocument `firestore:"optionGroups"`
	Version      int64           `firestore:"version"`
	CreatedAt    time.Time       `firestore:"createdAt"`
	UpdatedAt    time.Time       `firestore:"updatedAt"`
}

type groupDocument struct {
	Name   string          `firestore:"name"`
	Values []valueDocument `firestore:"values"`
}

type valueDocument struct {
	Label string `firestore:"label"`
	Stock int    `firestore:"stock"`
}

func newProductDocument(p *Product) productDocument {
	doc := productDocument{
		Category:    p.Category,
		Name:        p.Name,
		Description: p.Description,
		ImageRef:    p.ImageRef,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
	switch s := p.Stock.(type) {
	case SimpleStock:
		doc.BaseStock = s.Count
	case VariantStock:
		for _, g := range s.Groups {
			gd := groupDocument{Name: g.Name}
			for _, v := range g.Values {
				gd.Values = append(gd.Values, valueDocument(v))
			}
			doc.OptionGroups = append(doc.OptionGroups, gd)
		}
	}
	return doc
}

func (d productDocument) toDomain(id string) *Product {
	var groups []OptionGroup
	for _, g := range d.OptionGroups {
		og := OptionGroup{Name: g.Name}
		for _, v := range g.Values {
			og.Values = append(og.Values, OptionValue(v))
		}
		groups = append(groups, og)
	}
	return &Product{
		ID:          id,
		Category:    d.Category,
		Name:        d.Name,
		Description: d.Description,
		ImageRef:    d.ImageRef,
		Stock:       ModeFor(d.BaseStock, groups),
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type firestoreRepo struct{ client *firestore.Client }

// NewFirestoreRepository stores products as documents of the "products"
// collection. Conditional updates run inside a Firestore transaction.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepo{client: client}
}

func (r *firestoreRepo) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(productsCollection).Doc(id)
}

func (r *firestoreRepo) Create(ctx context.Context, p *Product) error {
	doc := newProductDocument(p)
	doc.Version = 1
	if _, err := r.doc(p.ID).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create product %s: %w", p.ID, err)
	}
	p.Version = 1
	return nil
}

func (r *firestoreRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, apperr.NotFound("product", id)
		}
		return nil, err
	}
	var doc productDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *firestoreRepo) List(ctx context.Context, f Filter) ([]*Product, error) {
	query := r.client.Collection(productsCollection).Query
	if f.Category != "" {
		query = query.Where("category", "==", f.Category)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var products []*Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		products = append(products, doc.toDomain(snap.Ref.ID))
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, nil
}

func (r *firestoreRepo) Update(ctx context.Context, p *Product) error {
	ref := r.doc(p.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return apperr.NotFound("product", p.ID)
			}
			return err
		}
		var stored productDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("decode product %s: %w", p.ID, err)
		}
		if stored.Version != p.Version {
			return ErrVersionConflict
		}
		doc := newProductDocument(p)
		doc.Version = p.Version + 1
		return tx.Set(ref, doc)
	})
	if err != nil {
		return err
	}
	p.Version++
	return nil
}

func (r *firestoreRepo) Delete(ctx context.Context, id string) error {
	ref := r.doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return apperr.NotFound("product", id)
			}
			return err
		}
		return tx.Delete(ref)
	})
}
