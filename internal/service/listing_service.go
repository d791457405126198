package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/internal/repository"
)

type ListingService struct {
	listings repository.ListingRepository
}

func NewListingService(listings repository.ListingRepository) *ListingService {
	return &ListingService{listings: listings}
}

type CreateListingRequest struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Price    int64  `json:"price"`
}

func (r *CreateListingRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Location = strings.TrimSpace(r.Location)
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	return nil
}

func (s *ListingService) Create(ctx context.Context, owner *domain.Account, req *CreateListingRequest) (*domain.Listing, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		OwnerID:  owner.ID,
		Title:    req.Title,
		Location: req.Location,
		Price:    req.Price,
		IsActive: true,
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, mapStorageErr(err)
	}
	return listing, nil
}

func (s *ListingService) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if listing == nil {
		return nil, domain.ErrNotFound
	}
	return listing, nil
}

func (s *ListingService) ListActive(ctx context.Context, limit, offset int) ([]*domain.Listing, error) {
	listings, err := s.listings.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return listings, nil
}

func (s *ListingService) ListForOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Listing, error) {
	listings, err := s.listings.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return listings, nil
}

// SetActive hides or restores a listing. Only the listing's owner or an
// admin may change it.
func (s *ListingService) SetActive(ctx context.Context, actor *domain.Account, id int64, active bool) error {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return mapStorageErr(err)
	}
	if listing == nil {
		return domain.ErrNotFound
	}
	if !canManage(actor, listing.OwnerID) {
		return domain.ErrUnauthorized
	}
	return mapStorageErr(s.listings.SetActive(ctx, id, active))
}
