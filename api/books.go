package api

import (
	"context"
	"net/http"
	"time"
)

// Book is a book in the GoodShelf catalog.
type Book struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	ISBN            string     `json:"isbn,omitempty"`
	Description     string     `json:"description,omitempty"`
	PublicationYear int        `json:"publicationYear,omitempty"`
	CoverImageURL   string     `json:"coverImageUrl,omitempty"`
	Author          *Author    `json:"author,omitempty"`
	Categories      []Category `json:"categories,omitempty"`
	AverageRating   float64    `json:"averageRating,omitempty"`
	ReviewCount     int64      `json:"reviewCount,omitempty"`
	CreatedAt       time.Time  `json:"createdAt,omitempty"`
}

// Author of one or more books.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio,omitempty"`
}

// Category a book can be filed under.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListBooksOptions filters and pages the book listing.
type ListBooksOptions struct {
	PageOptions
	CategoryID int64  `url:"categoryId,omitempty"`
	AuthorID   int64  `url:"authorId,omitempty"`
	SearchTerm string `url:"searchTerm,omitempty"`
}

// BookRequest is the payload for creating or updating a book. Admin only;
// the server enforces the role, the client just relays the result.
type BookRequest struct {
	Title           string  `json:"title"`
	ISBN            string  `json:"isbn,omitempty"`
	Description     string  `json:"description,omitempty"`
	PublicationYear int     `json:"publicationYear,omitempty"`
	CoverImageURL   string  `json:"coverImageUrl,omitempty"`
	AuthorID        int64   `json:"authorId"`
	CategoryIDs     []int64 `json:"categoryIds,omitempty"`
}

// ListBooks returns a page of the catalog, filtered per opts.
func (c *Client) ListBooks(ctx context.Context, opts *ListBooksOptions) (*Page[Book], error) {
	out := &Page[Book]{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/books"), opts, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBook returns a single book.
func (c *Client) GetBook(ctx context.Context, id int64) (*Book, error) {
	out := &Book{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/books/%d", id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBook adds a book to the catalog.
func (c *Client) CreateBook(ctx context.Context, req *BookRequest) (*Book, error) {
	out := &Book{}
	if err := c.do(ctx, http.MethodPost, c.resourceURL("/books"), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBook replaces a book's details.
func (c *Client) UpdateBook(ctx context.Context, id int64, req *BookRequest) (*Book, error) {
	out := &Book{}
	if err := c.do(ctx, http.MethodPut, c.resourceURL("/books/%d", id), nil, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBook removes a book from the catalog (soft delete server-side).
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, c.resourceURL("/books/%d", id), nil, nil, nil)
}

// ListBooksByAuthor returns a page of an author's books.
func (c *Client) ListBooksByAuthor(ctx context.Context, authorID int64, opts *PageOptions) (*Page[Book], error) {
	out := &Page[Book]{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/authors/%d/books", authorID), opts, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAuthors returns all authors, for form dropdowns.
func (c *Client) ListAuthors(ctx context.Context) ([]Author, error) {
	var out []Author
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/authors"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAuthor returns a single author.
func (c *Client) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	out := &Author{}
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/authors/%d", id), nil, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories returns all categories, for filters and forms.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.do(ctx, http.MethodGet, c.resourceURL("/categories"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
