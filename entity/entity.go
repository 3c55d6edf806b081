// Package entity defines the record shapes recordctl manages: notes, blog posts
// and ledger transactions.
package entity

// Note is a quick text note.
type Note struct {
	Title   string `json:"title" yaml:"title" validate:"required,max=120"`
	Content string `json:"content" yaml:"content" validate:"max=10000"`
}

// Post is a blog post.
type Post struct {
	Title   string `json:"title" yaml:"title" validate:"required,max=200"`
	Content string `json:"content" yaml:"content" validate:"required"`
}

// Transaction is a ledger entry. Positive amounts are credits, negative ones debits.
type Transaction struct {
	Name   string  `json:"name" yaml:"name" validate:"required,max=120"`
	Amount float64 `json:"amount" yaml:"amount" validate:"ne=0"`
}
