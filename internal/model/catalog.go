package model

import (
    "math"
    "time"
)

// Category groups titles by medium (film, book, music ...).  Slug is the
// public identifier used in URLs and in title payloads.
type Category struct {
    ID   uint64 // categories.id
    Name string // categories.name
    Slug string // categories.slug
}

// Genre is attached to titles through the `title_genres` link table.
type Genre struct {
    ID   uint64 // genres.id
    Name string // genres.name
    Slug string // genres.slug
}

// Title is a catalog entry.  Year and Description are nullable.  Category is
// nil when the title has none or its category was deleted.  Rating is never
// stored: repositories fill it from the title's reviews on every read and
// leave it nil when there are none.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name.
//  Year        – release year in [0, 2100], optional.
//  Description – optional long text.
//  Category    – owning category (nullable FK, SET NULL on delete).
//  Genres      – linked genres ordered by id.
//  Rating      – rounded mean review score, computed per read.
type Title struct {
    ID          uint64
    Name        string
    Year        *int
    Description *string
    Category    *Category
    Genres      []Genre
    Rating      *float64
}

// Review is a scored opinion on a title.  A user may review a title once.
type Review struct {
    ID             uint64    // reviews.id
    TitleID        uint64    // reviews.title_id
    AuthorID       uint64    // reviews.author_id
    AuthorUsername string    // users.username of the author
    Text           string    // reviews.text
    Score          int       // reviews.score (1..10)
    PubDate        time.Time // reviews.pub_date
}

// Comment is a reply to a review.
type Comment struct {
    ID             uint64    // comments.id
    ReviewID       uint64    // comments.review_id
    AuthorID       uint64    // comments.author_id
    AuthorUsername string    // users.username of the author
    Text           string    // comments.text
    PubDate        time.Time // comments.pub_date
}

// Score bounds for reviews.
const (
    MinScore = 1
    MaxScore = 10
)

// Year bounds for titles.
const (
    MinYear = 0
    MaxYear = 2100
)

// RoundRating rounds a mean score to one decimal place, halves away from
// zero.  A nil mean (no reviews) stays nil.
func RoundRating(mean *float64) *float64 {
    if mean == nil {
        return nil
    }
    r := math.Round(*mean*10) / 10
    return &r
}
