// Package rows defines the fixed-width, zero-padded record encodings stored
// in minidb's heap files: Movie, WorkedOn, Person, and the narrower
// WorkedOnKey projection used by the join materialization step.
//
// Every row type has a fixed, compile-time-known byte width. Fields shorter
// than their slot are zero-padded on write and trimmed at the first zero
// byte on read, matching the on-disk layout produced by the original IMDB
// TSV ingestion.
package rows

import "bytes"

// Field widths, in bytes. These are wire-format constants: changing them
// changes the on-disk layout of every heap file.
const (
	MovieIDWidth  = 9
	TitleWidth    = 30
	PersonIDWidth = 10
	CategoryWidth = 20
	NameWidth     = 105
)

// Row is implemented by every fixed-width record type T: it knows its own
// encoded size, can marshal itself by value, and can reconstruct a T from
// its wire bytes. FromBytes returns T by value rather than mutating through
// a pointer so that T itself (not *T) satisfies the constraint — required
// because page.Page[R] stores and copies R by value.
type Row[T any] interface {
	// Size returns the fixed encoded width of the row, in bytes.
	Size() int
	// MarshalInto writes the row's encoding into dst, which must be at
	// least Size() bytes long.
	MarshalInto(dst []byte)
	// FromBytes decodes a T out of src, which must be at least Size()
	// bytes long.
	FromBytes(src []byte) T
}

// Movie is the Movie(movieId, title) relation.
type Movie struct {
	MovieID string
	Title   string
}

func (Movie) Size() int { return MovieIDWidth + TitleWidth }

func (m Movie) MarshalInto(dst []byte) {
	putFixed(dst[:MovieIDWidth], m.MovieID)
	putFixed(dst[MovieIDWidth:MovieIDWidth+TitleWidth], m.Title)
}

func (Movie) FromBytes(src []byte) Movie {
	return Movie{
		MovieID: getFixed(src[:MovieIDWidth]),
		Title:   getFixed(src[MovieIDWidth : MovieIDWidth+TitleWidth]),
	}
}

// ToTuple returns the row as a (movieId, title) field vector, the wire
// format operators pass between each other.
func (m Movie) ToTuple() []string { return []string{m.MovieID, m.Title} }

// WorkedOn is the WorkedOn(movieId, personId, category) relation.
type WorkedOn struct {
	MovieID  string
	PersonID string
	Category string
}

func (WorkedOn) Size() int { return MovieIDWidth + PersonIDWidth + CategoryWidth }

func (w WorkedOn) MarshalInto(dst []byte) {
	putFixed(dst[:MovieIDWidth], w.MovieID)
	putFixed(dst[MovieIDWidth:MovieIDWidth+PersonIDWidth], w.PersonID)
	putFixed(dst[MovieIDWidth+PersonIDWidth:MovieIDWidth+PersonIDWidth+CategoryWidth], w.Category)
}

func (WorkedOn) FromBytes(src []byte) WorkedOn {
	return WorkedOn{
		MovieID:  getFixed(src[:MovieIDWidth]),
		PersonID: getFixed(src[MovieIDWidth : MovieIDWidth+PersonIDWidth]),
		Category: getFixed(src[MovieIDWidth+PersonIDWidth : MovieIDWidth+PersonIDWidth+CategoryWidth]),
	}
}

// ToTuple returns the row as a (movieId, personId, category) field vector.
func (w WorkedOn) ToTuple() []string { return []string{w.MovieID, w.PersonID, w.Category} }

// Person is the Person(personId, name) relation.
type Person struct {
	PersonID string
	Name     string
}

func (Person) Size() int { return PersonIDWidth + NameWidth }

func (p Person) MarshalInto(dst []byte) {
	putFixed(dst[:PersonIDWidth], p.PersonID)
	putFixed(dst[PersonIDWidth:PersonIDWidth+NameWidth], p.Name)
}

func (Person) FromBytes(src []byte) Person {
	return Person{
		PersonID: getFixed(src[:PersonIDWidth]),
		Name:     getFixed(src[PersonIDWidth : PersonIDWidth+NameWidth]),
	}
}

// ToTuple returns the row as a (personId, name) field vector.
func (p Person) ToTuple() []string { return []string{p.PersonID, p.Name} }

// WorkedOnKey is the (movieId, personId) projection materialized by the
// join's WorkedOn-side operator, narrower than WorkedOn so more entries
// fit per page.
type WorkedOnKey struct {
	MovieID  string
	PersonID string
}

func (WorkedOnKey) Size() int { return MovieIDWidth + PersonIDWidth }

func (k WorkedOnKey) MarshalInto(dst []byte) {
	putFixed(dst[:MovieIDWidth], k.MovieID)
	putFixed(dst[MovieIDWidth:MovieIDWidth+PersonIDWidth], k.PersonID)
}

func (WorkedOnKey) FromBytes(src []byte) WorkedOnKey {
	return WorkedOnKey{
		MovieID:  getFixed(src[:MovieIDWidth]),
		PersonID: getFixed(src[MovieIDWidth : MovieIDWidth+PersonIDWidth]),
	}
}

// ToTuple returns the row as a (movieId, personId) field vector.
func (k WorkedOnKey) ToTuple() []string { return []string{k.MovieID, k.PersonID} }

// TitleKey is the (title, personId) projection the second join stage
// carries its left (movie⋈workedOn) side in, narrower than re-emitting the
// full Movie row plus a duplicated movieId on every block page.
type TitleKey struct {
	Title    string
	PersonID string
}

func (TitleKey) Size() int { return TitleWidth + PersonIDWidth }

func (k TitleKey) MarshalInto(dst []byte) {
	putFixed(dst[:TitleWidth], k.Title)
	putFixed(dst[TitleWidth:TitleWidth+PersonIDWidth], k.PersonID)
}

func (TitleKey) FromBytes(src []byte) TitleKey {
	return TitleKey{
		Title:    getFixed(src[:TitleWidth]),
		PersonID: getFixed(src[TitleWidth : TitleWidth+PersonIDWidth]),
	}
}

// ToTuple returns the row as a (title, personId) field vector.
func (k TitleKey) ToTuple() []string { return []string{k.Title, k.PersonID} }

// putFixed zero-pads s into dst, truncating it if it overflows the slot.
func putFixed(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

// getFixed trims a fixed-width slot at its first zero byte.
func getFixed(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return string(src[:i])
	}
	return string(src)
}
