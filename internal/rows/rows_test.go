package rows

import "testing"

func TestMovieRoundTrip(t *testing.T) {
	in := Movie{MovieID: "tt000123", Title: "The Matrix"}
	buf := make([]byte, in.Size())
	in.MarshalInto(buf)

	out := Movie{}.FromBytes(buf)
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestMovieTruncatesOversizeField(t *testing.T) {
	long := make([]byte, TitleWidth+10)
	for i := range long {
		long[i] = 'x'
	}
	in := Movie{MovieID: "tt1", Title: string(long)}
	buf := make([]byte, in.Size())
	in.MarshalInto(buf)

	out := Movie{}.FromBytes(buf)
	if len(out.Title) != TitleWidth {
		t.Fatalf("expected title truncated to %d bytes, got %d", TitleWidth, len(out.Title))
	}
}

func TestWorkedOnRoundTrip(t *testing.T) {
	in := WorkedOn{MovieID: "tt0000123", PersonID: "nm0000456", Category: "director"}
	buf := make([]byte, in.Size())
	in.MarshalInto(buf)

	out := WorkedOn{}.FromBytes(buf)
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestPersonRoundTrip(t *testing.T) {
	in := Person{PersonID: "nm0000456", Name: "Lana Wachowski"}
	buf := make([]byte, in.Size())
	in.MarshalInto(buf)

	out := Person{}.FromBytes(buf)
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestWorkedOnKeyRoundTrip(t *testing.T) {
	in := WorkedOnKey{MovieID: "tt0000123", PersonID: "nm0000456"}
	buf := make([]byte, in.Size())
	in.MarshalInto(buf)

	out := WorkedOnKey{}.FromBytes(buf)
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestToTupleFieldOrder(t *testing.T) {
	m := Movie{MovieID: "tt1", Title: "Arrival"}
	if got := m.ToTuple(); len(got) != 2 || got[0] != "tt1" || got[1] != "Arrival" {
		t.Fatalf("Movie.ToTuple() = %v, want [tt1 Arrival]", got)
	}

	w := WorkedOn{MovieID: "tt1", PersonID: "nm1", Category: "director"}
	if got := w.ToTuple(); len(got) != 3 || got[2] != "director" {
		t.Fatalf("WorkedOn.ToTuple() = %v, want category in position 2", got)
	}

	p := Person{PersonID: "nm1", Name: "Denis Villeneuve"}
	if got := p.ToTuple(); len(got) != 2 || got[1] != "Denis Villeneuve" {
		t.Fatalf("Person.ToTuple() = %v, want name in position 1", got)
	}
}

func TestFixedWidthConstantsMatchSpec(t *testing.T) {
	cases := map[string]int{
		"movieId":  MovieIDWidth,
		"title":    TitleWidth,
		"personId": PersonIDWidth,
		"category": CategoryWidth,
		"name":     NameWidth,
	}
	want := map[string]int{
		"movieId":  9,
		"title":    30,
		"personId": 10,
		"category": 20,
		"name":     105,
	}
	for field, got := range cases {
		if got != want[field] {
			t.Errorf("width of %s = %d, want %d", field, got, want[field])
		}
	}
}
