package index

// Postings maps a document id to the number of times a term occurs in that
// document's title. Counts are always positive.
type Postings map[int]int

// Document is the contract a record must satisfy to be indexed. IndexTitle
// returns the indexed text and whether the record carries a title at all.
type Document interface {
	IndexTitle() (string, bool)
}

// Hit is a search result: the matched document, its id in the indexed
// collection and its relevance score.
type Hit[D Document] struct {
	DocID int
	Doc   D
	Score float64
}

// BuildStats summarises one Build call.
type BuildStats struct {
	Documents  int
	Terms      int
	Tokens     int
	Untitled   int
	Generation uint64
	Epoch      string
}

// Version identifies one build. Generation counts builds within a process;
// Epoch is unique across processes, so it is safe to key shared caches on.
type Version struct {
	Generation uint64
	Epoch      string
}
