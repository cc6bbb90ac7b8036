package model

// DuplicateCandidate is a pair of entities a heuristic considers the same.
// IDA sorts before IDB.
type DuplicateCandidate struct {
	IDA        string  `json:"id_a"`
	IDB        string  `json:"id_b"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	NameA      string  `json:"-"`
	NameB      string  `json:"-"`
}

// Suggestion is a duplicate candidate prepared for operator review.
type Suggestion struct {
	Type       string    `json:"type"`
	Entities   [2]string `json:"entities"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Preview    string    `json:"preview"`
}
