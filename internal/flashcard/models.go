package flashcard

type Deck struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type Flashcard struct {
	ID        string `json:"id"`
	DeckID    string `json:"deck_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	CreatedAt int64  `json:"created_at,omitempty"`
}
