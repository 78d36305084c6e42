package store

// ChatSession is one conversation.
type ChatSession struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedTs int64  `json:"created_ts"`
	UpdatedTs int64  `json:"updated_ts"`
}

type FindChatSession struct {
	ID *int64
}

type UpdateChatSession struct {
	ID        int64
	Title     *string
	UpdatedTs *int64
}

type DeleteChatSession struct {
	ID int64
}
