package dto

type PublishChangelogRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type ChangelogEntryResponse struct {
	EntryID     string `json:"entryId"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	PublishedAt string `json:"publishedAt"`
}

type ListChangelogResponse struct {
	Entries []ChangelogEntryResponse `json:"entries"`
}
