package models

// Response is the envelope every API endpoint writes.
type Response struct {
	Success    bool              `json:"success"`
	Data       interface{}       `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
	RequestID  string            `json:"requestId,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// Event is pushed to a user's live channel.
type Event struct {
	Type     string `json:"type"`
	Resource string `json:"resource"`
	Method   string `json:"method,omitempty"`
	Path     string `json:"path,omitempty"`
}

const EventInvalidate = "invalidate"

// Resources named in invalidate events.
const (
	ResourceVideos    = "videos"
	ResourcePlaylists = "playlists"
	ResourceNotes     = "notes"
	ResourceHistory   = "history"
	ResourceTags      = "tags"
)
