package models

import "time"

// ExternalVideo is a metadata record returned by the YouTube Data API, before it is saved.
type ExternalVideo struct {
	YouTubeID       string     `json:"youtubeId"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Thumbnail       string     `json:"thumbnail"`
	Duration        string     `json:"duration"`
	DurationSeconds int        `json:"durationSeconds"`
	PublishedAt     *time.Time `json:"publishedAt"`
	ChannelTitle    string     `json:"channelTitle"`
	ViewCount       int64      `json:"viewCount"`
	LikeCount       int64      `json:"likeCount"`
}

type SearchByTagsRequest struct {
	Tags       []string `json:"tags" validate:"required,min=1,max=20,dive,required"`
	MaxResults int      `json:"maxResults"`
}

type Recommendations struct {
	Tags   []string        `json:"tags"`
	Videos []ExternalVideo `json:"videos"`
}

type SaveRecommendationRequest struct {
	YouTubeID string   `json:"youtubeId" validate:"required,max=255"`
	Tags      []string `json:"tags" validate:"omitempty,max=50,dive,required,max=50"`
}
