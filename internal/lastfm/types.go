package lastfm

// Tag is a Last.fm tag. Count is present for track tags and absent for
// artist tags.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
	URL   string `json:"url,omitempty"`
}

// tagsResponse covers both track.getTopTags and artist.getTopTags.
type tagsResponse struct {
	TopTags struct {
		Tag []Tag `json:"tag"`
	} `json:"toptags"`
}

type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
