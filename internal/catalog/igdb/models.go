package igdb

// Game is the raw IGDB game payload (fields we request).
type Game struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Summary          string `json:"summary"`
	FirstReleaseDate int64  `json:"first_release_date"` // unix seconds
	Cover            struct {
		ImageID string `json:"image_id"`
	} `json:"cover"`
	Platforms []struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
	} `json:"platforms"`
	AlternativeNames []struct {
		Name string `json:"name"`
	} `json:"alternative_names"`
	Franchises []int64 `json:"franchises"`
	Collection int64   `json:"collection"`
}

// franchiseResponse is the raw IGDB franchise payload.
type franchiseResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Games []int64 `json:"games"`
}

// collectionResponse is the raw IGDB collection payload.
type collectionResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Games []int64 `json:"games"`
}

// tokenResponse is the Twitch OAuth client-credentials response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
