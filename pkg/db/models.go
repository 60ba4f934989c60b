package db

// MediaMapping links one vocabulary entry to the media files downloaded for it.
// EnglishTranslation is the dedup key; the table does not enforce its uniqueness.
type MediaMapping struct {
	ID                  int64
	Letter              string
	HebrewWord          string
	HebrewWordWithNikud string
	EnglishTranslation  string
	GermanTranslation   string
	// FilePaths keeps search-result order. Stored as a JSON array.
	FilePaths []string
}
