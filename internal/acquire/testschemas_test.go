package acquire

import "encoding/json"

var intentTestSchema = Schema{
	Name: "intent",
	Fields: []Field{
		{Name: "genres", Kind: FieldStringList, Required: true},
		{Name: "styles", Kind: FieldStringList, Required: true},
		{Name: "year_start", Kind: FieldInteger, Nullable: true},
		{Name: "year_end", Kind: FieldInteger, Nullable: true},
		{Name: "mood_description", Kind: FieldString, Required: true},
		{Name: "energy", Kind: FieldEnum, Required: true, Enum: []string{"low", "medium", "high"}},
		{Name: "keywords", Kind: FieldStringList, Required: true},
	},
}

type testIntent struct {
	Genres          []string `json:"genres"`
	Styles          []string `json:"styles"`
	YearStart       *int     `json:"year_start"`
	YearEnd         *int     `json:"year_end"`
	MoodDescription string   `json:"mood_description"`
	Energy          string   `json:"energy"`
	Keywords        []string `json:"keywords"`
}

var albumsTestSchema = Schema{
	Name: "albums",
	Records: &RecordSet{
		Key: "albums",
		Fields: []Field{
			{Name: "position", Kind: FieldInteger, Required: true},
			{Name: "artist", Kind: FieldString, Required: true},
			{Name: "title", Kind: FieldString, Required: true},
			{Name: "year", Kind: FieldInteger, Nullable: true},
			{Name: "confidence", Kind: FieldNumber},
		},
	},
}

type testAlbum struct {
	Position   int      `json:"position"`
	Artist     string   `json:"artist"`
	Title      string   `json:"title"`
	Year       *int     `json:"year"`
	Confidence *float64 `json:"confidence"`
}

type testAlbums struct {
	Albums []testAlbum `json:"albums"`
}

const scenarioAIntent = `{"genres":["Jazz"],"styles":["Bossa Nova"],"mood_description":"noche tranquila","energy":"low","keywords":[]}`

func jsonString(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}
