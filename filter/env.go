package filter

/*
Here the Env used in the notification filter expressions is defined.
Once this struct is fixed, it should not be changed, otherwise filter
expressions in existing configurations may not compile any more
(f.e. if properties are renamed etc.)
*/

type Room struct {
	Id       string
	Name     string
	Archived bool
}

type Sender struct {
	Nick string
}

type Env struct {
	Room
	Sender
	Body      string
	Timestamp int64
	Current   bool

	AsInt   func(string) int64
	AsFloat func(string) float64
}
