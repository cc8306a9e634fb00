package domain

// ResultEntry is one finisher row of the race.netkeiba.com result page. Values are kept
// as displayed so that scratched or disqualified rows survive unchanged.
type ResultEntry struct {
	Rank     string `json:"rank"`
	Waku     string `json:"waku"`
	HorseNum string `json:"horse_num"`
	Name     string `json:"name"`
	Age      string `json:"age"`
	Weight   string `json:"weight"`
	Jockey   string `json:"jockey"`
	Time     string `json:"time"`
	Sa       string `json:"sa"`
	Ninki    string `json:"ninki"`
	Odds     string `json:"odds"`
}

// DatabaseRow is one row of the db.netkeiba.com result table. The premium columns are
// only filled when the fetcher holds a logged-in session.
type DatabaseRow struct {
	RaceID      string `json:"race_id"`
	Rank        string `json:"rank"`
	Waku        string `json:"waku"`
	HorseNum    string `json:"horse_num"`
	HorseName   string `json:"horse_name"`
	SexAge      string `json:"sex_age"`
	Burden      string `json:"burden"`
	Jockey      string `json:"jockey"`
	Time        string `json:"time"`
	Margin      string `json:"margin"`
	Last3F      string `json:"last_3f"`
	WinOdds     string `json:"win_odds"`
	Popularity  string `json:"popularity"`
	HorseWeight string `json:"horse_weight"`
	Prize       string `json:"prize"`

	TimeIndex     string `json:"time_index,omitempty"`
	TrainingTime  string `json:"training_time,omitempty"`
	StableComment string `json:"stable_comment,omitempty"`
	Remarks       string `json:"remarks,omitempty"`

	HorseID   string `json:"horse_id"`
	JockeyID  string `json:"jockey_id"`
	TrainerID string `json:"trainer_id"`
	OwnerID   string `json:"owner_id"`
}

// Placeholder for race info fields the page did not carry.
const Unspecified = "無"

type RaceInfo struct {
	RaceID     string `json:"race_id"`
	RaceName   string `json:"race_name"`
	Grade      string `json:"grade"`
	Racecourse string `json:"racecourse"`
	Meeting    int    `json:"meeting"`
	Day        int    `json:"day"`
	RaceNum    int    `json:"race_num"`

	Surface   string `json:"surface"`
	Direction string `json:"direction"`
	Distance  int    `json:"distance"`
	Weather   string `json:"weather"`
	Going     string `json:"going"`
	PostTime  string `json:"post_time"`

	Date            string `json:"date"`
	Year            int    `json:"year"`
	Month           int    `json:"month"`
	DayOfMonth      int    `json:"day_of_month"`
	Class           string `json:"class"`
	LocalMarker     string `json:"local_marker"`
	International   string `json:"international"`
	WeightCondition string `json:"weight_condition"`
}

// Payout is one line of the payout tables; multi-line cells (複勝, ワイド) yield one
// Payout per line.
type Payout struct {
	RaceID      string `json:"race_id"`
	BetType     string `json:"bet_type"`
	Combination string `json:"combination"`
	Payout      string `json:"payout"`
	Amount      int    `json:"amount"`
	Popularity  string `json:"popularity"`
}

type CornerPassing struct {
	RaceID string `json:"race_id"`
	Corner string `json:"corner"`
	Order  string `json:"order"`
}

type Lap struct {
	RaceID   string `json:"race_id"`
	Distance string `json:"distance"`
	Lap      string `json:"lap"`
	Pace     string `json:"pace"`
}

// RaceDatabase bundles everything the db page yields for one race.
type RaceDatabase struct {
	Info    RaceInfo        `json:"info"`
	Rows    []DatabaseRow   `json:"rows"`
	Payouts []Payout        `json:"payouts"`
	Corners []CornerPassing `json:"corners"`
	Laps    []Lap           `json:"laps"`
}

// Grid is a header plus string rows, used for pages returned without a fixed shape.
type Grid struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// UmabashiraRow is the index view of a jiro8 umabashira column.
type UmabashiraRow struct {
	RaceID          string `json:"race_id"`
	HorseNum        string `json:"horse_num"`
	PaceStyle3F     string `json:"pace_style_3f"`
	CornerOrder     string `json:"corner_order"`
	LeadIndex       string `json:"lead_index"`
	PaceIndex       string `json:"pace_index"`
	Last3FIndex     string `json:"last_3f_index"`
	SpeedIndex      string `json:"speed_index"`
	PaperIndex      string `json:"paper_index"`
	AdjustedSPIndex string `json:"adjusted_sp_index"`
}
