package constants

import "time"

var CacheTTL = struct {
	RaceResult   time.Duration
	RaceDatabase time.Duration
	Calendar     time.Duration
	RaceIDList   time.Duration
	Horse        time.Duration
	LiveOdds     time.Duration
}{
	RaceResult:   30 * time.Minute,
	RaceDatabase: 24 * time.Hour,
	Calendar:     6 * time.Hour,
	RaceIDList:   6 * time.Hour,
	Horse:        12 * time.Hour,
	LiveOdds:     20 * time.Second,
}

var URLs = struct {
	RaceResult    string
	Database      string
	RaceList      string
	HorseDatabase string
	HorsePedigree string
	Calendar      string
	SPRaceList    string
	NetkeibaOdds  string
	Login         string
	JRATop        string
	Umabashira    string
	LineReply     string
}{
	RaceResult:    "https://race.netkeiba.com/race/result.html?race_id=%s&rf=race_list",
	Database:      "https://db.netkeiba.com/race/%s",
	RaceList:      "https://db.netkeiba.com/race/list/%s",
	HorseDatabase: "https://db.netkeiba.com/horse/%s/",
	HorsePedigree: "https://db.netkeiba.com/horse/ped/%s",
	Calendar:      "https://race.netkeiba.com/top/calendar.html?year=%d&month=%d",
	SPRaceList:    "https://race.sp.netkeiba.com/?pid=race_list&",
	NetkeibaOdds:  "https://race.netkeiba.com/odds/index.html?race_id=%s&rf=race_submenu",
	Login:         "https://regist.netkeiba.com/account/?pid=login&action=auth",
	JRATop:        "https://www.jra.go.jp/",
	Umabashira:    "http://jiro8.sakura.ne.jp/index.php?code=%s",
	LineReply:     "https://api.line.me/v2/bot/message/reply",
}

var FetchConfig = struct {
	UserAgent      string
	Timeout        time.Duration
	RetryCount     int
	RetryWait      time.Duration
	RetryMaxWait   time.Duration
	RequestsPerSec float64
	Burst          int
	BrowserTimeout time.Duration
	BrowserSettle  time.Duration
}{
	UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	Timeout:        15 * time.Second,
	RetryCount:     2,
	RetryWait:      500 * time.Millisecond,
	RetryMaxWait:   3 * time.Second,
	RequestsPerSec: 1,
	Burst:          2,
	BrowserTimeout: 30 * time.Second,
	BrowserSettle:  200 * time.Millisecond,
}

var WebSocketConfig = struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	MaxReconnectDelay    time.Duration
	WriteTimeout         time.Duration
	OddsPollInterval     time.Duration
}{
	MaxReconnectAttempts: 5,
	ReconnectDelay:       5 * time.Second,
	MaxReconnectDelay:    time.Minute,
	WriteTimeout:         10 * time.Second,
	OddsPollInterval:     30 * time.Second,
}

var AIInputLimits = struct {
	MaxQueryLength int
}{
	MaxQueryLength: 300,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
}{
	FailureThreshold:    5,
	ResetTimeout:        60 * time.Second,
	RateLimitTimeout:    5 * time.Minute,
	HealthCheckInterval: 30 * time.Second,
}

var ArchiveConfig = struct {
	Concurrency int
	Timeout     time.Duration
}{
	Concurrency: 3,
	Timeout:     30 * time.Minute,
}
