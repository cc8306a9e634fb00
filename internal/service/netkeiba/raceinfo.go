package netkeiba

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/annko/keiba-bot-go/internal/domain"
	"github.com/annko/keiba-bot-go/internal/util"
)

var (
	gradePattern     = regexp.MustCompile(`\(G\d\)`)
	surfacePattern   = regexp.MustCompile(`[ダ芝障]`)
	directionPattern = regexp.MustCompile(`[左右]`)
	distancePattern  = regexp.MustCompile(`\d{3,4}m`)
	weatherPattern   = regexp.MustCompile(`[晴曇雨小雪]{1,2}`)
	goingPattern     = regexp.MustCompile(`[良稍重不]{1,2}`)
	postTimePattern  = regexp.MustCompile(`\d{2}:\d{2}`)

	datePattern          = regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`)
	classPattern         = regexp.MustCompile(`[新馬未勝利出走オープン]{2,4}|\d+万|\d勝クラス`)
	localPattern         = regexp.MustCompile(`[特指]{1,2}`)
	internationalPattern = regexp.MustCompile(`[国際混]{1,2}`)
	conditionPattern     = regexp.MustCompile(`[ハンデ馬齢別定量]{2,3}`)
)

const japaneseDateLayout = "2006年1月2日"

// ParseRaceInfo reads the race header of a db.netkeiba.com page. Track, meeting,
// day and race number come from the identifier, the rest from the page text.
func ParseRaceInfo(doc *goquery.Document, id domain.RaceID) (*domain.RaceInfo, error) {
	h1, err := requireOne(doc.Selection, "dl.racedata.fc h1", "race name")
	if err != nil {
		return nil, err
	}
	paragraphs := doc.Find("div.data_intro p")
	if paragraphs.Length() < 2 {
		return nil, notFound("race conditions", "div.data_intro p")
	}

	info := &domain.RaceInfo{
		RaceID:     id.String(),
		RaceName:   strings.TrimSpace(h1.Text()),
		Racecourse: id.RacecourseName(),
		Meeting:    id.Meeting,
		Day:        id.Day,
		RaceNum:    id.Race,
	}
	info.Grade = parseGrade(info.RaceName)
	applyCourseText(info, paragraphs.Eq(0).Find("span").First().Text())
	applyConditionText(info, paragraphs.Eq(1).Text())
	return info, nil
}

func parseGrade(raceName string) string {
	g := gradePattern.FindString(raceName)
	switch {
	case strings.Contains(g, "1"):
		return "G1"
	case strings.Contains(g, "2"):
		return "G2"
	case strings.Contains(g, "3"):
		return "G3"
	default:
		return "-"
	}
}

// applyCourseText parses e.g. "芝右2000m / 天候 : 晴 / 芝 : 良 / 発走 : 15:40".
func applyCourseText(info *domain.RaceInfo, text string) {
	info.Surface = util.FirstMatch(surfacePattern, text, "")
	info.Direction = util.FirstMatch(directionPattern, text, domain.Unspecified)
	info.Distance = -1
	if d := distancePattern.FindString(text); d != "" {
		info.Distance = util.Atoi(strings.TrimSuffix(d, "m"), -1)
	}
	info.Weather = util.FirstMatch(weatherPattern, text, "")
	info.Going = util.FirstMatch(goingPattern, text, "")
	info.PostTime = util.FirstMatch(postTimePattern, text, "")
}

// applyConditionText parses e.g. "2024年10月27日 4回東京9日目 3歳以上オープン (国際)(指)(定量)".
func applyConditionText(info *domain.RaceInfo, text string) {
	if d := datePattern.FindString(text); d != "" {
		if date, err := time.Parse(japaneseDateLayout, d); err == nil {
			info.Date = date.Format("2006-01-02")
			info.Year = date.Year()
			info.Month = int(date.Month())
			info.DayOfMonth = date.Day()
		}
	}
	info.Class = util.FirstMatch(classPattern, text, "")
	info.LocalMarker = util.FirstMatch(localPattern, text, domain.Unspecified)
	info.International = util.FirstMatch(internationalPattern, text, domain.Unspecified)
	info.WeightCondition = util.FirstMatch(conditionPattern, text, domain.Unspecified)
}
